package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/library-circulation/mailer/config"
	"github.com/Astemirdum/library-circulation/mailer/internal/handler"
	"github.com/Astemirdum/library-circulation/pkg/amqp"
	"github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run drains the mail queue until SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "mailer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	delivery := handler.NewDelivery(newSender(cfg, log), cfg.Mail.SendTimeout, log)

	g, ctx := errgroup.WithContext(ctx)
	switch cfg.Source {
	case config.SourceKafka:
		group, err := kafka.NewConsumer(cfg.Kafka, kafka.MailConsumerGroup)
		if err != nil {
			return errors.Wrap(err, "kafka.NewConsumer")
		}
		consumer := handler.NewConsumer(delivery.Handle, log)
		g.Go(func() error {
			return kafka.Consume(ctx, group, consumer, log, kafka.MailTopic)
		})
		g.Go(func() error {
			select {
			case <-consumer.Ready():
				log.Info("kafka consumer up", zap.String("topic", kafka.MailTopic))
			case <-ctx.Done():
			}
			<-ctx.Done()
			return group.Close()
		})
	case config.SourceAMQP:
		g.Go(func() error {
			log.Info("amqp consumer up", zap.String("queue", amqp.MailQueue))
			return amqp.Consume(ctx, cfg.AMQP, amqp.MailQueue, log, delivery.Handle)
		})
	default:
		return errors.Errorf("unknown mailer source %q", cfg.Source)
	}

	err := g.Wait()
	log.Info("mailer stopped", zap.Error(err))
	return err
}

// newSender delivers over SMTP unless MAIL_TRANSPORT asks for the log sink.
// Queue transports make no sense here and fall back to SMTP.
func newSender(cfg *config.Config, log *zap.Logger) mail.Sender {
	if cfg.Mail.Transport == mail.TransportLog {
		return mail.NewLogSender(log)
	}
	cb := circuit_breaker.New(100, 30*time.Second, 0.2, 2)
	return mail.NewSMTPSender(cfg.Mail.SMTP, cfg.Mail.From, cb)
}
