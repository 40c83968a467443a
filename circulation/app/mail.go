package app

import (
	"time"

	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/Astemirdum/library-circulation/pkg/amqp"
	"github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func noClose() error { return nil }

// newSender builds the transport selected by MAIL_TRANSPORT. The returned
// close func must run after the dispatcher has drained.
func newSender(cfg *config.Config, log *zap.Logger) (mail.Sender, func() error, error) {
	switch cfg.Mail.Transport {
	case "", mail.TransportLog:
		return mail.NewLogSender(log), noClose, nil
	case mail.TransportSMTP:
		cb := circuit_breaker.New(100, 30*time.Second, 0.2, 2)
		return mail.NewSMTPSender(cfg.Mail.SMTP, cfg.Mail.From, cb), noClose, nil
	case mail.TransportKafka:
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return nil, nil, errors.Wrap(err, "kafka.NewProducer")
		}
		return mail.NewKafkaSender(producer, kafka.MailTopic), producer.Close, nil
	case mail.TransportAMQP:
		pub, err := amqp.NewPublisher(cfg.AMQP, amqp.MailQueue)
		if err != nil {
			return nil, nil, errors.Wrap(err, "amqp.NewPublisher")
		}
		return mail.NewAMQPSender(pub), pub.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown mail transport %q", cfg.Mail.Transport)
	}
}
