package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("mail.log")}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("mail", zap.String("id", msg.ID), zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// SMTPSender delivers directly to an SMTP relay. Calls go through a circuit
// breaker so a dead relay fails fast instead of holding every sender until timeout.
type SMTPSender struct {
	cfg  SMTPConfig
	from string
	cb   circuit_breaker.CircuitBreaker
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, from string, cb circuit_breaker.CircuitBreaker) *SMTPSender {
	return &SMTPSender{cfg: cfg, from: from, cb: cb, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	var a smtp.Auth
	if s.cfg.Username != "" {
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	raw := buildRFC822(s.from, msg)

	return s.cb.Call(func() error {
		done := make(chan error, 1)
		go func() { done <- s.send(addr, a, s.from, []string{msg.To}, raw) }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func buildRFC822(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@library>\r\n", msg.ID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// KafkaSender enqueues messages for the mailer worker.
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSender(producer sarama.SyncProducer, topic string) *KafkaSender {
	return &KafkaSender{producer: producer, topic: topic}
}

func (s *KafkaSender) Send(_ context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(msg.To),
		Value: sarama.ByteEncoder(data),
	})
	return errors.Wrap(err, "kafka send")
}

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// AMQPSender enqueues messages on a RabbitMQ queue for the mailer worker.
type AMQPSender struct {
	pub Publisher
}

func NewAMQPSender(pub Publisher) *AMQPSender {
	return &AMQPSender{pub: pub}
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	return errors.Wrap(s.pub.Publish(ctx, data), "amqp publish")
}
