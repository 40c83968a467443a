package handler

import (
	"context"
	"sync"
	"time"

	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Delivery takes a queued message to its recipient. Failed messages are
// dropped after logging; nothing is redelivered.
type Delivery struct {
	sender  mail.Sender
	timeout time.Duration
	log     *zap.Logger
}

func NewDelivery(sender mail.Sender, timeout time.Duration, log *zap.Logger) *Delivery {
	return &Delivery{sender: sender, timeout: timeout, log: log.Named("delivery")}
}

// Handle decodes one queued job and sends it.
func (d *Delivery) Handle(ctx context.Context, body []byte) error {
	msg, err := mail.Decode(body)
	if err != nil {
		return errors.Wrap(err, "decode mail")
	}
	if msg.To == "" {
		return errors.Errorf("mail %s has no recipient", msg.ID)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err = d.sender.Send(ctx, msg); err != nil {
		return errors.Wrapf(err, "send mail %s", msg.ID)
	}
	d.log.Debug("mail delivered", zap.String("id", msg.ID), zap.String("to", msg.To))
	return nil
}

// Consumer is a sarama group handler feeding Delivery.
type Consumer struct {
	handle    func(ctx context.Context, body []byte) error
	log       *zap.Logger
	ready     chan struct{}
	readyOnce sync.Once
}

func NewConsumer(handle func(ctx context.Context, body []byte) error, log *zap.Logger) *Consumer {
	return &Consumer{
		handle: handle,
		log:    log.Named("consumer"),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the first session has been set up.
func (consumer *Consumer) Ready() <-chan struct{} {
	return consumer.ready
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	consumer.readyOnce.Do(func() { close(consumer.ready) })
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			if err := consumer.handle(session.Context(), message.Value); err != nil {
				consumer.log.Error("consumer.handle", zap.Error(err),
					zap.String("topic", message.Topic),
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset))
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
