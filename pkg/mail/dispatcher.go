package mail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		log:     log.Named("mail"),
	}
}

// Dispatch sends msg in the background and returns immediately.
func (d *Dispatcher) Dispatch(msg Message) {
	if msg.To == "" {
		d.log.Debug("skip mail without recipient", zap.String("subject", msg.Subject))
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("mail sender panic", zap.Any("panic", r), zap.String("id", msg.ID))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Warn("mail send failed",
				zap.String("id", msg.ID),
				zap.String("to", msg.To),
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return
		}
		d.log.Debug("mail sent", zap.String("id", msg.ID), zap.String("to", msg.To))
	}()
}

// Wait blocks until all in-flight sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
