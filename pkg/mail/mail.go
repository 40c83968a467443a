// Package mail delivers outbound e-mail for the library.
//
// Callers never see delivery errors: a Dispatcher hands messages to a Sender in the
// background, bounds each attempt with a timeout, and logs failures.
package mail

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	TransportLog   = "log"
	TransportSMTP  = "smtp"
	TransportKafka = "kafka"
	TransportAMQP  = "amqp"
)

type Config struct {
	Transport   string        `envconfig:"MAIL_TRANSPORT" default:"log"`
	From        string        `envconfig:"MAIL_FROM" default:"library@localhost"`
	SendTimeout time.Duration `envconfig:"MAIL_SEND_TIMEOUT" default:"10s"`
	SMTP        SMTPConfig
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"localhost"`
	Port     string `envconfig:"SMTP_PORT" default:"25"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
}

type Message struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessage(to, subject, body string) Message {
	return Message{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
