package config

import (
	"log"
	"sync"

	"github.com/Astemirdum/library-circulation/pkg/amqp"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/kelseyhightower/envconfig"
)

const (
	SourceKafka = "kafka"
	SourceAMQP  = "amqp"
)

type Config struct {
	// Source is the queue the worker drains: kafka or amqp.
	Source string     `envconfig:"MAILER_SOURCE" default:"kafka"`
	Log    logger.Log `yaml:"log"`
	Mail   mail.Config
	Kafka  kafka.Config
	AMQP   amqp.Config
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig() *Config {
	once.Do(func() {
		var config Config
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})

	return cfg
}
