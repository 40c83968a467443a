package config

import (
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/service"
	"github.com/Astemirdum/library-circulation/pkg/amqp"
	"github.com/Astemirdum/library-circulation/pkg/auth"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/lock"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/Astemirdum/library-circulation/pkg/postgres"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"CIRCULATION_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"CIRCULATION_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

// Library holds the circulation policy knobs.
type Library struct {
	FineRatePerDay   decimal.Decimal `envconfig:"FINE_RATE_PER_DAY" default:"5"`
	RenewalDays      int             `envconfig:"RENEWAL_DAYS" default:"14"`
	Timezone         string          `envconfig:"LIBRARY_TIMEZONE" default:"UTC"`
	SweepConcurrency int             `envconfig:"SWEEP_CONCURRENCY" default:"4"`
}

// ServiceConfig resolves the timezone and builds the service settings.
func (l Library) ServiceConfig() (service.Config, error) {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return service.Config{}, errors.Wrapf(err, "load timezone %q", l.Timezone)
	}
	if l.FineRatePerDay.IsNegative() {
		return service.Config{}, errors.New("FINE_RATE_PER_DAY must not be negative")
	}
	return service.Config{
		FineRate:         l.FineRatePerDay,
		RenewalDays:      l.RenewalDays,
		Location:         loc,
		SweepConcurrency: l.SweepConcurrency,
	}, nil
}

type Config struct {
	Server   HTTPServer  `yaml:"server"`
	Database postgres.DB `yaml:"db"`
	Log      logger.Log  `yaml:"log"`
	Auth     auth.Config
	Library  Library
	Mail     mail.Config
	Kafka    kafka.Config
	AMQP     amqp.Config
	Lock     lock.Config
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
	})

	return cfg
}
