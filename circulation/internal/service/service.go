package service

import (
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/fine"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultRenewalDays      = 14
	DefaultSweepConcurrency = 4
	dueSoonDays             = 3
)

// Mailer hands a message off for delivery. It must not block on the transport.
type Mailer interface {
	Dispatch(msg mail.Message)
}

type Config struct {
	FineRate         decimal.Decimal
	RenewalDays      int
	Location         *time.Location
	SweepConcurrency int
}

type Option func(*Service)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type Service struct {
	log    *zap.Logger
	repo   repository.Repository
	mailer Mailer
	policy fine.Policy
	cfg    Config
	now    func() time.Time
}

func NewService(repo repository.Repository, mailer Mailer, cfg Config, log *zap.Logger, opts ...Option) *Service {
	if cfg.FineRate.IsZero() {
		cfg.FineRate = fine.DefaultRate
	}
	if cfg.RenewalDays <= 0 {
		cfg.RenewalDays = DefaultRenewalDays
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = DefaultSweepConcurrency
	}
	s := &Service{
		log:    log.Named("service"),
		repo:   repo,
		mailer: mailer,
		policy: fine.NewPolicy(cfg.FineRate, cfg.Location),
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// notify queues mail for notifications that were already committed.
func (s *Service) notify(to string, notes ...model.Notification) {
	for _, n := range notes {
		s.mailer.Dispatch(mail.NewMessage(to, n.Title, n.Message))
	}
}

func (s *Service) view(d model.LoanDetail, now time.Time) model.LoanView {
	v := model.LoanView{LoanDetail: d, CalculatedFine: s.projectFine(d.Loan, now)}
	if d.Status.HoldsCopy() && !d.IsReturned() && !d.ReturnDate.IsZero() {
		days := s.policy.CalendarDaysUntil(d.ReturnDate, now)
		v.DaysRemaining = &days
	}
	return v
}

func (s *Service) projectFine(l model.Loan, now time.Time) decimal.Decimal {
	if l.IsReturned() {
		return l.FineAmount
	}
	if !l.Status.HoldsCopy() {
		return decimal.Zero
	}
	return s.policy.Fine(l.ReturnDate, now)
}
