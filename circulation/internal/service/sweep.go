package service

import (
	"context"
	"sync"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// classify puts an open loan into at most one reminder bucket.
// Overdue wins over the calendar buckets; loans due later than two days are skipped.
func (s *Service) classify(l model.Loan, now time.Time) (model.SweepBucket, bool) {
	if l.ReturnDate.IsZero() {
		return "", false
	}
	if l.ReturnDate.Before(now) {
		return model.BucketOverdue, true
	}
	switch s.policy.CalendarDaysUntil(l.ReturnDate, now) {
	case 0:
		return model.BucketDueToday, true
	case 1:
		return model.BucketDueIn1, true
	case 2:
		return model.BucketDueIn2, true
	}
	return "", false
}

// RunDueDateSweep sends one reminder per open loan and bucket for the calendar
// day of now. A reminder already sent for that loan, bucket and day is counted
// as deduplicated instead. A failing loan is logged and counted; the rest still run.
// Inventory is never touched.
func (s *Service) RunDueDateSweep(ctx context.Context, now time.Time) (model.SweepResult, error) {
	loans, err := s.repo.ListOpenLoans(ctx)
	if err != nil {
		return model.SweepResult{}, errors.Wrap(err, "list open loans")
	}
	day := dayOf(now, s.policy.Location)
	log := s.log.With(zap.String("sweep_day", day))

	var (
		mu  sync.Mutex
		res model.SweepResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SweepConcurrency)
	for _, d := range loans {
		d := d
		bucket, ok := s.classify(d.Loan, now)
		if !ok {
			continue
		}
		g.Go(func() error {
			inserted, err := s.remind(gctx, d, bucket, day, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				log.Warn("sweep loan failed",
					zap.Int64("loan_id", d.ID),
					zap.String("bucket", string(bucket)),
					zap.Error(err))
			case !inserted:
				res.Deduplicated++
			default:
				res.Add(bucket)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("sweep done",
		zap.Int("due_in_2", res.DueIn2),
		zap.Int("due_in_1", res.DueIn1),
		zap.Int("due_today", res.DueToday),
		zap.Int("overdue", res.Overdue),
		zap.Int("deduplicated", res.Deduplicated),
		zap.Int("failed", res.Failed))
	return res, ctx.Err()
}

func (s *Service) remind(ctx context.Context, d model.LoanDetail, bucket model.SweepBucket, day string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	days := s.policy.OverdueDays(d.ReturnDate, now)
	n := s.reminderNotification(d, bucket, day, days, s.policy.Fine(d.ReturnDate, now))
	inserted, err := s.repo.AppendNotification(ctx, n)
	if err != nil {
		return false, errors.Wrapf(err, "append %s reminder", bucket)
	}
	if inserted {
		s.notify(d.Email, n)
	}
	return inserted, nil
}
