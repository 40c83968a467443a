package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
	"github.com/Astemirdum/library-circulation/circulation/migrations"
	"github.com/Astemirdum/library-circulation/pkg/lock"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/Astemirdum/library-circulation/pkg/postgres"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// sweepLockTTL bounds how long a crashed runner can block the next one.
const sweepLockTTL = 30 * time.Minute

type sweeper interface {
	RunDueDateSweep(ctx context.Context, now time.Time) (model.SweepResult, error)
}

// RunSweep performs one due-date sweep and returns. It is meant to be started
// by cron once per day; re-runs on the same day only send what was missed.
func RunSweep(cfg *config.Config) error {
	log := logger.NewLogger(cfg.Log, "sweep")
	svcCfg, err := cfg.Library.ServiceConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return errors.Wrap(err, "db init")
	}
	defer db.Close()
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		return errors.Wrap(err, "repo")
	}

	var locker lock.Locker = lock.Noop{}
	if cfg.Lock.Enabled() {
		client, err := lock.NewRedisClient(ctx, cfg.Lock)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, uuid.NewString())
	}

	sender, closeSender, err := newSender(cfg, log)
	if err != nil {
		return errors.Wrap(err, "mail sender")
	}
	dispatcher := mail.NewDispatcher(sender, cfg.Mail.SendTimeout, log)
	svc := service.NewService(repo, dispatcher, svcCfg, log)

	_, err = sweepOnce(ctx, locker, svc, time.Now().In(svcCfg.Location), log)
	dispatcher.Wait()
	if cerr := closeSender(); cerr != nil {
		log.Warn("mail sender close", zap.Error(cerr))
	}
	return err
}

// sweepOnce holds the per-day lock for the duration of a single sweep.
// A lock held elsewhere is not an error: another runner is doing the work.
func sweepOnce(ctx context.Context, locker lock.Locker, svc sweeper, now time.Time, log *zap.Logger) (model.SweepResult, error) {
	key := "sweep:" + now.Format(time.DateOnly)
	release, err := locker.Acquire(ctx, key, sweepLockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		log.Info("sweep already running", zap.String("key", key))
		return model.SweepResult{}, nil
	}
	if err != nil {
		return model.SweepResult{}, errors.Wrap(err, "acquire sweep lock")
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			log.Warn("release sweep lock", zap.Error(err))
		}
	}()

	res, err := svc.RunDueDateSweep(ctx, now)
	log.Info("sweep finished",
		zap.Int("due_in_2", res.DueIn2),
		zap.Int("due_in_1", res.DueIn1),
		zap.Int("due_today", res.DueToday),
		zap.Int("overdue", res.Overdue),
		zap.Int("deduplicated", res.Deduplicated),
		zap.Int("failed", res.Failed),
		zap.Error(err))
	return res, err
}
