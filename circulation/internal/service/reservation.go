package service

import (
	"context"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reserve holds one copy of the book for the user until the reservation is
// fulfilled or cancelled.
func (s *Service) Reserve(ctx context.Context, bookID, userID int64) (model.Reservation, error) {
	var (
		res  model.Reservation
		user model.User
		note model.Notification
	)
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		var err error
		if user, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if !user.IsActive {
			return errors.Wrapf(errs.ErrValidation, "user %d is inactive", userID)
		}
		book, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}
		if book.Available <= 0 {
			return errors.Wrapf(errs.ErrInventoryExhausted, "book %d", bookID)
		}
		if err = tx.AdjustAvailable(ctx, bookID, -1); err != nil {
			return err
		}
		res, err = tx.CreateReservation(ctx, model.Reservation{
			BookID:          bookID,
			UserID:          userID,
			ReservationDate: s.now(),
			Status:          model.ReservationPending,
		})
		if err != nil {
			return err
		}
		note = reservedNotification(userID, book)
		_, err = tx.AppendNotification(ctx, note)
		return err
	})
	if err != nil {
		return model.Reservation{}, errors.Wrapf(err, "reserve book %d", bookID)
	}
	s.log.Info("book reserved", zap.Int64("reservation_id", res.ID), zap.Int64("book_id", bookID))
	s.notify(user.Email, note)
	return res, nil
}

func (s *Service) GetReservation(ctx context.Context, id int64) (model.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *Service) ListReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return s.repo.ListReservations(ctx, userID)
}

// CancelReservation releases the held copy. Only pending reservations can be cancelled.
func (s *Service) CancelReservation(ctx context.Context, id int64) (model.Reservation, error) {
	var res model.Reservation
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		var err error
		if res, err = tx.LockReservation(ctx, id); err != nil {
			return err
		}
		if res.Status != model.ReservationPending {
			return errors.Wrapf(errs.ErrInvalidTransition, "reservation %d is %s", id, res.Status)
		}
		if err = tx.UpdateReservationStatus(ctx, id, model.ReservationCancelled); err != nil {
			return err
		}
		res.Status = model.ReservationCancelled
		return tx.AdjustAvailable(ctx, res.BookID, 1)
	})
	if err != nil {
		return model.Reservation{}, errors.Wrapf(err, "cancel reservation %d", id)
	}
	return res, nil
}

// FulfilReservation turns a pending reservation into an active loan. The copy
// held by the reservation moves to the loan; available does not change.
func (s *Service) FulfilReservation(ctx context.Context, id int64, dueDate time.Time) (model.Loan, error) {
	if dueDate.IsZero() {
		return model.Loan{}, errors.Wrap(errs.ErrValidation, "due date is required")
	}
	now := s.now()
	due := s.policy.DueAt(dueDate)
	if s.policy.CalendarDaysUntil(due, now) < 0 {
		return model.Loan{}, errors.Wrap(errs.ErrValidation, "due date is in the past")
	}

	var (
		detail model.LoanDetail
		note   model.Notification
	)
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		res, err := tx.LockReservation(ctx, id)
		if err != nil {
			return err
		}
		if res.Status != model.ReservationPending {
			return errors.Wrapf(errs.ErrInvalidTransition, "reservation %d is %s", id, res.Status)
		}
		user, err := tx.GetUser(ctx, res.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return errors.Wrapf(errs.ErrValidation, "user %d is inactive", res.UserID)
		}
		loan, err := tx.CreateLoan(ctx, model.Loan{
			BookID:        res.BookID,
			UserID:        res.UserID,
			IssueDate:     now,
			ReturnDate:    due,
			FineAmount:    decimal.Zero,
			PaymentStatus: model.PaymentPending,
			Status:        model.LoanActive,
		})
		if err != nil {
			return err
		}
		if err = tx.UpdateReservationStatus(ctx, id, model.ReservationFulfilled); err != nil {
			return err
		}
		if detail, err = tx.GetLoan(ctx, loan.ID); err != nil {
			return err
		}
		note = s.approvedNotification(detail)
		_, err = tx.AppendNotification(ctx, note)
		return err
	})
	if err != nil {
		return model.Loan{}, errors.Wrapf(err, "fulfil reservation %d", id)
	}
	s.log.Info("reservation fulfilled", zap.Int64("reservation_id", id), zap.Int64("loan_id", detail.ID))
	s.notify(detail.Email, note)
	return detail.Loan, nil
}
