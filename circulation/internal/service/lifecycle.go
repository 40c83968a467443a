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

// transition is one state change of a loan. apply runs with the loan row locked
// and mutates it in place; notes builds the notifications from the updated row.
type transition struct {
	name  string
	apply func(ctx context.Context, tx repository.Store, loan *model.Loan) error
	notes func(d model.LoanDetail) []model.Notification
}

// transit runs t in one transaction: lock, apply, persist, append notifications.
// Mail goes out only after commit.
func (s *Service) transit(ctx context.Context, loanID int64, t transition) (model.Loan, error) {
	var (
		detail model.LoanDetail
		notes  []model.Notification
	)
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if err = t.apply(ctx, tx, &loan); err != nil {
			return err
		}
		if err = tx.UpdateLoan(ctx, loan); err != nil {
			return err
		}
		if detail, err = tx.GetLoan(ctx, loan.ID); err != nil {
			return err
		}
		if t.notes != nil {
			notes = t.notes(detail)
		}
		for _, n := range notes {
			if _, err = tx.AppendNotification(ctx, n); err != nil {
				return errors.Wrap(err, "append notification")
			}
		}
		return nil
	})
	if err != nil {
		return model.Loan{}, errors.Wrapf(err, "%s loan %d", t.name, loanID)
	}
	s.log.Info("loan transition",
		zap.String("op", t.name),
		zap.Int64("loan_id", detail.ID),
		zap.String("status", string(detail.Status)),
		zap.String("loan", detail.Label()))

	s.notify(detail.Email, notes...)
	return detail.Loan, nil
}

func invalidTransition(op string, loan model.Loan) error {
	return errors.Wrapf(errs.ErrInvalidTransition, "cannot %s loan %d in status %s", op, loan.ID, loan.Status)
}

// checkOut takes one copy of the book. The book row is locked before available is read.
func checkOut(ctx context.Context, tx repository.Store, bookID int64) error {
	book, err := tx.LockBook(ctx, bookID)
	if err != nil {
		return err
	}
	if book.Available <= 0 {
		return errors.Wrapf(errs.ErrInventoryExhausted, "book %d", bookID)
	}
	return tx.AdjustAvailable(ctx, bookID, -1)
}

// RequestLoan opens a loan for the user. Staff loans start active and take a
// copy right away; member loans wait in requested for approval.
func (s *Service) RequestLoan(ctx context.Context, bookID, userID int64, dueDate time.Time) (model.Loan, error) {
	if dueDate.IsZero() {
		return model.Loan{}, errors.Wrap(errs.ErrValidation, "due date is required")
	}
	now := s.now()
	due := s.policy.DueAt(dueDate)
	if s.policy.CalendarDaysUntil(due, now) < 0 {
		return model.Loan{}, errors.Wrap(errs.ErrValidation, "due date is in the past")
	}

	var created model.Loan
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return errors.Wrapf(err, "user %d", userID)
		}
		if !user.IsActive {
			return errors.Wrapf(errs.ErrValidation, "user %d is inactive", userID)
		}
		loan := model.Loan{
			BookID:        bookID,
			UserID:        userID,
			IssueDate:     now,
			ReturnDate:    due,
			FineAmount:    decimal.Zero,
			PaymentStatus: model.PaymentPending,
			Status:        model.LoanRequested,
		}
		if user.IsStaff {
			if err = checkOut(ctx, tx, bookID); err != nil {
				return err
			}
			loan.Status = model.LoanActive
		} else if _, err = tx.GetBook(ctx, bookID); err != nil {
			return errors.Wrapf(err, "book %d", bookID)
		}
		created, err = tx.CreateLoan(ctx, loan)
		return err
	})
	if err != nil {
		return model.Loan{}, errors.Wrap(err, "request loan")
	}
	s.log.Info("loan requested",
		zap.Int64("loan_id", created.ID),
		zap.Int64("book_id", bookID),
		zap.Int64("user_id", userID),
		zap.String("status", string(created.Status)))
	return created, nil
}

func (s *Service) Approve(ctx context.Context, loanID int64) (model.Loan, error) {
	return s.transit(ctx, loanID, transition{
		name: "approve",
		apply: func(ctx context.Context, tx repository.Store, loan *model.Loan) error {
			if loan.Status != model.LoanRequested {
				return invalidTransition("approve", *loan)
			}
			if err := checkOut(ctx, tx, loan.BookID); err != nil {
				return err
			}
			loan.Status = model.LoanActive
			return nil
		},
		notes: func(d model.LoanDetail) []model.Notification {
			return []model.Notification{s.approvedNotification(d)}
		},
	})
}

func (s *Service) Reject(ctx context.Context, loanID int64) (model.Loan, error) {
	return s.transit(ctx, loanID, transition{
		name: "reject",
		apply: func(_ context.Context, _ repository.Store, loan *model.Loan) error {
			if loan.Status != model.LoanRequested {
				return invalidTransition("reject", *loan)
			}
			loan.Status = model.LoanRejected
			return nil
		},
		notes: func(d model.LoanDetail) []model.Notification {
			return []model.Notification{rejectedNotification(d)}
		},
	})
}

// Renew pushes the due date of an open loan by the renewal period.
func (s *Service) Renew(ctx context.Context, loanID int64) (model.Loan, error) {
	return s.transit(ctx, loanID, transition{
		name: "renew",
		apply: func(_ context.Context, _ repository.Store, loan *model.Loan) error {
			if !loan.Status.HoldsCopy() || loan.IsReturned() {
				return invalidTransition("renew", *loan)
			}
			if loan.ReturnDate.IsZero() {
				return errors.Wrapf(errs.ErrValidation, "loan %d has no due date", loan.ID)
			}
			loan.ReturnDate = loan.ReturnDate.AddDate(0, 0, s.cfg.RenewalDays)
			return nil
		},
	})
}

// ReturnLoan closes an open loan, persists the fine for late returns and gives the copy back.
func (s *Service) ReturnLoan(ctx context.Context, loanID int64) (model.Loan, error) {
	var overdueDays int
	return s.transit(ctx, loanID, transition{
		name: "return",
		apply: func(ctx context.Context, tx repository.Store, loan *model.Loan) error {
			if !loan.Status.HoldsCopy() || loan.IsReturned() {
				return invalidTransition("return", *loan)
			}
			now := s.now()
			loan.ActualReturnDate = &now
			overdueDays = s.policy.OverdueDays(loan.ReturnDate, now)
			if overdueDays > 0 {
				loan.FineAmount = s.policy.Amount(overdueDays)
				loan.PaymentStatus = model.PaymentOverdue
			}
			loan.Status = model.LoanReturned
			return tx.AdjustAvailable(ctx, loan.BookID, 1)
		},
		notes: func(d model.LoanDetail) []model.Notification {
			notes := []model.Notification{returnedNotification(d)}
			if overdueDays > 0 {
				notes = append(notes, fineAddedNotification(d, overdueDays))
			}
			return notes
		},
	})
}

// CalculatedFine projects the fine as of now without touching the loan.
func (s *Service) CalculatedFine(ctx context.Context, loanID int64) (decimal.Decimal, error) {
	d, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "loan %d", loanID)
	}
	return s.projectFine(d.Loan, s.now()), nil
}

// PayFines settles every unpaid fine of the user and returns the number of loans settled.
func (s *Service) PayFines(ctx context.Context, userID int64) (int64, error) {
	var (
		settled int64
		user    model.User
		note    model.Notification
	)
	err := s.repo.InTx(ctx, func(tx repository.Store) error {
		var err error
		if user, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if settled, err = tx.SettleFines(ctx, userID); err != nil || settled == 0 {
			return err
		}
		note = finePaidNotification(userID, settled)
		_, err = tx.AppendNotification(ctx, note)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "pay fines of user %d", userID)
	}
	if settled > 0 {
		s.log.Info("fines paid", zap.Int64("user_id", userID), zap.Int64("loans", settled))
		s.notify(user.Email, note)
	}
	return settled, nil
}

func (s *Service) GetLoan(ctx context.Context, loanID int64) (model.LoanView, error) {
	d, err := s.repo.GetLoan(ctx, loanID)
	if err != nil {
		return model.LoanView{}, errors.Wrapf(err, "loan %d", loanID)
	}
	return s.view(d, s.now()), nil
}

func (s *Service) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanView, error) {
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]model.LoanView, 0, len(loans))
	for _, d := range loans {
		views = append(views, s.view(d, now))
	}
	return views, nil
}

// ListOverdue returns open loans past their due date with their projected fines.
func (s *Service) ListOverdue(ctx context.Context) ([]model.LoanView, error) {
	loans, err := s.repo.ListOpenLoans(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]model.LoanView, 0)
	for _, d := range loans {
		if d.IsOverdue(now) {
			views = append(views, s.view(d, now))
		}
	}
	return views, nil
}

// UserSummary counts the user's open loans and sums unpaid and projected fines.
func (s *Service) UserSummary(ctx context.Context, userID int64) (model.UserSummary, error) {
	loans, err := s.repo.ListLoans(ctx, model.LoanFilter{UserID: userID})
	if err != nil {
		return model.UserSummary{}, err
	}
	now := s.now()
	sum := model.UserSummary{TotalFines: decimal.Zero}
	for _, d := range loans {
		switch {
		case d.IsReturned():
			if d.PaymentStatus != model.PaymentPaid {
				sum.TotalFines = sum.TotalFines.Add(d.FineAmount)
			}
		case d.Status.HoldsCopy():
			sum.ActiveLoans++
			if d.IsOverdue(now) {
				sum.Overdue++
				sum.TotalFines = sum.TotalFines.Add(s.policy.Fine(d.ReturnDate, now))
			} else if s.policy.CalendarDaysUntil(d.ReturnDate, now) <= dueSoonDays {
				sum.DueSoon++
			}
		}
	}
	return sum, nil
}
