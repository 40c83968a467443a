package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
	"github.com/Astemirdum/library-circulation/pkg/mail"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mailRecorder struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *mailRecorder) Dispatch(msg mail.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

func (m *mailRecorder) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type fixture struct {
	repo   *fakeRepo
	mailer *mailRecorder
	svc    *service.Service
	now    time.Time
	member model.User
	staff  model.User
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newFakeRepo(),
		mailer: &mailRecorder{},
		now:    now,
	}
	f.member = f.repo.addUser(model.User{Username: "alice", Email: "alice@example.com", IsActive: true})
	f.staff = f.repo.addUser(model.User{Username: "bob", Email: "bob@example.com", IsActive: true, IsStaff: true})
	f.svc = service.NewService(f.repo, f.mailer, service.Config{
		FineRate: decimal.NewFromInt(5),
		Location: time.UTC,
	}, zap.NewNop(), service.WithClock(func() time.Time { return f.now }))
	return f
}

// requireInvariants checks the book range and the returned-date consistency for every row.
func (f *fixture) requireInvariants(t *testing.T) {
	t.Helper()
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	for _, b := range f.repo.books {
		require.GreaterOrEqual(t, b.Available, 0, "book %d", b.ID)
		require.LessOrEqual(t, b.Available, b.Quantity, "book %d", b.ID)
	}
	for _, l := range f.repo.loans {
		require.Equal(t, l.Status == model.LoanReturned, l.ActualReturnDate != nil, "loan %d", l.ID)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRequestLoan(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		staff         bool
		inactive      bool
		available     int
		due           time.Time
		wantErr       error
		wantStatus    model.LoanStatus
		wantAvailable int
	}{
		{
			name:          "member request waits for approval",
			available:     2,
			due:           day(2024, 1, 19),
			wantStatus:    model.LoanRequested,
			wantAvailable: 2,
		},
		{
			name:          "staff request is active at once",
			staff:         true,
			available:     2,
			due:           day(2024, 1, 19),
			wantStatus:    model.LoanActive,
			wantAvailable: 1,
		},
		{
			name:          "staff request without copies",
			staff:         true,
			available:     0,
			due:           day(2024, 1, 19),
			wantErr:       errs.ErrInventoryExhausted,
			wantAvailable: 0,
		},
		{
			name:          "due today is allowed",
			available:     1,
			due:           day(2024, 1, 5),
			wantStatus:    model.LoanRequested,
			wantAvailable: 1,
		},
		{
			name:          "due date in the past",
			available:     1,
			due:           day(2024, 1, 4),
			wantErr:       errs.ErrValidation,
			wantAvailable: 1,
		},
		{
			name:          "missing due date",
			available:     1,
			wantErr:       errs.ErrValidation,
			wantAvailable: 1,
		},
		{
			name:          "inactive user",
			inactive:      true,
			available:     1,
			due:           day(2024, 1, 19),
			wantErr:       errs.ErrValidation,
			wantAvailable: 1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, now)
			book := f.repo.addBook(2, tt.available)
			user := f.member
			if tt.staff {
				user = f.staff
			}
			if tt.inactive {
				user = f.repo.addUser(model.User{Username: "carol"})
			}

			loan, err := f.svc.RequestLoan(context.Background(), book.ID, user.ID, tt.due)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Empty(t, f.repo.loans)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantStatus, loan.Status)
				require.Equal(t, now, loan.IssueDate)
				require.Equal(t, time.Date(tt.due.Year(), tt.due.Month(), tt.due.Day(), 23, 59, 0, 0, time.UTC), loan.ReturnDate)
				require.Nil(t, loan.ActualReturnDate)
			}
			require.Equal(t, tt.wantAvailable, f.repo.book(book.ID).Available)
			f.requireInvariants(t)
		})
	}
}

func TestApprove_LastCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	book := f.repo.addBook(5, 1)

	first, err := f.svc.RequestLoan(ctx, book.ID, f.member.ID, day(2024, 1, 19))
	require.NoError(t, err)
	second, err := f.svc.RequestLoan(ctx, book.ID, f.member.ID, day(2024, 1, 19))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanActive, approved.Status)
	require.Equal(t, 0, f.repo.book(book.ID).Available)

	_, err = f.svc.Approve(ctx, second.ID)
	require.ErrorIs(t, err, errs.ErrInventoryExhausted)
	require.Equal(t, 0, f.repo.book(book.ID).Available)
	require.Equal(t, model.LoanRequested, f.repo.loan(second.ID).Status)

	notes := f.repo.notificationsOf(f.member.ID)
	require.Len(t, notes, 1)
	require.Equal(t, model.NotificationIssueApproved, notes[0].Type)
	require.NotNil(t, notes[0].Link)

	sent := f.mailer.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "alice@example.com", sent[0].To)
	require.Equal(t, notes[0].Title, sent[0].Subject)
	f.requireInvariants(t)
}

func TestApproveReject_OnlyFromRequested(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	book := f.repo.addBook(3, 2)

	statuses := []model.LoanStatus{model.LoanApproved, model.LoanActive, model.LoanRejected}
	for _, st := range statuses {
		loan := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 19), Status: st})

		_, err := f.svc.Approve(ctx, loan.ID)
		require.ErrorIs(t, err, errs.ErrInvalidTransition, st)
		_, err = f.svc.Reject(ctx, loan.ID)
		require.ErrorIs(t, err, errs.ErrInvalidTransition, st)
		require.Equal(t, st, f.repo.loan(loan.ID).Status)
	}
	require.Equal(t, 2, f.repo.book(book.ID).Available)

	_, err := f.svc.Approve(ctx, 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	book := f.repo.addBook(1, 1)

	loan, err := f.svc.RequestLoan(ctx, book.ID, f.member.ID, day(2024, 1, 19))
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanRejected, rejected.Status)
	require.Equal(t, 1, f.repo.book(book.ID).Available)

	notes := f.repo.notificationsOf(f.member.ID)
	require.Len(t, notes, 1)
	require.Equal(t, model.NotificationIssueRejected, notes[0].Type)
	require.Len(t, f.mailer.messages(), 1)
}

func TestReturnLoan_Late(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	returnedAt := day(2024, 1, 13)
	f := newFixture(t, returnedAt)
	book := f.repo.addBook(5, 4)
	loan := f.repo.addLoan(model.Loan{
		BookID:     book.ID,
		UserID:     f.member.ID,
		IssueDate:  day(2023, 12, 27),
		ReturnDate: day(2024, 1, 10),
		Status:     model.LoanActive,
	})

	returned, err := f.svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, model.LoanReturned, returned.Status)
	require.NotNil(t, returned.ActualReturnDate)
	require.Equal(t, returnedAt, *returned.ActualReturnDate)
	require.True(t, decimal.NewFromInt(15).Equal(returned.FineAmount), returned.FineAmount.String())
	require.Equal(t, model.PaymentOverdue, returned.PaymentStatus)
	require.Equal(t, 5, f.repo.book(book.ID).Available)

	notes := f.repo.notificationsOf(f.member.ID)
	require.Len(t, notes, 2)
	require.Equal(t, model.NotificationReturned, notes[0].Type)
	require.Equal(t, model.NotificationFineAdded, notes[1].Type)
	require.Contains(t, notes[1].Message, "15.00")

	// a second return changes nothing
	f.now = returnedAt.Add(48 * time.Hour)
	_, err = f.svc.ReturnLoan(ctx, loan.ID)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	require.Equal(t, 5, f.repo.book(book.ID).Available)
	require.Len(t, f.repo.notificationsOf(f.member.ID), 2)
	require.True(t, decimal.NewFromInt(15).Equal(f.repo.loan(loan.ID).FineAmount))
	require.Equal(t, returnedAt, *f.repo.loan(loan.ID).ActualReturnDate)
	f.requireInvariants(t)
}

func TestReturnLoan_OnTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	book := f.repo.addBook(1, 0)
	loan := f.repo.addLoan(model.Loan{
		BookID:     book.ID,
		UserID:     f.member.ID,
		ReturnDate: time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC),
		Status:     model.LoanApproved,
	})

	returned, err := f.svc.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.True(t, returned.FineAmount.IsZero())
	require.Equal(t, model.PaymentPending, returned.PaymentStatus)
	require.Equal(t, 1, f.repo.book(book.ID).Available)
	require.Len(t, f.repo.notificationsOf(f.member.ID), 1)
}

func TestReturnLoan_NotHoldingCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 13))
	book := f.repo.addBook(1, 1)

	for _, st := range []model.LoanStatus{model.LoanRequested, model.LoanRejected} {
		loan := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 10), Status: st})
		_, err := f.svc.ReturnLoan(ctx, loan.ID)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	}
	require.Equal(t, 1, f.repo.book(book.ID).Available)
}

func TestRenew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 5))
	book := f.repo.addBook(2, 1)
	due := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	loan := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: due, Status: model.LoanActive})

	renewed, err := f.svc.Renew(ctx, loan.ID)
	require.NoError(t, err)
	require.Equal(t, due.AddDate(0, 0, 14), renewed.ReturnDate)
	require.Equal(t, model.LoanActive, renewed.Status)
	require.Equal(t, 1, f.repo.book(book.ID).Available)

	t.Run("no due date", func(t *testing.T) {
		l := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, Status: model.LoanActive})
		_, err := f.svc.Renew(ctx, l.ID)
		require.ErrorIs(t, err, errs.ErrValidation)
	})
	t.Run("returned", func(t *testing.T) {
		at := day(2024, 1, 4)
		l := f.repo.addLoan(model.Loan{
			BookID: book.ID, UserID: f.member.ID, ReturnDate: due,
			Status: model.LoanReturned, ActualReturnDate: &at,
		})
		_, err := f.svc.Renew(ctx, l.ID)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
		require.Equal(t, due, f.repo.loan(l.ID).ReturnDate)
	})
	t.Run("requested", func(t *testing.T) {
		l := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: due, Status: model.LoanRequested})
		_, err := f.svc.Renew(ctx, l.ID)
		require.ErrorIs(t, err, errs.ErrInvalidTransition)
	})
}

func TestCalculatedFine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 14, 6, 0, 0, 0, time.UTC))
	book := f.repo.addBook(3, 1)
	returnedAt := day(2024, 1, 12)

	open := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 10), Status: model.LoanActive})
	notDue := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 20), Status: model.LoanActive})
	closed := f.repo.addLoan(model.Loan{
		BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 10),
		ActualReturnDate: &returnedAt, FineAmount: decimal.NewFromInt(10),
		PaymentStatus: model.PaymentOverdue, Status: model.LoanReturned,
	})
	requested := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 10), Status: model.LoanRequested})

	tests := []struct {
		name   string
		loanID int64
		want   int64
	}{
		{name: "open overdue", loanID: open.ID, want: 20},
		{name: "not yet due", loanID: notDue.ID, want: 0},
		{name: "returned reports persisted fine", loanID: closed.ID, want: 10},
		{name: "requested", loanID: requested.ID, want: 0},
	}
	for _, tt := range tests {
		got, err := f.svc.CalculatedFine(ctx, tt.loanID)
		require.NoError(t, err, tt.name)
		require.True(t, decimal.NewFromInt(tt.want).Equal(got), "%s: %s", tt.name, got)
	}
	require.True(t, f.repo.loan(open.ID).FineAmount.IsZero())
	require.Nil(t, f.repo.loan(open.ID).ActualReturnDate)
}

func TestPayFines(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, day(2024, 2, 1))
	book := f.repo.addBook(3, 3)
	at := day(2024, 1, 15)
	fined := f.repo.addLoan(model.Loan{
		BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 10), ActualReturnDate: &at,
		FineAmount: decimal.NewFromInt(25), PaymentStatus: model.PaymentOverdue, Status: model.LoanReturned,
	})

	settled, err := f.svc.PayFines(ctx, f.member.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, settled)
	require.Equal(t, model.PaymentPaid, f.repo.loan(fined.ID).PaymentStatus)
	notes := f.repo.notificationsOf(f.member.ID)
	require.Len(t, notes, 1)
	require.Equal(t, model.NotificationFinePaid, notes[0].Type)

	settled, err = f.svc.PayFines(ctx, f.member.ID)
	require.NoError(t, err)
	require.Zero(t, settled)
	require.Len(t, f.repo.notificationsOf(f.member.ID), 1)
	require.Len(t, f.mailer.messages(), 1)
}

func TestUserSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 14, 9, 0, 0, 0, time.UTC))
	book := f.repo.addBook(5, 1)
	at := day(2024, 1, 2)

	f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 12), Status: model.LoanActive})
	f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: time.Date(2024, 1, 16, 23, 59, 0, 0, time.UTC), Status: model.LoanActive})
	f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 2, 16), Status: model.LoanApproved})
	f.repo.addLoan(model.Loan{
		BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 1), ActualReturnDate: &at,
		FineAmount: decimal.NewFromInt(5), PaymentStatus: model.PaymentOverdue, Status: model.LoanReturned,
	})

	sum, err := f.svc.UserSummary(ctx, f.member.ID)
	require.NoError(t, err)
	require.Equal(t, 3, sum.ActiveLoans)
	require.Equal(t, 1, sum.DueSoon)
	require.Equal(t, 1, sum.Overdue)
	// 2 overdue days projected plus 5 unpaid
	require.True(t, decimal.NewFromInt(15).Equal(sum.TotalFines), sum.TotalFines.String())
}

func TestListOverdue(t *testing.T) {
	t.Parallel()
	f := newFixture(t, day(2024, 1, 14))
	book := f.repo.addBook(5, 3)
	late := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 11), Status: model.LoanActive})
	f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 20), Status: model.LoanActive})

	views, err := f.svc.ListOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, late.ID, views[0].ID)
	require.True(t, decimal.NewFromInt(15).Equal(views[0].CalculatedFine))
	require.NotNil(t, views[0].DaysRemaining)
	require.Equal(t, -3, *views[0].DaysRemaining)
}

func TestService_WrapsStoreErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, day(2024, 1, 14))
	book := f.repo.addBook(1, 1)
	loan := f.repo.addLoan(model.Loan{BookID: book.ID, UserID: f.member.ID, ReturnDate: day(2024, 1, 20), Status: model.LoanRequested})
	boom := errors.New("boom")
	f.repo.appendErr = func(model.Notification) error { return boom }

	_, err := f.svc.Approve(context.Background(), loan.ID)
	require.ErrorIs(t, err, boom)
	// the whole transition is rolled back with the failed notification
	require.Equal(t, model.LoanRequested, f.repo.loan(loan.ID).Status)
	require.Equal(t, 1, f.repo.book(book.ID).Available)
	require.Empty(t, f.mailer.messages())
}
