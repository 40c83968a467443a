package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLabels(t *testing.T) {
	book := Book{Title: "Dune"}
	user := User{Username: "alice"}

	require.Equal(t, "Dune - alice", Label(book, user))
	require.Equal(t, "Dune - alice", LoanDetail{BookTitle: "Dune", Username: "alice"}.Label())
	require.Equal(t, "alice - Book Overdue", Notification{Title: "Book Overdue"}.Label(user))
}

func TestLoan_IsOverdue(t *testing.T) {
	due := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	returned := due.Add(time.Hour)

	tests := []struct {
		name string
		loan Loan
		now  time.Time
		want bool
	}{
		{name: "before due", loan: Loan{ReturnDate: due}, now: due.Add(-time.Minute)},
		{name: "past due", loan: Loan{ReturnDate: due}, now: due.Add(time.Minute), want: true},
		{name: "returned late", loan: Loan{ReturnDate: due, ActualReturnDate: &returned}, now: due.AddDate(0, 0, 5)},
		{name: "no due date", loan: Loan{}, now: due},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.loan.IsOverdue(tt.now))
		})
	}
}

func TestLoanStatus_HoldsCopy(t *testing.T) {
	holds := map[LoanStatus]bool{
		LoanRequested: false,
		LoanApproved:  true,
		LoanRejected:  false,
		LoanActive:    true,
		LoanReturned:  false,
	}
	for status, want := range holds {
		require.Equal(t, want, status.HoldsCopy(), status)
	}
}

func TestSweepResult_Add(t *testing.T) {
	var r SweepResult
	for _, b := range []SweepBucket{BucketDueIn2, BucketDueIn1, BucketDueIn1, BucketDueToday, BucketOverdue, BucketOverdue, BucketOverdue} {
		r.Add(b)
	}
	require.Equal(t, SweepResult{DueIn2: 1, DueIn1: 2, DueToday: 1, Overdue: 3}, r)
}
