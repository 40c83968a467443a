package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanRequested LoanStatus = "requested"
	LoanApproved  LoanStatus = "approved"
	LoanRejected  LoanStatus = "rejected"
	LoanActive    LoanStatus = "active"
	LoanReturned  LoanStatus = "returned"
)

// HoldsCopy reports whether a loan in this status keeps one unit of the book's availability.
func (s LoanStatus) HoldsCopy() bool {
	return s == LoanActive || s == LoanApproved
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type Loan struct {
	ID               int64           `json:"id" db:"id"`
	BookID           int64           `json:"bookId" db:"book_id"`
	UserID           int64           `json:"userId" db:"user_id"`
	IssueDate        time.Time       `json:"issueDate" db:"issue_date"`
	ReturnDate       time.Time       `json:"returnDate" db:"return_date"`
	ActualReturnDate *time.Time      `json:"actualReturnDate" db:"actual_return_date"`
	FineAmount       decimal.Decimal `json:"fineAmount" db:"fine_amount"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	Status           LoanStatus      `json:"status" db:"status"`
	Notes            string          `json:"notes" db:"notes"`
}

func (l Loan) IsReturned() bool { return l.ActualReturnDate != nil }

// IsOverdue reports whether an open loan is past its due date at now.
func (l Loan) IsOverdue(now time.Time) bool {
	if l.IsReturned() || l.ReturnDate.IsZero() {
		return false
	}
	return l.ReturnDate.Before(now)
}

func Label(book Book, user User) string {
	return fmt.Sprintf("%s - %s", book.Label(), user.Label())
}

// LoanDetail is a loan joined with its book and borrower, as used for notifications and listings.
type LoanDetail struct {
	Loan
	BookTitle string `json:"bookTitle" db:"book_title"`
	Username  string `json:"username" db:"username"`
	Email     string `json:"-" db:"email"`
}

func (d LoanDetail) Label() string {
	return fmt.Sprintf("%s - %s", d.BookTitle, d.Username)
}

type LoanView struct {
	LoanDetail
	CalculatedFine decimal.Decimal `json:"calculatedFine"`
	DaysRemaining  *int            `json:"daysRemaining,omitempty"`
}

type LoanFilter struct {
	UserID int64
	Status LoanStatus
	Page   int
	Size   int
}

type CreateLoanRequest struct {
	BookID  int64  `json:"bookId" validate:"required,gt=0"`
	DueDate string `json:"dueDate" validate:"required,isodate"`
}

type UserSummary struct {
	ActiveLoans int             `json:"activeLoans"`
	DueSoon     int             `json:"dueSoon"`
	Overdue     int             `json:"overdue"`
	TotalFines  decimal.Decimal `json:"totalFines"`
}
