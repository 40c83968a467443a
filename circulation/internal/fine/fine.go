// Package fine holds the overdue arithmetic shared by returns, live projections and reminders.
package fine

import (
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// DefaultRate is the canonical charge per overdue day.
var DefaultRate = decimal.NewFromInt(5)

type Policy struct {
	RatePerDay decimal.Decimal
	Location   *time.Location
}

func NewPolicy(rate decimal.Decimal, loc *time.Location) Policy {
	if loc == nil {
		loc = time.UTC
	}
	return Policy{RatePerDay: rate, Location: loc}
}

// OverdueDays returns the number of whole 24h periods between due and at.
// It is zero when at is not after due.
func (p Policy) OverdueDays(due, at time.Time) int {
	if due.IsZero() || !at.After(due) {
		return 0
	}
	return int(at.Sub(due) / day)
}

func (p Policy) Amount(days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return p.RatePerDay.Mul(decimal.NewFromInt(int64(days)))
}

// Fine is the charge for a copy due at due and returned (or evaluated) at at.
func (p Policy) Fine(due, at time.Time) decimal.Decimal {
	return p.Amount(p.OverdueDays(due, at))
}

// CalendarDaysUntil returns the number of calendar days from now to due in the
// policy's location. Negative values mean the due date is in the past.
func (p Policy) CalendarDaysUntil(due, now time.Time) int {
	d := dateOf(due.In(p.Location))
	n := dateOf(now.In(p.Location))
	return int(d.Sub(n).Hours() / 24)
}

// DueAt returns 23:59 in the policy's location on the date named by t's own
// year, month and day, so a date parsed as UTC midnight keeps its calendar day.
func (p Policy) DueAt(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, p.Location)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
