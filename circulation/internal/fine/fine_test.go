package fine_test

import (
	"testing"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/fine"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Fine(t *testing.T) {
	p := fine.NewPolicy(fine.DefaultRate, time.UTC)
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		at       time.Time
		wantDays int
		wantFine string
	}{
		{name: "on time", at: due.Add(-time.Hour), wantDays: 0, wantFine: "0"},
		{name: "exactly due", at: due, wantDays: 0, wantFine: "0"},
		{name: "less than a day late", at: due.Add(23 * time.Hour), wantDays: 0, wantFine: "0"},
		{name: "three days late", at: time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC), wantDays: 3, wantFine: "15"},
		{name: "three and a half days", at: due.Add(84 * time.Hour), wantDays: 3, wantFine: "15"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantDays, p.OverdueDays(due, tt.at))
			require.True(t, decimal.RequireFromString(tt.wantFine).Equal(p.Fine(due, tt.at)), p.Fine(due, tt.at).String())
		})
	}
}

func TestPolicy_ZeroDue(t *testing.T) {
	p := fine.NewPolicy(fine.DefaultRate, nil)
	require.Equal(t, 0, p.OverdueDays(time.Time{}, time.Now()))
}

func TestPolicy_CustomRate(t *testing.T) {
	p := fine.NewPolicy(decimal.RequireFromString("1.25"), time.UTC)
	require.Equal(t, "5", p.Amount(4).String())
}

func TestPolicy_CalendarDaysUntil(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	p := fine.NewPolicy(fine.DefaultRate, loc)
	now := time.Date(2024, 1, 10, 20, 0, 0, 0, loc)

	require.Equal(t, 0, p.CalendarDaysUntil(time.Date(2024, 1, 10, 23, 59, 0, 0, loc), now))
	require.Equal(t, 1, p.CalendarDaysUntil(time.Date(2024, 1, 11, 0, 30, 0, 0, loc), now))
	require.Equal(t, 2, p.CalendarDaysUntil(time.Date(2024, 1, 12, 23, 59, 0, 0, loc), now))
	require.Equal(t, -3, p.CalendarDaysUntil(time.Date(2024, 1, 7, 23, 59, 0, 0, loc), now))
	// the same instant expressed in UTC is still the 11th locally
	require.Equal(t, 1, p.CalendarDaysUntil(time.Date(2024, 1, 10, 19, 0, 0, 0, time.UTC), now))
}

func TestPolicy_DueAt(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	p := fine.NewPolicy(fine.DefaultRate, loc)
	got := p.DueAt(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2024, 1, 10, 23, 59, 0, 0, loc), got)
}
