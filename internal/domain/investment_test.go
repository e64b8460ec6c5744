// internal/domain/investment_test.go
package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvestmentAccrue(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("WholeDaysOnly", func(t *testing.T) {
		inv := NewInvestment(1, decimal.NewFromInt(1000), "USDT", decimal.NewFromInt(1), 30, start)

		// 36 hours in: one settled day.
		got := inv.Accrue(start.Add(36 * time.Hour))
		assert.True(t, got.Equal(decimal.NewFromInt(10)), "got %s", got)
		assert.Equal(t, start.Add(24*time.Hour), inv.LastAccruedAt)

		// Another call inside the same day accrues nothing.
		got = inv.Accrue(start.Add(40 * time.Hour))
		assert.True(t, got.IsZero())
		assert.True(t, inv.AccumulatedProfit.Equal(decimal.NewFromInt(10)))
	})

	t.Run("CatchesUpAfterIdleStretch", func(t *testing.T) {
		inv := NewInvestment(1, decimal.NewFromInt(1000), "USDT", decimal.NewFromInt(1), 30, start)

		got := inv.Accrue(start.Add(7 * 24 * time.Hour))
		assert.True(t, got.Equal(decimal.NewFromInt(70)), "got %s", got)
	})

	t.Run("CapsAtEndDate", func(t *testing.T) {
		inv := NewInvestment(1, decimal.NewFromInt(1000), "USDT", decimal.NewFromInt(1), 10, start)

		// Far past maturity: only the 10 contracted days pay out.
		got := inv.Accrue(start.Add(100 * 24 * time.Hour))
		assert.True(t, got.Equal(decimal.NewFromInt(100)), "got %s", got)
		assert.Equal(t, inv.EndDate, inv.LastAccruedAt)

		// Fully settled: a second pass yields nothing.
		assert.True(t, inv.Accrue(start.Add(200 * 24 * time.Hour)).IsZero())
	})
}

func TestInvestmentMatured(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := NewInvestment(1, decimal.NewFromInt(1000), "USDT", decimal.NewFromInt(1), 10, start)

	assert.False(t, inv.Matured(start))
	assert.False(t, inv.Matured(inv.EndDate.Add(-time.Second)))
	assert.True(t, inv.Matured(inv.EndDate))
	assert.True(t, inv.Matured(inv.EndDate.Add(time.Hour)))
}

func TestDailyTaskStateExpired(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewDailyTaskState(1, start)
	window := 24 * time.Hour

	assert.False(t, state.Expired(start, window))
	assert.False(t, state.Expired(start.Add(window-time.Second), window))
	assert.True(t, state.Expired(start.Add(window), window))
}

func TestSpinRecordEligible(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	record := &SpinRecord{AccountID: 1, LastSpinAt: now, NextEligibleAt: now.Add(7 * 24 * time.Hour)}

	assert.False(t, record.Eligible(now))
	assert.False(t, record.Eligible(record.NextEligibleAt.Add(-time.Second)))
	assert.True(t, record.Eligible(record.NextEligibleAt))
}
