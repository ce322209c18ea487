package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRate = decimal.RequireFromString("0.1")
	testCap  = decimal.RequireFromString("2.4")
)

func TestAvailableDeterminism(t *testing.T) {
	now := time.Now()
	last := now.Add(-7 * time.Hour)

	first := Available(last, now, testRate, testCap, 1)
	for i := 0; i < 10; i++ {
		again := Available(last, now, testRate, testCap, 1)
		assert.True(t, first.Amount.Equal(again.Amount))
		assert.Equal(t, first.HoursElapsed, again.HoursElapsed)
		assert.Equal(t, first.CanClaim, again.CanClaim)
		assert.Equal(t, first.NextEligibleInHours, again.NextEligibleInHours)
	}
}

func TestAvailableMonotonicity(t *testing.T) {
	last := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var prevHours int64
	prevAmount := decimal.Zero
	for minutes := 0; minutes <= 48*60; minutes += 17 {
		now := last.Add(time.Duration(minutes) * time.Minute)
		result := Available(last, now, testRate, testCap, 1)

		require.GreaterOrEqual(t, result.HoursElapsed, prevHours)
		require.True(t, result.Amount.GreaterThanOrEqual(prevAmount),
			"amount decreased at %d minutes", minutes)

		prevHours = result.HoursElapsed
		prevAmount = result.Amount
	}
}

func TestAvailableCapEnforcement(t *testing.T) {
	last := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	expected := decimal.RequireFromString("2.40")

	for _, hours := range []int64{24, 25, 48, 1000} {
		now := last.Add(time.Duration(hours) * time.Hour)
		result := Available(last, now, testRate, testCap, 1)
		assert.True(t, expected.Equal(result.Amount), "hours=%d amount=%s", hours, result.Amount)
	}
}

func TestAvailableIntervalGate(t *testing.T) {
	last := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, hours := range []int64{0, 1, 2, 3} {
		now := last.Add(time.Duration(hours) * time.Hour)
		result := Available(last, now, testRate, testCap, 4)

		assert.False(t, result.CanClaim)
		assert.True(t, result.Amount.IsZero())
		assert.Equal(t, 4-hours, result.NextEligibleInHours)
	}
}

func TestAvailableDormantAccountScenario(t *testing.T) {
	// 25 hours dormant: hours floor to 25, accrual backstops at 24.
	now := time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC)
	last := now.Add(-25 * time.Hour)

	result := Available(last, now, testRate, testCap, 1)

	assert.Equal(t, int64(25), result.HoursElapsed)
	assert.True(t, result.CanClaim)
	assert.Equal(t, "2.40", result.Amount.StringFixed(2))
}

func TestAvailableHalfHourFloorsToZero(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Minute)

	result := Available(last, now, testRate, testCap, 1)

	assert.Equal(t, int64(0), result.HoursElapsed)
	assert.False(t, result.CanClaim)
	assert.True(t, result.Amount.IsZero())
	assert.Equal(t, int64(1), result.NextEligibleInHours)
}

func TestAvailableFutureLastClaim(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	result := Available(now.Add(time.Hour), now, testRate, testCap, 1)

	assert.Equal(t, int64(0), result.HoursElapsed)
	assert.False(t, result.CanClaim)
}

func TestAvailableRoundsFinalAmountOnly(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-3 * time.Hour)

	// 3 * 0.333 = 0.999 rounds to 1.00 only at the end.
	rate := decimal.RequireFromString("0.333")
	cap := decimal.RequireFromString("10")
	result := Available(last, now, rate, cap, 1)

	assert.Equal(t, "1.00", result.Amount.StringFixed(2))
}
