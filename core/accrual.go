package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccrualBackstopHours bounds back-accrual for dormant accounts: no matter
// how long since the last claim, at most a 24-hour window accrues.
const AccrualBackstopHours = 24

// AccrualResult is the outcome of the reward accrual computation.
type AccrualResult struct {
	Amount              decimal.Decimal
	HoursElapsed        int64
	CanClaim            bool
	NextEligibleInHours int64
}

// Available computes the claimable reward for the elapsed time between
// lastClaim and now under the pool's rate, cap and minimum-interval rules.
//
// This is the single source of truth for both the read-only preview and the
// committed claim amount. It is pure and deterministic: elapsed hours are
// floored so repeated reads within the same hour are idempotent, and the
// only rounding (to 2 decimals) happens on the final amount.
func Available(lastClaim, now time.Time, ratePerHour, capPerWindow decimal.Decimal, minIntervalHours int64) AccrualResult {
	var hours int64
	if now.After(lastClaim) {
		hours = int64(now.Sub(lastClaim) / time.Hour)
	}

	if hours < minIntervalHours {
		next := minIntervalHours - hours
		if next < 0 {
			next = 0
		}
		return AccrualResult{
			Amount:              decimal.Zero,
			HoursElapsed:        hours,
			CanClaim:            false,
			NextEligibleInHours: next,
		}
	}

	capped := hours
	if capped > AccrualBackstopHours {
		capped = AccrualBackstopHours
	}

	amount := decimal.NewFromInt(capped).Mul(ratePerHour)
	if amount.GreaterThan(capPerWindow) {
		amount = capPerWindow
	}

	return AccrualResult{
		Amount:       amount.Round(2),
		HoursElapsed: hours,
		CanClaim:     true,
	}
}
