// Package schedule decides, per deduction and target invoice period,
// whether the deduction falls due. It is pure: callers load state, the
// package only compares dates and balances.
package schedule

import (
	"time"

	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
)

// ShouldApply reports whether a deduction is due for the invoice ending
// on targetWeekEnding, given the period its most recent application
// covered (nil if none). All comparisons are date-only; time-of-day
// never matters.
//
// A recorded $0 skip advances the schedule exactly like a paid
// application: the next due date is computed from the skipped period,
// not from the last paid one. The exception is ONCE deductions, where a
// skip leaves the single opportunity open.
func ShouldApply(d deductiondomain.Deduction, targetWeekEnding time.Time, last *deductiondomain.AppliedPeriod) bool {
	if d.Status != deductiondomain.StatusActive {
		return false
	}
	if d.AmountRemaining.Sign() <= 0 {
		return false
	}

	target := dateOnly(targetWeekEnding)
	if dateOnly(d.StartDate).After(target) {
		return false
	}

	if d.Frequency == deductiondomain.FrequencyOnce {
		return last == nil || last.IsSkip()
	}

	if last == nil {
		return true
	}

	next := nextDue(d.Frequency, dateOnly(last.WeekEnding))
	return !target.Before(next)
}

func nextDue(freq deductiondomain.Frequency, lastApplied time.Time) time.Time {
	switch freq {
	case deductiondomain.FrequencyWeekly:
		return lastApplied.AddDate(0, 0, 7)
	case deductiondomain.FrequencyFortnightly:
		return lastApplied.AddDate(0, 0, 14)
	case deductiondomain.FrequencyMonthly:
		return lastApplied.AddDate(0, 1, 0)
	default:
		return lastApplied
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
