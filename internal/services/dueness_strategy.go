package services

// Allowance dueness is decided by one strategy per frequency. Every strategy
// only fires on the configured weekday.

import (
	"fmt"
	"time"

	"pocketmoney/internal/core"
)

// DuenessChecker decides whether an allowance should be paid at now.
type DuenessChecker interface {
	IsDue(lastPaid, now time.Time, weekday time.Weekday) bool
}

// WeeklyChecker pays on the weekday when nothing was paid in the last 6 days.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastPaid, now time.Time, weekday time.Weekday) bool {
	if now.Weekday() != weekday {
		return false
	}
	if lastPaid.IsZero() {
		return true
	}
	return now.Sub(lastPaid) >= 6*24*time.Hour
}

// MonthlyChecker pays on the first matching weekday of each month.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastPaid, now time.Time, weekday time.Weekday) bool {
	if now.Weekday() != weekday {
		return false
	}
	if lastPaid.IsZero() {
		return true
	}
	return lastPaid.Year() != now.Year() || lastPaid.Month() != now.Month()
}

// DuenessStrategies maps each frequency to its checker.
type DuenessStrategies map[core.Frequency]DuenessChecker

// DefaultDuenessStrategies returns a fresh map with the weekly and monthly
// checkers.
func DefaultDuenessStrategies() DuenessStrategies {
	return DuenessStrategies{
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
	}
}

// Get returns the checker for a frequency.
func (s DuenessStrategies) Get(frequency core.Frequency) (DuenessChecker, error) {
	checker, ok := s[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return checker, nil
}
