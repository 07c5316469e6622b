package usage

import (
	"time"

	"github.com/yuxishi/aiusage/internal/model"
)

// RateLevel buckets a usage rate by severity.
type RateLevel string

const (
	RateGreen  RateLevel = "green"
	RateYellow RateLevel = "yellow"
	RateRed    RateLevel = "red"
)

const (
	rateYellowThreshold = 1.0
	rateRedThreshold    = 1.5

	// A rate is only projected once 5% of the period (capped at 2h) elapsed.
	minElapsedDivisor = 20
	maxMinElapsed     = 2 * time.Hour
)

// CalculateUsageRate returns the pace of consumption relative to a linear
// burn that would exhaust the window exactly at reset: 1.0 is on track,
// above 1.0 is too fast. ok is false when there is no basis for a rate
// (unknown reset, or too little of the period has elapsed). A zero or
// negative period yields (0, true).
func CalculateUsageRate(utilization float64, resetsAt *time.Time, period time.Duration, now time.Time) (rate float64, ok bool) {
	if resetsAt == nil {
		return 0, false
	}
	if period <= 0 {
		return 0, true
	}

	elapsed := now.Sub(resetsAt.Add(-period))
	if elapsed <= 0 || elapsed < min(period/minElapsedDivisor, maxMinElapsed) {
		return 0, false
	}

	elapsedPercent := float64(elapsed) / float64(period) * 100
	return utilization / elapsedPercent, true
}

// WindowRate is CalculateUsageRate applied to a window.
func WindowRate(w model.UsageWindow, now time.Time) (float64, bool) {
	return CalculateUsageRate(w.Utilization, w.ResetsAt, w.PeriodDuration, now)
}

// ClassifyUsageRate maps a rate to green (<= 1.0), yellow (<= 1.5) or red.
func ClassifyUsageRate(rate float64) RateLevel {
	switch {
	case rate <= rateYellowThreshold:
		return RateGreen
	case rate <= rateRedThreshold:
		return RateYellow
	default:
		return RateRed
	}
}
