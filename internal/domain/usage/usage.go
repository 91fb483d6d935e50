// Package usage describes LLM token consumption over a calendar period.
package usage

import (
	"fmt"
	"time"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants. Periods are UTC calendar days and months.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates s. Empty input yields PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Bounds returns the [start, end) window of the period containing t.
func (p Period) Bounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is the token budget state for one period. A zero Limit means
// unlimited, in which case Remaining is -1.
type Report struct {
	Period    Period
	Start     time.Time
	End       time.Time
	Limit     int64
	Used      int64
	Remaining int64
}

// Exhausted reports whether a finite budget has no tokens left.
func (r Report) Exhausted() bool {
	return r.Limit > 0 && r.Remaining <= 0
}

// Unlimited reports whether the period has no cap.
func (r Report) Unlimited() bool { return r.Limit == 0 }

// Periods lists every budget period, shortest first.
var Periods = []Period{PeriodDay, PeriodMonth}

// Label names the period containing t, such as "2026-10-17" or "2026-10".
func (p Period) Label(t time.Time) string {
	start, _ := p.Bounds(t)
	if p == PeriodMonth {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}
