package services

import (
	"strings"
	"time"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAll     Period = "all"
)

// ParsePeriod accepts both naming families (daily/today, weekly/week,
// monthly/month). Anything else means all time.
func ParsePeriod(raw string) Period {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily", "today":
		return PeriodDaily
	case "weekly", "week":
		return PeriodWeekly
	case "monthly", "month":
		return PeriodMonthly
	default:
		return PeriodAll
	}
}

// Start returns the inclusive lower bound of the period containing now, in
// UTC. Weeks start on Sunday. ok is false for PeriodAll.
func (p Period) Start(now time.Time, loc *time.Location) (start time.Time, ok bool) {
	local := now.In(loc)
	y, m, d := local.Date()
	switch p {
	case PeriodDaily:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodWeekly:
		start = time.Date(y, m, d-int(local.Weekday()), 0, 0, 0, 0, loc)
	case PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}, false
	}
	return start.UTC(), true
}
