package services

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	cases := map[string]Period{
		"daily": PeriodDaily, "today": PeriodDaily, "TODAY": PeriodDaily,
		"weekly": PeriodWeekly, "week": PeriodWeekly,
		"monthly": PeriodMonthly, "month": PeriodMonthly,
		"all": PeriodAll, "": PeriodAll, "yearly": PeriodAll,
	}
	for in, want := range cases {
		if got := ParsePeriod(in); got != want {
			t.Fatalf("ParsePeriod(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPeriodStart(t *testing.T) {
	// Thursday.
	now := time.Date(2024, 5, 16, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		p    Period
		want time.Time
	}{
		{PeriodDaily, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)},
		{PeriodWeekly, time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)},
		{PeriodMonthly, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, ok := c.p.Start(now, time.UTC)
		if !ok || !got.Equal(c.want) {
			t.Fatalf("%s start = %s (ok=%v), want %s", c.p, got, ok, c.want)
		}
	}
	if _, ok := PeriodAll.Start(now, time.UTC); ok {
		t.Fatalf("all time should have no start")
	}
}

func TestPeriodStartUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 16th is still the 15th at UTC-5.
	now := time.Date(2024, 5, 16, 2, 0, 0, 0, time.UTC)

	got, _ := PeriodDaily.Start(now, loc)
	want := time.Date(2024, 5, 15, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("daily start = %s, want %s", got, want)
	}
}

func TestWeekStartsOnSunday(t *testing.T) {
	sunday := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)
	got, _ := PeriodWeekly.Start(sunday, time.UTC)
	if !got.Equal(time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week start on a Sunday = %s", got)
	}
}
