package reporting

import (
	"testing"
	"time"
)

func TestResolveToday(t *testing.T) {
	ref := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)
	window := Resolve(PeriodToday, ref)

	wantStart := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !window.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", window.Start, wantStart)
	}
	if window.End.Day() != 15 || window.End.Hour() != 23 || window.End.Minute() != 59 {
		t.Fatalf("end = %v, want last instant of the 15th", window.End)
	}
}

func TestResolveWeekStartsMonday(t *testing.T) {
	// 2024-03-15 is a Friday; its ISO week runs Mon 11th through Sun 17th.
	ref := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	window := Resolve(PeriodWeek, ref)

	if window.Start.Weekday() != time.Monday || window.Start.Day() != 11 {
		t.Fatalf("start = %v, want Monday the 11th", window.Start)
	}
	if window.End.Weekday() != time.Sunday || window.End.Day() != 17 {
		t.Fatalf("end = %v, want Sunday the 17th", window.End)
	}
}

func TestResolveWeekOnMonday(t *testing.T) {
	ref := time.Date(2024, time.March, 11, 0, 30, 0, 0, time.UTC)
	window := Resolve(PeriodWeek, ref)
	if window.Start.Day() != 11 {
		t.Fatalf("start = %v, want the reference Monday itself", window.Start)
	}
}

func TestResolveWeekOnSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	ref := time.Date(2024, time.March, 17, 22, 0, 0, 0, time.UTC)
	window := Resolve(PeriodWeek, ref)
	if window.Start.Day() != 11 {
		t.Fatalf("start = %v, want Monday the 11th", window.Start)
	}
}

func TestMonthRangeLeapFebruary(t *testing.T) {
	window, err := MonthRange("Fevereiro", 2024, time.UTC)
	if err != nil {
		t.Fatalf("MonthRange: %v", err)
	}
	if window.End.Day() != 29 {
		t.Fatalf("end day = %d, want 29 (leap year)", window.End.Day())
	}

	window, err = MonthRange("Fevereiro", 2023, time.UTC)
	if err != nil {
		t.Fatalf("MonthRange: %v", err)
	}
	if window.End.Day() != 28 {
		t.Fatalf("end day = %d, want 28", window.End.Day())
	}
}

func TestMonthRangeRejectsUnknownMonth(t *testing.T) {
	if _, err := MonthRange("Smarch", 2024, time.UTC); err == nil {
		t.Fatal("expected error for unknown month name")
	}
}

func TestStepMonthRollsYear(t *testing.T) {
	year, month := StepMonth(2024, time.January, -1)
	if year != 2023 || month != time.December {
		t.Fatalf("step back from Jan 2024 = %v %d, want December 2023", month, year)
	}
	year, month = StepMonth(2024, time.December, 1)
	if year != 2025 || month != time.January {
		t.Fatalf("step forward from Dec 2024 = %v %d, want January 2025", month, year)
	}
}

func TestContainsInclusiveBounds(t *testing.T) {
	window := Resolve(PeriodToday, time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	if !window.Contains(window.Start) {
		t.Fatal("window must include its start instant")
	}
	if !window.Contains(window.End) {
		t.Fatal("window must include its end instant")
	}
	if window.Contains(window.End.Add(time.Nanosecond)) {
		t.Fatal("window must exclude the next day's first instant")
	}
}

func TestParsePeriod(t *testing.T) {
	for _, valid := range []string{"today", "Week", " MONTH "} {
		if _, err := ParsePeriod(valid); err != nil {
			t.Fatalf("ParsePeriod(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParsePeriod("year"); err == nil {
		t.Fatal("expected error for unsupported period")
	}
}

func TestMonthAbbrevFallback(t *testing.T) {
	if got := MonthAbbrev(time.Month(0)); got != "ago" {
		t.Fatalf("out-of-range abbrev = %q, want \"ago\"", got)
	}
	if got := MonthAbbrev(time.September); got != "set" {
		t.Fatalf("September abbrev = %q, want \"set\"", got)
	}
}
