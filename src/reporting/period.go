// Package reporting implements the trade aggregation pipeline behind the
// dashboard: period resolution, window filtering, dense bucketing, symbol
// ranking and the pt-BR CSV export.
package reporting

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMonth is returned when a month selector does not match any
// pt-BR month name or abbreviation.
var ErrUnknownMonth = errors.New("mês inválido")

// Period selects the reporting granularity. It drives both the date-range
// resolution and the bucket shape.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period selector from the query string.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodToday:
		return PeriodToday, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", fmt.Errorf("período inválido: %q (esperado today, week ou month)", s)
}

// DateRange is an inclusive window. Start sits at the first instant of its
// day and End at the last nanosecond of its day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Resolve maps a period and a reference instant to the concrete window.
//   - today: the reference date, midnight to last instant.
//   - week: Monday of the ISO week containing the reference through Sunday.
//   - month: first through last calendar day of the reference month.
func Resolve(period Period, reference time.Time) DateRange {
	switch period {
	case PeriodToday:
		return DateRange{Start: startOfDay(reference), End: endOfDay(reference)}
	case PeriodWeek:
		// Monday start. time.Weekday has Sunday = 0.
		offset := (int(reference.Weekday()) + 6) % 7
		monday := startOfDay(reference.AddDate(0, 0, -offset))
		return DateRange{Start: monday, End: endOfDay(monday.AddDate(0, 0, 6))}
	case PeriodMonth:
		return MonthRangeOf(reference.Year(), reference.Month(), reference.Location())
	}
	// Unknown period values never reach here when ParsePeriod gates input.
	return DateRange{Start: startOfDay(reference), End: endOfDay(reference)}
}

// MonthRangeOf builds the inclusive window covering one calendar month.
// The last day comes from day zero of the following month, which also
// handles leap Februaries.
func MonthRangeOf(year int, month time.Month, loc *time.Location) DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	return DateRange{Start: first, End: endOfDay(last)}
}

// MonthRange resolves a pt-BR month name ("Janeiro".."Dezembro", case
// insensitive) plus a year into its calendar window.
func MonthRange(monthName string, year int, loc *time.Location) (DateRange, error) {
	month, err := ParseMonthName(monthName)
	if err != nil {
		return DateRange{}, err
	}
	return MonthRangeOf(year, month, loc), nil
}

// DaysIn returns the number of calendar days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

var monthAbbrevs = [...]string{
	"jan", "fev", "mar", "abr", "mai", "jun",
	"jul", "ago", "set", "out", "nov", "dez",
}

// MonthName returns the pt-BR name of a month.
func MonthName(month time.Month) string {
	if month < time.January || month > time.December {
		return ""
	}
	return monthNames[month-1]
}

// MonthAbbrev returns the three-letter pt-BR abbreviation of a month.
// Out-of-range values fall back to "ago".
func MonthAbbrev(month time.Month) string {
	if month < time.January || month > time.December {
		return "ago"
	}
	return monthAbbrevs[month-1]
}

// ParseMonthName resolves a pt-BR month name or abbreviation.
func ParseMonthName(name string) (time.Month, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, full := range monthNames {
		if strings.ToLower(full) == needle || monthAbbrevs[i] == needle {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, name)
}

// StepMonth moves a month/year pair by delta months, adjusting the year at
// the January/December boundaries.
func StepMonth(year int, month time.Month, delta int) (int, time.Month) {
	idx := year*12 + int(month) - 1 + delta
	return idx / 12, time.Month(idx%12 + 1)
}

// FormatDateBR renders dd/mm/yyyy, the display form used across the
// dashboard and the CSV export.
func FormatDateBR(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatTimeBR renders HH:MM:SS.
func FormatTimeBR(t time.Time) string {
	return t.Format("15:04:05")
}
