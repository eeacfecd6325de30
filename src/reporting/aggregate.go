package reporting

import (
	"math"
	"strconv"
	"time"

	"github.com/birizinit/meuacessor/src/broker"
)

// Bucket is one fixed time slice of the chart series. Gain accumulates
// positive results, Loss accumulates the absolute value of non-positive
// results.
type Bucket struct {
	Label string  `json:"label"`
	Gain  float64 `json:"gain"`
	Loss  float64 `json:"loss"`
}

// Summary is the full aggregation output for one period window.
type Summary struct {
	Period          Period   `json:"period"`
	Buckets         []Bucket `json:"buckets"`
	TotalProfit     float64  `json:"totalProfit"`
	TotalInvestment float64  `json:"totalInvestment"`
	Percentage      float64  `json:"percentage"`
	TradeCount      int      `json:"tradeCount"`
}

// weekdayLabels are the pt-BR weekday abbreviations, Sunday first to match
// the fixed Sun..Sat bucket order of the weekly chart.
var weekdayLabels = [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}

// Aggregate groups filtered trades into the dense bucket sequence for the
// period. The output length is fixed per period: one bucket per calendar
// day for month, seven weekday buckets for week, twenty-four hour buckets
// for today. Buckets with no trades carry zero values.
//
// Trades are assumed pre-filtered to the window; each lands in exactly one
// bucket keyed by its close time.
func Aggregate(period Period, window DateRange, trades []broker.Trade) Summary {
	summary := Summary{Period: period, TradeCount: len(trades)}

	var bucketCount int
	var indexOf func(t time.Time) int
	var labelOf func(i int) string

	switch period {
	case PeriodMonth:
		bucketCount = DaysIn(window.Start.Year(), window.Start.Month())
		indexOf = func(t time.Time) int { return t.Day() - 1 }
		labelOf = func(i int) string { return strconv.Itoa(i + 1) }
	case PeriodWeek:
		bucketCount = 7
		indexOf = func(t time.Time) int { return int(t.Weekday()) }
		labelOf = func(i int) string { return weekdayLabels[i] }
	default: // PeriodToday
		bucketCount = 24
		indexOf = func(t time.Time) int { return t.Hour() }
		labelOf = func(i int) string { return strconv.Itoa(i) + "h" }
	}

	buckets := make([]Bucket, bucketCount)
	for i := range buckets {
		buckets[i].Label = labelOf(i)
	}

	loc := window.Start.Location()
	for _, t := range trades {
		result := TradeResult(t)
		summary.TotalProfit += result
		summary.TotalInvestment += TradeAmount(t)

		idx := indexOf(t.CloseTime.Time().In(loc))
		if idx < 0 || idx >= bucketCount {
			continue
		}
		if result > 0 {
			buckets[idx].Gain += result
		} else {
			buckets[idx].Loss += math.Abs(result)
		}
	}

	if summary.TotalInvestment > 0 {
		summary.Percentage = summary.TotalProfit / summary.TotalInvestment * 100
	}

	summary.Buckets = buckets
	return summary
}
