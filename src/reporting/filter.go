package reporting

import (
	"github.com/birizinit/meuacessor/src/broker"
)

// FilterByRange keeps trades whose close time falls inside the window,
// inclusive on both ends. The close time is the canonical timestamp for
// period-bucketed reporting; trades without one are dropped.
func FilterByRange(trades []broker.Trade, window DateRange) []broker.Trade {
	filtered := make([]broker.Trade, 0, len(trades))
	for _, t := range trades {
		if t.CloseTime.IsZero() {
			continue
		}
		if window.Contains(t.CloseTime.Time()) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
