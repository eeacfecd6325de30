package reporting

import (
	"sort"

	"github.com/birizinit/meuacessor/src/broker"
)

// DefaultRankingSize is the number of symbols shown on the dashboard card.
const DefaultRankingSize = 4

// RankedSymbolStat is one row of the top-symbols card.
type RankedSymbolStat struct {
	Rank       int     `json:"rank"`
	Symbol     string  `json:"symbol"`
	Entries    int     `json:"entries"`
	Investment float64 `json:"investment"`
	Profit     float64 `json:"profit"`
}

// TopSymbols groups trades by normalized symbol, accumulates entries,
// investment and profit per symbol, and returns the n most profitable.
// Ties break by symbol name ascending so the ranking is stable across
// refetches. An empty trade list yields an empty slice.
func TopSymbols(trades []broker.Trade, n int) []RankedSymbolStat {
	if n <= 0 {
		n = DefaultRankingSize
	}

	bySymbol := make(map[string]*RankedSymbolStat)
	for _, t := range trades {
		symbol := FormatCurrencyPair(t.Symbol)
		stat, ok := bySymbol[symbol]
		if !ok {
			stat = &RankedSymbolStat{Symbol: symbol}
			bySymbol[symbol] = stat
		}
		stat.Entries++
		stat.Investment += TradeAmount(t)
		stat.Profit += TradeResult(t)
	}

	ranked := make([]RankedSymbolStat, 0, len(bySymbol))
	for _, stat := range bySymbol {
		ranked = append(ranked, *stat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Profit != ranked[j].Profit {
			return ranked[i].Profit > ranked[j].Profit
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
