package reporting

import (
	"fmt"
	"strings"

	"github.com/birizinit/meuacessor/src/broker"
)

// Placeholders shown when a trade has no usable close timestamp.
const (
	PlaceholderDate = "--/--/----"
	PlaceholderTime = "--:--:--"
)

// TradeAmount resolves the invested value of a trade. Broker API versions
// disagreed on the field name, so this walks the known variants in order
// and falls back to zero.
func TradeAmount(t broker.Trade) float64 {
	switch {
	case t.InvestmentBRL != nil:
		return *t.InvestmentBRL
	case t.AmountBRL != nil:
		return *t.AmountBRL
	case t.Aport != nil:
		return *t.Aport
	case t.Amount != nil:
		return *t.Amount
	case t.EntryValueBRL != nil:
		return *t.EntryValueBRL
	}
	return 0
}

// TradeResult resolves the signed profit/loss of a trade through the same
// kind of fallback chain. When no explicit result field is present it
// derives one from the exit and entry values.
func TradeResult(t broker.Trade) float64 {
	switch {
	case t.ResultBRL != nil:
		return *t.ResultBRL
	case t.ProfitBRL != nil:
		return *t.ProfitBRL
	case t.PnLBRL != nil:
		return *t.PnLBRL
	case t.PnL != nil:
		return *t.PnL
	case t.Profit != nil:
		return *t.Profit
	case t.ExitValueBRL != nil && t.EntryValueBRL != nil:
		return *t.ExitValueBRL - *t.EntryValueBRL
	}
	return 0
}

// knownBases are symbol prefixes recognized when splitting concatenated
// pairs like ETHBTC.
var knownBases = []string{
	"USDT", "USDC", "BTC", "ETH", "BNB", "ADA", "SOL", "DOT", "XRP", "ECA", "ETC",
}

// FormatCurrencyPair normalizes a raw broker symbol into display form:
// BTCUSDT becomes BTC/USD, ETHBTC becomes ETH/BTC. Unrecognized symbols
// pass through unchanged.
func FormatCurrencyPair(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return symbol
	}
	if strings.Contains(s, "/") {
		return s
	}
	if strings.HasSuffix(s, "USDT") && len(s) > 4 {
		return s[:len(s)-4] + "/USD"
	}
	for _, base := range knownBases {
		if strings.HasPrefix(s, base) && len(s) > len(base) {
			return base + "/" + s[len(base):]
		}
	}
	return s
}

// Operation is one export-ready row: a trade flattened to the display
// strings the table and the CSV share.
type Operation struct {
	ID         string `json:"id"`
	Pair       string `json:"pair"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Investment string `json:"investment"`
	Result     string `json:"result"`
	Positive   bool   `json:"positive"`
}

// TradeToOperation flattens a trade. Trades without a close timestamp get
// placeholder date and time cells.
func TradeToOperation(t broker.Trade) Operation {
	op := Operation{
		ID:   t.ID,
		Pair: FormatCurrencyPair(t.Symbol),
		Date: PlaceholderDate,
		Time: PlaceholderTime,
	}
	if !t.CloseTime.IsZero() {
		closeAt := t.CloseTime.Time().Local()
		op.Date = FormatDateBR(closeAt)
		op.Time = FormatTimeBR(closeAt)
	}
	result := TradeResult(t)
	op.Investment = FormatBRL(TradeAmount(t))
	op.Result = FormatBRL(result)
	op.Positive = result > 0
	return op
}

// ResultFilter narrows an operations listing by outcome.
type ResultFilter string

const (
	ResultAll      ResultFilter = "all"
	ResultPositive ResultFilter = "positive"
	ResultNegative ResultFilter = "negative"
)

// ParseResultFilter validates an outcome selector from the query string.
// An empty value means no filtering.
func ParseResultFilter(s string) (ResultFilter, error) {
	switch ResultFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ResultAll, nil
	case ResultAll:
		return ResultAll, nil
	case ResultPositive:
		return ResultPositive, nil
	case ResultNegative:
		return ResultNegative, nil
	}
	return "", fmt.Errorf("filtro de resultado inválido: %q (esperado all, positive ou negative)", s)
}

// FilterByResult keeps trades matching the outcome filter. ResultAll and
// unknown values keep everything.
func FilterByResult(trades []broker.Trade, filter ResultFilter) []broker.Trade {
	if filter != ResultPositive && filter != ResultNegative {
		return trades
	}
	filtered := make([]broker.Trade, 0, len(trades))
	for _, t := range trades {
		result := TradeResult(t)
		if (filter == ResultPositive && result > 0) || (filter == ResultNegative && result < 0) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
