package reporting

import (
	"testing"
	"time"

	"github.com/birizinit/meuacessor/src/broker"
)

func symbolTrade(symbol string, amount, pnl float64) broker.Trade {
	return broker.Trade{
		Symbol:    symbol,
		Amount:    &amount,
		PnL:       &pnl,
		CloseTime: broker.NewFlexTime(time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)),
	}
}

func TestTopSymbolsOrderedByProfit(t *testing.T) {
	trades := []broker.Trade{
		symbolTrade("AAAUSDT", 100, 100),
		symbolTrade("BBBUSDT", 100, 300),
		symbolTrade("CCCUSDT", 100, 200),
	}

	ranked := TopSymbols(trades, 4)
	if len(ranked) != 3 {
		t.Fatalf("ranked count = %d, want 3", len(ranked))
	}
	want := []string{"BBB/USD", "CCC/USD", "AAA/USD"}
	for i, symbol := range want {
		if ranked[i].Symbol != symbol {
			t.Fatalf("rank %d = %q, want %q", i+1, ranked[i].Symbol, symbol)
		}
		if ranked[i].Rank != i+1 {
			t.Fatalf("rank field = %d, want %d", ranked[i].Rank, i+1)
		}
	}
}

func TestTopSymbolsAccumulatesPerSymbol(t *testing.T) {
	trades := []broker.Trade{
		symbolTrade("BTCUSDT", 100, 20),
		symbolTrade("BTCUSDT", 150, -5),
		symbolTrade("ETHUSDT", 50, 10),
	}

	ranked := TopSymbols(trades, 4)
	if ranked[0].Symbol != "BTC/USD" {
		t.Fatalf("rank 1 = %q, want BTC/USD", ranked[0].Symbol)
	}
	if ranked[0].Entries != 2 || ranked[0].Investment != 250 || ranked[0].Profit != 15 {
		t.Fatalf("BTC/USD = {entries:%d investment:%v profit:%v}, want {2 250 15}",
			ranked[0].Entries, ranked[0].Investment, ranked[0].Profit)
	}
}

func TestTopSymbolsSlicesToN(t *testing.T) {
	trades := []broker.Trade{
		symbolTrade("AAAUSDT", 1, 5),
		symbolTrade("BBBUSDT", 1, 4),
		symbolTrade("CCCUSDT", 1, 3),
		symbolTrade("DDDUSDT", 1, 2),
		symbolTrade("EEEUSDT", 1, 1),
	}
	ranked := TopSymbols(trades, 4)
	if len(ranked) != 4 {
		t.Fatalf("ranked count = %d, want 4", len(ranked))
	}
}

func TestTopSymbolsTieBreaksBySymbol(t *testing.T) {
	trades := []broker.Trade{
		symbolTrade("ZZZUSDT", 1, 10),
		symbolTrade("AAAUSDT", 1, 10),
	}
	ranked := TopSymbols(trades, 4)
	if ranked[0].Symbol != "AAA/USD" || ranked[1].Symbol != "ZZZ/USD" {
		t.Fatalf("tie order = [%q %q], want symbol-ascending", ranked[0].Symbol, ranked[1].Symbol)
	}
}

func TestTopSymbolsEmptyInput(t *testing.T) {
	if ranked := TopSymbols(nil, 4); len(ranked) != 0 {
		t.Fatalf("ranked count = %d, want 0 for empty input", len(ranked))
	}
}

func TestFormatCurrencyPair(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "BTC/USD"},
		{"ETHUSDT", "ETH/USD"},
		{"ETHBTC", "ETH/BTC"},
		{"SOLBRL", "SOL/BRL"},
		{"BTC/USD", "BTC/USD"},
		{"XYZABC", "XYZABC"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatCurrencyPair(tc.in); got != tc.want {
			t.Fatalf("FormatCurrencyPair(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
