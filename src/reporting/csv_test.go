package reporting

import (
	"strings"
	"testing"
)

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{100, "R$ 100,00"},
		{1234.56, "R$ 1.234,56"},
		{1234567.8, "R$ 1.234.567,80"},
		{-42.5, "-R$ 42,50"},
		{0.999, "R$ 1,00"},
		{0.05, "R$ 0,05"},
	}
	for _, tc := range cases {
		if got := FormatBRL(tc.in); got != tc.want {
			t.Fatalf("FormatBRL(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestOperationsCSVStructure(t *testing.T) {
	out := OperationsCSV([]Operation{
		{
			Pair:       "BTC/USD",
			Date:       "10/06/2024",
			Time:       "14:05:30",
			Investment: FormatBRL(100),
			Result:     FormatBRL(25.5),
		},
	})

	if !strings.HasPrefix(out, UTF8BOM) {
		t.Fatal("export must start with the UTF-8 BOM")
	}

	lines := strings.Split(strings.TrimPrefix(out, UTF8BOM), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d, want header plus one row", len(lines))
	}
	if lines[0] != `"Moedas";"Data";"Hora";"Aporte";"Resultado"` {
		t.Fatalf("header = %q", lines[0])
	}
	wantRow := `"BTC/USD";"10/06/2024";"14:05:30";"R$` + " " + `100,00";"R$` + " " + `25,50"`
	if lines[1] != wantRow {
		t.Fatalf("row = %q, want %q", lines[1], wantRow)
	}
}

func TestOperationsCSVEscapesQuotes(t *testing.T) {
	out := OperationsCSV([]Operation{{Pair: `A"B`, Date: "d", Time: "t", Investment: "i", Result: "r"}})
	if !strings.Contains(out, `"A""B"`) {
		t.Fatalf("embedded quote not doubled: %q", out)
	}
}

func TestOperationsCSVGuardsFormulasInTextCells(t *testing.T) {
	out := OperationsCSV([]Operation{{Pair: "=SUM(A1)", Date: "d", Time: "t", Investment: "i", Result: "r"}})
	if !strings.Contains(out, `"'=SUM(A1)"`) {
		t.Fatalf("formula cell not guarded: %q", out)
	}
}

func TestOperationsCSVEmpty(t *testing.T) {
	out := OperationsCSV(nil)
	if out != UTF8BOM+`"Moedas";"Data";"Hora";"Aporte";"Resultado"` {
		t.Fatalf("empty export = %q", out)
	}
}
