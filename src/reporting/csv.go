package reporting

import (
	"strings"

	"github.com/birizinit/meuacessor/src/security/validation"
)

// CSVFilename is the download name of the operations export.
const CSVFilename = "operacoes.csv"

// UTF8BOM prefixes the export so Excel opens it as UTF-8.
const UTF8BOM = "\ufeff"

var csvHeader = []string{"Moedas", "Data", "Hora", "Aporte", "Resultado"}

// quoteCSVField wraps a field in double quotes, doubling any embedded
// quote. Text cells are additionally guarded against formula injection.
func quoteCSVField(s string, guardFormulas bool) string {
	if guardFormulas {
		s = validation.SanitizeForFormulaInjection(s)
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// OperationsCSV serializes the export: semicolon-delimited rows, every
// field double-quoted, newline-separated, BOM-prefixed. Currency cells are
// already display-formatted, the export is a textual snapshot.
func OperationsCSV(operations []Operation) string {
	var b strings.Builder
	b.WriteString(UTF8BOM)

	header := make([]string, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = quoteCSVField(h, false)
	}
	b.WriteString(strings.Join(header, ";"))

	for _, op := range operations {
		row := []string{
			quoteCSVField(op.Pair, true),
			quoteCSVField(op.Date, false),
			quoteCSVField(op.Time, false),
			quoteCSVField(op.Investment, false),
			quoteCSVField(op.Result, false),
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, ";"))
	}
	return b.String()
}
