package reporting

import (
	"math"
	"strconv"
	"strings"
)

// FormatBRL renders a value the way pt-BR currency formatting does:
// "R$" plus a non-breaking space, dot thousands separators and a comma
// decimal separator, always two decimals. Negative values carry a leading
// minus: -R$ 1.234,56.
func FormatBRL(value float64) string {
	negative := math.Signbit(value) && value != 0
	abs := math.Abs(value)

	// Round to cents first so 0.999 groups as 1,00.
	cents := math.Round(abs * 100)
	intPart := int64(cents) / 100
	fracPart := int64(cents) % 100

	digits := strconv.FormatInt(intPart, 10)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(d)
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString("R$ ")
	b.WriteString(grouped.String())
	b.WriteByte(',')
	if fracPart < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(fracPart, 10))
	return b.String()
}
