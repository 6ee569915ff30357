package export

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPEN formats an amount in soles with comma thousands separators and
// two decimals, e.g. S/ 1,234.56.
func FormatPEN(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	raw := amount.Abs().StringFixed(2)

	parts := strings.SplitN(raw, ".", 2)
	result := "S/ " + groupThousands(parts[0]) + "." + parts[1]
	if negative && !amount.Round(2).IsZero() {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
