package utils

import (
	"strconv"
	"strings"
)

// FormatCurrencyIDR formats whole rupiah with thousand separators.
// Example: 1500000 -> "Rp 1.500.000", -2500 -> "-Rp 2.500"
func FormatCurrencyIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	// panjang grup pertama bisa 1-3 digit
	first := len(digits) % 3
	if first == 0 {
		first = 3
	}
	b.WriteString(digits[:first])
	for i := first; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return sign + "Rp " + b.String()
}
