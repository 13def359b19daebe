package utils

import (
	"fmt"
	"strings"

	"github.com/yeremiapane/fuji-pos/pricing"
)

// FormatCurrency renders an amount as $1,234.56.
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	formatted := fmt.Sprintf("%.2f", pricing.Round2(amount))
	parts := strings.Split(formatted, ".")
	integerPart := parts[0]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}
	return sign + "$" + strings.Join(groups, ",") + "." + parts[1]
}
