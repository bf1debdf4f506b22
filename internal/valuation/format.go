package valuation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount in rupees with Indian digit grouping,
// e.g. 1234567.5 -> "₹12,34,567.50".
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	fixed := rounded.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "₹" + groupIndian(whole) + "." + frac
}

// groupIndian places the first separator after three digits from the right
// and every two digits after that.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatPercentage renders a signed percentage with two decimals.
func FormatPercentage(pct decimal.Decimal) string {
	rounded := pct.Round(2)
	sign := ""
	if !rounded.IsNegative() {
		sign = "+"
	}
	return sign + rounded.StringFixed(2) + "%"
}
