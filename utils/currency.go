package utils

import (
	"strconv"
	"strings"
)

// FormatCurrencyINR formats a whole-rupee amount with Indian digit grouping.
// Example: 1234567 -> "Rs 12,34,567"
func FormatCurrencyINR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= 3 {
		return "Rs " + sign + digits
	}

	// Last three digits form one group, the rest are grouped in pairs.
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return "Rs " + sign + strings.Join(groups, ",") + "," + tail
}
