package utils

import (
	"strconv"
	"strings"
)

// FormatRupees formats whole rupees with Indian digit grouping, e.g. ₹1,25,000
func FormatRupees(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "₹" + groupIndian(strconv.FormatInt(amount, 10))
}

// groupIndian puts a comma after the last three digits and then after every two
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var formatted strings.Builder
	for i, c := range head {
		if i > 0 && (len(head)-i)%2 == 0 {
			formatted.WriteRune(',')
		}
		formatted.WriteRune(c)
	}
	formatted.WriteRune(',')
	formatted.WriteString(tail)
	return formatted.String()
}
