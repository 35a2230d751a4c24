package domain

import (
	"strconv"
	"strings"
)

// ParseQuantity turns raw user input into a quantity. Leading whitespace and
// an optional sign are accepted, followed by the longest run of decimal
// digits; anything after the digits is ignored. Input without digits,
// negative values and values that overflow int all yield 0.
func ParseQuantity(raw string) int {
	s := strings.TrimSpace(raw)

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || negative {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
