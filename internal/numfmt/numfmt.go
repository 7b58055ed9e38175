// Package numfmt parses the abbreviated counts the site renders
// ("1.2K followers", "3,456", "1.8M") into exact integers.
package numfmt

import (
	"strings"

	"github.com/shopspring/decimal"
)

var suffixes = map[byte]int64{
	'K': 1_000,
	'M': 1_000_000,
	'B': 1_000_000_000,
}

// ParseCount converts a rendered count into an integer. Abbreviated values
// are scaled with decimal arithmetic so "1.2K" is exactly 1200, never 1199.
// Returns ok=false for text that carries no leading number.
func ParseCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Keep the leading numeric run; the site appends labels ("1.2K Followers").
	end := 0
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || c == '.' || c == ',' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	num := strings.ReplaceAll(s[:end], ",", "")

	scale := int64(1)
	if end < len(s) {
		if mul, ok := suffixes[upper(s[end])]; ok {
			scale = mul
		}
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, false
	}
	return d.Mul(decimal.NewFromInt(scale)).IntPart(), true
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
