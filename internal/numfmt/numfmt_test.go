package numfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1.2K", 1200, true},
		{"1.2k", 1200, true},
		{"3.4M", 3_400_000, true},
		{"2B", 2_000_000_000, true},
		{"3,456", 3456, true},
		{"987", 987, true},
		{"1.2K Followers", 1200, true},
		{" 42 ", 42, true},
		{"0", 0, true},
		{"", 0, false},
		{"Followers", 0, false},
		{"K", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}
