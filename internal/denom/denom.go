// Package denom converts counted cash denominations into a monetary
// total. Drawer open and drawer close both go through Total so the two
// sides of a reconciliation can never disagree on rounding.
package denom

import (
	"fmt"
	"strings"
)

// Total sums count × face value over a denomination count map and
// returns the amount in cents. Keys look like "bills_100" or
// "coins_025". An empty or nil map totals zero.
func Total(counts map[string]int) (int64, error) {
	var total int64
	for key, count := range counts {
		if count < 0 {
			return 0, fmt.Errorf("negative count for %s", key)
		}
		face, err := FaceValueCents(key)
		if err != nil {
			return 0, err
		}
		total += int64(count) * face
	}
	return total, nil
}

// FaceValueCents parses a denomination key into its face value in
// cents. The code after the bills_/coins_ prefix encodes dollars,
// except codes with a leading zero which encode cents directly
// ("050" → 50¢, "025" → 25¢, "001" → 1¢).
func FaceValueCents(key string) (int64, error) {
	code := strings.TrimPrefix(strings.TrimPrefix(key, "bills_"), "coins_")
	if code == key {
		return 0, fmt.Errorf("unknown denomination key %q", key)
	}
	if code == "" {
		return 0, fmt.Errorf("empty denomination code in %q", key)
	}

	var value int64
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed denomination code in %q", key)
		}
		value = value*10 + int64(r-'0')
	}

	if code[0] == '0' {
		// Fractional encoding: digits are cents.
		return value, nil
	}
	return value * 100, nil
}
