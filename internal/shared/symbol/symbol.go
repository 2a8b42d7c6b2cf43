// Package symbol はティッカーシンボルの正規化と検証を提供します。
package symbol

import (
	"regexp"
	"strings"
)

// pattern はティッカーとして受け付ける形式です（例: AAPL, BRK.B, 7203.T, EUR/USD）。
var pattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-/^=]{0,19}$`)

// Normalize trims and upper-cases a ticker.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Valid reports whether a normalized symbol has an acceptable shape.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
