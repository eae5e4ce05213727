package domain

import (
	"strings"
	"unicode"
)

// Multiplier prefixes venues use for rebased low-price assets, e.g.
// "1000BONK" on Bybit, "1MBONK" on Drift, "kPEPE" on Hyperliquid.
var rebasePrefixes = []string{"1000000", "100000", "10000", "1000", "1M"}

// UnifiedSymbol builds the unified instrument identifier, e.g.
// UnifiedSymbol("BTC", "USDT", "USDT") -> "BTC/USDT:USDT".
func UnifiedSymbol(base, quote, settle string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote) + ":" + strings.ToUpper(settle)
}

// NormalizeSymbol reduces a unified or native instrument identifier to its
// base asset so instruments can be matched across venues: "BTC/USDT:USDT",
// "BTCUSDT" quote-suffixed forms, and rebased variants like "1000BONK" or
// "kPEPE" all map to the plain uppercase base.
//
// Rebased variants are matched against the plain asset without rescaling
// rates or prices. Funding rates are percentages of notional so they
// compare directly; mark prices of rebased contracts will show a large
// price spread and be filtered, which is the safe failure mode.
func NormalizeSymbol(symbol string) string {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return ""
	}

	// Drop "/QUOTE:SETTLE" or ":SETTLE" decorations.
	if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}

	// Hyperliquid-style "k" multiplier: lowercase k followed by the
	// uppercase asset. Checked before uppercasing so "KAVA" survives.
	if len(s) > 1 && s[0] == 'k' && isUpper(s[1:]) {
		s = s[1:]
	}

	s = strings.ToUpper(s)

	// Strip a quote suffix from concatenated native ids like "BTCUSDT".
	for _, quote := range []string{"USDT", "USDC", "USD"} {
		if len(s) > len(quote) && strings.HasSuffix(s, quote) {
			s = strings.TrimSuffix(s, quote)
			break
		}
	}
	s = strings.TrimSuffix(s, "_")
	s = strings.TrimSuffix(s, "-")

	for _, prefix := range rebasePrefixes {
		if len(s) > len(prefix) && strings.HasPrefix(s, prefix) {
			rest := s[len(prefix):]
			if rest != "" && unicode.IsLetter(rune(rest[0])) {
				return rest
			}
		}
	}

	return s
}

func isUpper(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
