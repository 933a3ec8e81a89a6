// Package classify derives an asset class from the shape of a raw investment
// identifier. Classification is pure and total: it never errors, returning
// AssetUnknown for anything it cannot place.
package classify

import (
	"strings"

	"github.com/ewanhart/nestegg/internal/domain"
)

// cryptoSymbols is the known set of crypto tickers. Membership here is what
// routes an identifier to crypto-only price sources, so the set is curated
// rather than pattern-matched (pattern matching would swallow equity tickers).
var cryptoSymbols = map[string]bool{
	"BTC":   true,
	"ETH":   true,
	"ADA":   true,
	"DOT":   true,
	"SOL":   true,
	"XRP":   true,
	"LTC":   true,
	"BCH":   true,
	"DOGE":  true,
	"MATIC": true,
	"LINK":  true,
	"XLM":   true,
	"UNI":   true,
	"AVAX":  true,
	"ATOM":  true,
}

// ukPlatforms are platform hints that indicate a UK-only fund context. An
// otherwise-unclassifiable identifier from one of these platforms is treated
// as a UK fund rather than Unknown.
var ukPlatforms = map[string]bool{
	"hargreaves_lansdown":  true,
	"hl":                   true,
	"aj_bell":              true,
	"fidelity_uk":          true,
	"vanguard_uk":          true,
	"interactive_investor": true,
}

// IsCryptoSymbol reports whether the identifier is in the known crypto set.
func IsCryptoSymbol(identifier string) bool {
	return cryptoSymbols[strings.ToUpper(identifier)]
}

// Classify inspects an identifier and returns its asset class. Rules are
// applied in a fixed order and the first match wins; the length-based ISIN
// and SEDOL checks deliberately run before the ticker check because the
// per-class adapter chains are tuned to that precedence.
func Classify(identifier, platformHint string) domain.AssetClass {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	if id == "" {
		return domain.AssetUnknown
	}

	// Rule 1: 12 characters with an alphabetic country prefix is an ISIN.
	if len(id) == 12 && isAlpha(id[:2]) {
		switch id[:2] {
		case "US", "CA":
			return domain.AssetISINUS
		case "GB", "IE":
			return domain.AssetISINUKFund
		default:
			return domain.AssetISINIntl
		}
	}

	// Rule 2: 7 alphanumeric characters ending in a check digit is a SEDOL.
	if len(id) == 7 && isAlphaNum(id[:6]) && isDigit(id[6]) {
		return domain.AssetSEDOLUKFund
	}

	// Rule 3: known crypto symbols.
	if cryptoSymbols[id] {
		return domain.AssetCrypto
	}

	// Rule 4: London Stock Exchange suffix.
	if strings.HasSuffix(id, ".L") {
		return domain.AssetUKEquity
	}

	// Rule 5: plain 3-5 letter ticker.
	if len(id) >= 3 && len(id) <= 5 && isAlpha(id) {
		return domain.AssetEquityTicker
	}

	// Rule 6: unrecognized shape. A UK-only platform context still lets us
	// try the fund sources; otherwise give up.
	if ukPlatforms[normalizeHint(platformHint)] {
		return domain.AssetUKFundFallback
	}

	return domain.AssetUnknown
}

func normalizeHint(hint string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	return strings.ReplaceAll(h, " ", "_")
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlphaNum(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < 'A' || s[i] > 'Z') && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return len(s) > 0
}
