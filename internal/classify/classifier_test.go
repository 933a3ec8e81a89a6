package classify

import (
	"testing"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		hint       string
		expected   domain.AssetClass
	}{
		{"US ISIN", "US0378331005", "", domain.AssetISINUS},
		{"Canadian ISIN", "CA0679011084", "", domain.AssetISINUS},
		{"GB fund ISIN", "GB00B41YBW71", "", domain.AssetISINUKFund},
		{"Irish fund ISIN", "IE00B4L5Y983", "", domain.AssetISINUKFund},
		{"other international ISIN", "DE0007164600", "", domain.AssetISINIntl},
		{"SEDOL", "B41YBW7", "", domain.AssetSEDOLUKFund},
		{"SEDOL all digits", "0263494", "", domain.AssetSEDOLUKFund},
		{"crypto BTC", "BTC", "", domain.AssetCrypto},
		{"crypto lowercase", "eth", "", domain.AssetCrypto},
		{"UK listed equity", "VOD.L", "", domain.AssetUKEquity},
		{"US ticker", "AAPL", "", domain.AssetEquityTicker},
		{"three letter ticker", "IBM", "", domain.AssetEquityTicker},
		{"five letter ticker", "GOOGL", "", domain.AssetEquityTicker},
		{"unknown shape", "12XYZ!", "", domain.AssetUnknown},
		{"unknown shape with UK hint", "F00000TEST99X", "hargreaves_lansdown", domain.AssetUKFundFallback},
		{"unknown shape with spaced UK hint", "F00000TEST99X", "Hargreaves Lansdown", domain.AssetUKFundFallback},
		{"unknown shape with non-UK hint", "F00000TEST99X", "robinhood", domain.AssetUnknown},
		{"empty identifier", "", "hl", domain.AssetUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.identifier, tt.hint))
		})
	}
}

func TestClassifyISINPrefixProperty(t *testing.T) {
	// Every 12-char identifier with a US prefix classifies as a US ISIN,
	// regardless of the body; GB prefixes always classify as UK funds.
	bodies := []string{"0000000000", "ABCDEFGHI9", "12345ABC09"}
	for _, body := range bodies {
		assert.Equal(t, domain.AssetISINUS, Classify("US"+body, ""))
		assert.Equal(t, domain.AssetISINUKFund, Classify("GB"+body, ""))
	}
}

func TestClassifySEDOLBeatsTicker(t *testing.T) {
	// Length checks run before the ticker rule: a 7-char alphanumeric code
	// with a trailing digit is a SEDOL even though it looks ticker-ish.
	assert.Equal(t, domain.AssetSEDOLUKFund, Classify("BDFGHJ4", ""))
}

func TestClassifyIsTotal(t *testing.T) {
	// No input shape may panic or error; the worst case is Unknown.
	inputs := []string{"", " ", "!!!", "B.L", "GB", "A", "ZZZZZZZZZZZZZZZZ", "btc "}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Classify(in, "") })
	}
}
