package fundweb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPenceEmbeddedJSON(t *testing.T) {
	html := `<script type="application/json">{"symbol":"GB00B41YBW71","price":"254.30","change":"0.40"}</script>`

	pence, name, err := extractPence(html)
	require.NoError(t, err)
	assert.Equal(t, 254.30, pence)
	assert.Equal(t, "embedded-json", name)
}

func TestExtractPenceSellCell(t *testing.T) {
	html := `<tr><td>Sell</td><td class="value">1,204.50p</td></tr>`

	pence, name, err := extractPence(html)
	require.NoError(t, err)
	assert.Equal(t, 1204.50, pence)
	assert.Equal(t, "sell-cell", name)
}

func TestExtractPenceGenericFallback(t *testing.T) {
	html := `<div class="quote">Latest NAV 98.76p as of yesterday</div>`

	pence, name, err := extractPence(html)
	require.NoError(t, err)
	assert.Equal(t, 98.76, pence)
	assert.Equal(t, "pence-value", name)
}

func TestExtractPenceOrderPrefersSpecific(t *testing.T) {
	// Both the JSON island and a loose pence value are present; the cascade
	// must take the JSON one.
	html := `{"price":"200.00"} <span>999.99p</span>`

	pence, name, err := extractPence(html)
	require.NoError(t, err)
	assert.Equal(t, 200.00, pence)
	assert.Equal(t, "embedded-json", name)
}

func TestExtractPenceNoMatch(t *testing.T) {
	_, _, err := extractPence(`<html><body>Page not found</body></html>`)
	assert.Error(t, err)
}
