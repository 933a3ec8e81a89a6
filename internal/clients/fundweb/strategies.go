package fundweb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// strategy is one named regex extraction attempt against a fund page.
// The first capture group must be the price in pence.
type strategy struct {
	name string
	re   *regexp.Regexp
}

// strategies are tried in order, most specific first. Fund pages get
// restyled; when extraction starts failing, add a new strategy at the top
// rather than loosening an existing one.
var strategies = []strategy{
	{
		// JSON price field embedded in the page's data island.
		name: "embedded-json",
		re:   regexp.MustCompile(`"price"\s*:\s*"?([0-9,]+\.[0-9]+)"?`),
	},
	{
		// Sell/bid price cell, value suffixed with the pence marker.
		name: "sell-cell",
		re:   regexp.MustCompile(`(?i)sell[^0-9]{0,60}([0-9,]+\.[0-9]+)\s*p\b`),
	},
	{
		// Any pence-suffixed decimal. Last resort, broad by design of the
		// cascade ordering: only reached when the structured forms are gone.
		name: "pence-value",
		re:   regexp.MustCompile(`([0-9,]+\.[0-9]+)\s*p\b`),
	},
}

// extractPence runs the strategy cascade over page HTML and returns the
// first matched price in pence along with the strategy that produced it.
func extractPence(html string) (float64, string, error) {
	for _, s := range strategies {
		m := s.re.FindStringSubmatch(html)
		if m == nil {
			continue
		}

		raw := strings.ReplaceAll(m[1], ",", "")
		pence, err := strconv.ParseFloat(raw, 64)
		if err != nil || pence <= 0 {
			continue
		}

		return pence, s.name, nil
	}

	return 0, "", fmt.Errorf("no extraction strategy matched")
}
