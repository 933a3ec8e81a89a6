package pricing

import (
	"context"
	"time"

	"github.com/ewanhart/nestegg/internal/classify"
	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

// cryptoPairs is the curated yahoo pair set for the crypto fallback path.
var cryptoPairs = map[string]string{
	"BTC":  "BTC-GBP",
	"ETH":  "ETH-GBP",
	"SOL":  "SOL-GBP",
	"ADA":  "ADA-GBP",
	"XRP":  "XRP-GBP",
	"LTC":  "LTC-GBP",
	"DOGE": "DOGE-GBP",
}

// CryptoPair returns the yahoo pair symbol for a crypto ticker, if curated.
func CryptoPair(symbol string) (string, bool) {
	pair, ok := cryptoPairs[symbol]
	return pair, ok
}

// Updater refreshes current prices for every held symbol in one batch run.
type Updater struct {
	holdings   HoldingsStore
	crypto     CryptoBatcher
	quotes     QuoteBatcher
	router     *Router
	normalizer Normalizer
	log        zerolog.Logger
	now        func() time.Time
}

// NewUpdater creates a new batch price updater.
func NewUpdater(holdings HoldingsStore, crypto CryptoBatcher, quotes QuoteBatcher, router *Router, normalizer Normalizer, log zerolog.Logger) *Updater {
	return &Updater{
		holdings:   holdings,
		crypto:     crypto,
		quotes:     quotes,
		router:     router,
		normalizer: normalizer,
		log:        log.With().Str("service", "price-updater").Logger(),
		now:        time.Now,
	}
}

// SetClock overrides the updater clock. Used by tests.
func (u *Updater) SetClock(now func() time.Time) {
	u.now = now
}

// UpdateAll refreshes every distinct held symbol: crypto in one batched
// primary call with a batched fallback for the remainder, everything else
// through the router one identifier at a time. Individual failures are
// logged and skipped; the run always completes. The returned state is owned
// by the caller; there is no global last-run variable.
func (u *Updater) UpdateAll(ctx context.Context) (*domain.PriceUpdateState, error) {
	state := domain.NewPriceUpdateState(u.now())
	log := u.log.With().Str("run_id", state.RunID.String()).Logger()

	symbols, err := u.holdings.DistinctSymbols()
	if err != nil {
		return state, err
	}

	var cryptoSyms []string
	type hinted struct{ symbol, platform string }
	var others []hinted
	for symbol, platform := range symbols {
		if classify.Classify(symbol, platform).IsCrypto() {
			cryptoSyms = append(cryptoSyms, symbol)
		} else {
			others = append(others, hinted{symbol, platform})
		}
	}

	log.Info().
		Int("crypto", len(cryptoSyms)).
		Int("other", len(others)).
		Msg("Starting batch price update")

	u.updateCrypto(ctx, log, state, cryptoSyms)

	for _, h := range others {
		quote, err := u.router.GetPrice(ctx, h.symbol, h.platform)
		if err != nil {
			state.Failed++
			log.Warn().Err(err).Str("symbol", h.symbol).Msg("Price resolution failed, keeping stale price")
			continue
		}
		u.applyPrice(log, state, h.symbol, quote.Price)
	}

	state.CompletedAt = u.now()
	log.Info().
		Int("updated", state.Updated).
		Int("failed", state.Failed).
		Int("skipped", state.Skipped).
		Msg("Batch price update finished")

	return state, nil
}

// updateCrypto resolves all crypto symbols: one batched primary call, then
// one batched fallback call for whatever the primary could not price.
func (u *Updater) updateCrypto(ctx context.Context, log zerolog.Logger, state *domain.PriceUpdateState, symbols []string) {
	if len(symbols) == 0 {
		return
	}

	prices, err := u.crypto.GetBatchPrices(ctx, symbols)
	if err != nil {
		log.Warn().Err(err).Msg("Primary crypto source failed, trying fallback for all symbols")
		prices = map[string]float64{}
	}

	var unresolved []string
	for _, symbol := range symbols {
		price, ok := prices[symbol]
		if !ok {
			unresolved = append(unresolved, symbol)
			continue
		}
		u.applyPrice(log, state, symbol, price)
	}

	if len(unresolved) == 0 {
		return
	}

	fallback := u.cryptoFallback(ctx, log, unresolved)
	for _, symbol := range unresolved {
		price, ok := fallback[symbol]
		if !ok {
			state.Failed++
			log.Warn().Str("symbol", symbol).Msg("Crypto price unresolved by both sources, keeping stale price")
			continue
		}
		u.applyPrice(log, state, symbol, price)
	}
}

// cryptoFallback prices unresolved crypto symbols through the curated yahoo
// pair set in a single batched call.
func (u *Updater) cryptoFallback(ctx context.Context, log zerolog.Logger, symbols []string) map[string]float64 {
	pairToSymbol := make(map[string]string)
	var pairs []string
	for _, symbol := range symbols {
		pair, ok := CryptoPair(symbol)
		if !ok {
			continue
		}
		pairToSymbol[pair] = symbol
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		return nil
	}

	quotes, err := u.quotes.GetBatchQuotes(ctx, pairs)
	if err != nil {
		log.Warn().Err(err).Msg("Crypto fallback source failed")
		return nil
	}

	prices := make(map[string]float64, len(quotes))
	for pair, q := range quotes {
		symbol, ok := pairToSymbol[pair]
		if !ok {
			continue
		}
		prices[symbol] = u.normalizer.Normalize(q.Price, q.Currency, q.IsMinorUnit())
	}

	log.Info().Int("resolved", len(prices)).Int("attempted", len(pairs)).Msg("Crypto fallback quotes fetched")
	return prices
}

// applyPrice sanity-checks and persists one resolved price, updating every
// holdings row that shares the symbol.
func (u *Updater) applyPrice(log zerolog.Logger, state *domain.PriceUpdateState, symbol string, price float64) {
	quote := domain.PriceQuote{Identifier: symbol, Price: price}
	if !quote.Plausible() {
		state.Failed++
		log.Warn().
			Str("symbol", symbol).
			Float64("price", price).
			Err(domain.ErrSanityCheckFailed).
			Msg("Rejecting implausible price")
		return
	}

	rows, err := u.holdings.UpdatePriceForSymbol(symbol, price, u.now())
	if err != nil {
		state.Failed++
		log.Error().Err(err).Str("symbol", symbol).Msg("Failed to persist price")
		return
	}
	if rows == 0 {
		// Monotonic guard: a newer run already wrote this symbol.
		state.Skipped++
		return
	}

	state.Updated++
	log.Debug().Str("symbol", symbol).Float64("price", price).Int64("rows", rows).Msg("Price updated")
}
