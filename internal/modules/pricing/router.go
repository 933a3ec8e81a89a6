// Package pricing resolves identifiers to current prices. The router walks
// an ordered adapter chain per asset class; the updater batches a full
// refresh across all holdings.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ewanhart/nestegg/internal/classify"
	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

// Rate-limited calls are retried with exponential backoff; everything else
// fails the adapter immediately and the chain moves on.
const (
	maxFetchAttempts = 3
	baseRetryDelay   = time.Second
)

// Router resolves one identifier at a time through ordered adapter chains.
type Router struct {
	chains map[domain.AssetClass][]Adapter
	log    zerolog.Logger
}

// NewRouter creates an empty router. Chains are added with Register.
func NewRouter(log zerolog.Logger) *Router {
	return &Router{
		chains: make(map[domain.AssetClass][]Adapter),
		log:    log.With().Str("service", "price-router").Logger(),
	}
}

// Register appends adapters to a class's chain, in fallback order. It
// refuses adapters whose crypto tag contradicts the class: crypto and
// non-crypto sources never share a chain.
func (r *Router) Register(class domain.AssetClass, adapters ...Adapter) error {
	for _, a := range adapters {
		if a.Crypto() != class.IsCrypto() {
			return fmt.Errorf("adapter %s (crypto=%v) cannot serve class %s", a.Name(), a.Crypto(), class)
		}
		r.chains[class] = append(r.chains[class], a)
	}
	return nil
}

// GetPrice classifies the identifier and walks its chain, returning the
// first plausible quote. All sources exhausted yields a *domain.RouteError.
func (r *Router) GetPrice(ctx context.Context, identifier, platformHint string) (*domain.PriceQuote, error) {
	class := classify.Classify(identifier, platformHint)

	chain := r.chains[class]
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrNoAdapters, identifier, class)
	}

	attempts := 0
	for _, adapter := range chain {
		attempts++

		quote, err := r.fetchWithRetry(ctx, adapter, identifier)
		if err != nil {
			srcErr := &domain.SourceError{Source: adapter.Name(), Err: err}
			r.log.Warn().
				Err(srcErr).
				Str("identifier", identifier).
				Str("class", string(class)).
				Msg("Price source failed, trying next")
			continue
		}

		if !quote.Plausible() {
			r.log.Warn().
				Str("identifier", identifier).
				Str("source", adapter.Name()).
				Float64("price", quote.Price).
				Err(domain.ErrSanityCheckFailed).
				Msg("Rejecting implausible price")
			continue
		}

		return quote, nil
	}

	return nil, &domain.RouteError{Identifier: identifier, Class: class, Attempts: attempts}
}

// fetchWithRetry calls one adapter, retrying only on provider throttling.
func (r *Router) fetchWithRetry(ctx context.Context, adapter Adapter, identifier string) (*domain.PriceQuote, error) {
	var lastErr error

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			r.log.Debug().
				Str("source", adapter.Name()).
				Dur("delay", delay).
				Int("attempt", attempt+1).
				Msg("Backing off after rate limit")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		quote, err := adapter.Fetch(ctx, identifier)
		if err == nil {
			return quote, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
