package domain

import (
	"errors"
	"fmt"
)

// ErrSanityCheckFailed marks a fetched price outside plausible bounds.
// Treated as no-result: implausible prices are never persisted.
var ErrSanityCheckFailed = errors.New("price outside plausible bounds")

// ErrNoAdapters marks an asset class with no configured price sources
// (notably Unknown identifiers).
var ErrNoAdapters = errors.New("no price sources configured for asset class")

// ErrRateLimited is wrapped by clients on provider throttling so the retry
// policy can distinguish it from hard failures.
var ErrRateLimited = errors.New("rate limited")

// SourceError wraps a single adapter failure. The router logs it and moves on
// to the next adapter in the chain.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// RouteError is returned when every adapter for an asset class has failed.
// It carries the class and identifier so callers can log a precise skip;
// it is never a reason to abort a batch update.
type RouteError struct {
	Identifier string
	Class      AssetClass
	Attempts   int
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("all %d price sources exhausted for %s (%s)", e.Attempts, e.Identifier, e.Class)
}
