package yahoo

import (
	"fmt"

	"github.com/ewanhart/nestegg/internal/domain"
)

// ErrRateLimited is returned on HTTP 429. It wraps the domain sentinel so
// callers apply their backoff policy instead of treating the source as
// hard-down.
var ErrRateLimited = fmt.Errorf("yahoo: %w", domain.ErrRateLimited)
