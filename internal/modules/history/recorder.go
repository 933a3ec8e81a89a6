package history

import (
	"fmt"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

// NetWorthCalculator produces the current total and per-platform breakdown.
// Used to enable testing with mocks.
type NetWorthCalculator interface {
	Calculate() (float64, map[string]float64, error)
}

// Recorder appends net-worth snapshots to tier logs, but only on each
// tier's cadence boundary. Alignment is judged in the reporting timezone so
// the daily tier lands on local midnight through DST changes.
type Recorder struct {
	repo     *Repository
	networth NetWorthCalculator
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

// NewRecorder creates a new snapshot recorder.
func NewRecorder(repo *Repository, networth NetWorthCalculator, loc *time.Location, log zerolog.Logger) *Recorder {
	return &Recorder{
		repo:     repo,
		networth: networth,
		loc:      loc,
		log:      log.With().Str("service", "snapshot-recorder").Logger(),
		now:      time.Now,
	}
}

// SetClock overrides the recorder clock. Used by tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Record writes one snapshot for the tier if the current wall clock sits on
// the tier's boundary. Off-boundary calls perform no write and report false;
// downstream chart consumers assume evenly spaced samples.
func (r *Recorder) Record(tier domain.Tier) (bool, error) {
	now := r.now().In(r.loc).Truncate(time.Minute)

	if !tier.Aligned(now) {
		r.log.Debug().
			Str("tier", string(tier)).
			Time("now", now).
			Msg("Off cadence boundary, skipping snapshot")
		return false, nil
	}

	total, breakdown, err := r.networth.Calculate()
	if err != nil {
		return false, fmt.Errorf("failed to calculate net worth: %w", err)
	}

	snapshot := domain.Snapshot{
		Timestamp: now,
		Total:     total,
		Breakdown: breakdown,
	}
	if err := r.repo.Insert(tier, snapshot); err != nil {
		return false, err
	}

	r.log.Info().
		Str("tier", string(tier)).
		Time("ts", now).
		Float64("total", total).
		Msg("Recorded snapshot")

	return true, nil
}
