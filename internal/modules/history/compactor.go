package history

import (
	"fmt"
	"time"

	"github.com/ewanhart/nestegg/internal/clientdata"
	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/rs/zerolog"
)

const metaLastCompaction = "last_compaction"

// Retention windows by snapshot age. The most recent day keeps everything.
const (
	midWindowAge    = 24 * time.Hour     // 24h-7d ago: thin to >= 6h apart
	oldWindowAge    = 7 * 24 * time.Hour // older than 7d: thin to >= 12h apart
	midWindowTarget = 6 * time.Hour
	oldWindowTarget = 12 * time.Hour
)

// Compactor thins old snapshots down to each age window's target density and
// sweeps expired client cache rows. It runs at most once per calendar day.
type Compactor struct {
	repo  *Repository
	cache *clientdata.Repository
	log   zerolog.Logger
	now   func() time.Time
}

// NewCompactor creates a new retention compactor. cache is optional - if
// nil, the cache sweep is skipped.
func NewCompactor(repo *Repository, cache *clientdata.Repository, log zerolog.Logger) *Compactor {
	return &Compactor{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("service", "compactor").Logger(),
		now:   time.Now,
	}
}

// SetClock overrides the compactor clock. Used by tests.
func (c *Compactor) SetClock(now func() time.Time) {
	c.now = now
}

// Compact thins every tier's log. The once-per-day guard is only advanced
// after a fully clean pass, so a failed window is retried on the next day's
// run without manual intervention.
func (c *Compactor) Compact() error {
	now := c.now()
	today := now.UTC().Format("2006-01-02")

	last, err := c.repo.GetMeta(metaLastCompaction)
	if err != nil {
		return err
	}
	if last == today {
		c.log.Debug().Msg("Compaction already ran today, skipping")
		return nil
	}

	var firstErr error
	for _, tier := range domain.AllTiers {
		if err := c.compactTier(tier, now); err != nil {
			c.log.Error().Err(err).Str("tier", string(tier)).Msg("Tier compaction failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if c.cache != nil {
		deleted, err := c.cache.DeleteAllExpired()
		if err != nil {
			c.log.Warn().Err(err).Msg("Cache cleanup failed")
		} else {
			c.log.Debug().Interface("deleted", deleted).Msg("Swept expired cache rows")
		}
	}

	if firstErr != nil {
		return firstErr
	}

	return c.repo.SetMeta(metaLastCompaction, today)
}

// compactTier thins one tier's two age windows, one transaction each.
func (c *Compactor) compactTier(tier domain.Tier, now time.Time) error {
	windows := []struct {
		from, to time.Time
		target   time.Duration
	}{
		{now.Add(-oldWindowAge), now.Add(-midWindowAge), midWindowTarget},
		{time.Unix(0, 0), now.Add(-oldWindowAge), oldWindowTarget},
	}

	for _, w := range windows {
		snapshots, err := c.repo.QueryRange(tier, w.from, w.to)
		if err != nil {
			return err
		}

		deleteIDs := thin(snapshots, w.target)
		if len(deleteIDs) == 0 {
			continue
		}

		if err := c.repo.DeleteIDs(tier, deleteIDs); err != nil {
			return fmt.Errorf("failed to thin %s window ending %s: %w", tier, w.to.Format(time.RFC3339), err)
		}

		c.log.Info().
			Str("tier", string(tier)).
			Int("deleted", len(deleteIDs)).
			Int("kept", len(snapshots)-len(deleteIDs)).
			Dur("target", w.target).
			Msg("Thinned snapshot window")
	}

	return nil
}

// thin applies the greedy retention rule to an ascending window: keep the
// first snapshot, then keep each next one only when it is at least the
// target interval after the last KEPT snapshot. The chronologically last
// snapshot of the window is always retained so the window never ends on a
// gap. Everything else is returned for deletion.
func thin(snapshots []domain.Snapshot, target time.Duration) []int64 {
	if len(snapshots) <= 1 {
		return nil
	}

	lastIdx := len(snapshots) - 1
	lastKept := snapshots[0].Timestamp

	var deleteIDs []int64
	for i := 1; i < lastIdx; i++ {
		if snapshots[i].Timestamp.Sub(lastKept) >= target {
			lastKept = snapshots[i].Timestamp
			continue
		}
		deleteIDs = append(deleteIDs, snapshots[i].ID)
	}

	return deleteIDs
}
