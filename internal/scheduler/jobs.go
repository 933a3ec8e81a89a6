package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ewanhart/nestegg/internal/domain"
	"github.com/ewanhart/nestegg/internal/modules/history"
	"github.com/ewanhart/nestegg/internal/modules/pricing"
	"github.com/rs/zerolog"
)

// TickJob fires every minute. It offers each snapshot tier a chance to
// record (the recorder itself enforces cadence alignment) and kicks off a
// price refresh when the configured interval has elapsed. Each piece of work
// runs in its own goroutine with an at-most-one-in-flight guard, so a slow
// provider never stacks up duplicate runs.
type TickJob struct {
	recorder     *history.Recorder
	updater      *pricing.Updater
	refreshEvery time.Duration
	log          zerolog.Logger
	now          func() time.Time

	mu          sync.Mutex
	inFlight    map[string]bool
	lastRefresh time.Time
	lastState   *domain.PriceUpdateState
}

// NewTickJob creates the minute tick job.
func NewTickJob(recorder *history.Recorder, updater *pricing.Updater, refreshEvery time.Duration, log zerolog.Logger) *TickJob {
	return &TickJob{
		recorder:     recorder,
		updater:      updater,
		refreshEvery: refreshEvery,
		log:          log.With().Str("job", "tick").Logger(),
		now:          time.Now,
		inFlight:     make(map[string]bool),
	}
}

// SetClock overrides the job clock. Used by tests.
func (j *TickJob) SetClock(now func() time.Time) {
	j.now = now
}

// Name returns the job name
func (j *TickJob) Name() string { return "tick" }

// Run dispatches this minute's due work. It returns immediately; the work
// itself runs in background goroutines.
func (j *TickJob) Run() error {
	for _, tier := range domain.AllTiers {
		tier := tier
		j.dispatch("snapshot_"+string(tier), func() error {
			_, err := j.recorder.Record(tier)
			return err
		})
	}

	j.mu.Lock()
	due := j.now().Sub(j.lastRefresh) >= j.refreshEvery
	if due {
		j.lastRefresh = j.now()
	}
	j.mu.Unlock()

	if due {
		j.dispatch("price_refresh", func() error {
			state, err := j.updater.UpdateAll(context.Background())
			if state != nil {
				j.mu.Lock()
				j.lastState = state
				j.mu.Unlock()
			}
			return err
		})
	}

	return nil
}

// LastState returns the result of the most recent completed price refresh,
// nil before the first one finishes. The scheduler owns this state; nothing
// else in the system tracks "last updated" globally.
func (j *TickJob) LastState() *domain.PriceUpdateState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastState
}

// dispatch runs fn in a goroutine unless the same task is still in flight.
func (j *TickJob) dispatch(name string, fn func() error) {
	j.mu.Lock()
	if j.inFlight[name] {
		j.mu.Unlock()
		j.log.Warn().Str("task", name).Msg("Previous run still in flight, skipping")
		return
	}
	j.inFlight[name] = true
	j.mu.Unlock()

	go func() {
		defer func() {
			j.mu.Lock()
			j.inFlight[name] = false
			j.mu.Unlock()
		}()

		if err := fn(); err != nil {
			j.log.Error().Err(err).Str("task", name).Msg("Task failed")
		}
	}()
}

// RateArchiver archives one FX rate per currency per day.
type RateArchiver interface {
	UpsertExchangeRate(from, to string, date time.Time, rate float64) error
}

// RateSource looks up current FX rates.
type RateSource interface {
	GetRate(fromCurrency, toCurrency string) (float64, error)
}

// MaintenanceJob is the daily housekeeping pass: snapshot retention
// compaction (which also sweeps expired cache rows) and FX rate archival
// for later historical valuation.
type MaintenanceJob struct {
	compactor  *history.Compactor
	archiver   RateArchiver
	rates      RateSource
	currencies []string
	log        zerolog.Logger
	now        func() time.Time
}

// NewMaintenanceJob creates the daily maintenance job.
func NewMaintenanceJob(compactor *history.Compactor, archiver RateArchiver, rates RateSource, currencies []string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		compactor:  compactor,
		archiver:   archiver,
		rates:      rates,
		currencies: currencies,
		log:        log.With().Str("job", "maintenance").Logger(),
		now:        time.Now,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run compacts the snapshot logs and archives today's FX rates. Archival
// failures are logged per currency and never block compaction.
func (j *MaintenanceJob) Run() error {
	if j.archiver != nil && j.rates != nil {
		today := j.now()
		for _, currency := range j.currencies {
			rate, err := j.rates.GetRate(currency, domain.ReportingCurrency)
			if err != nil {
				j.log.Warn().Err(err).Str("currency", currency).Msg("Skipping FX archive")
				continue
			}
			if err := j.archiver.UpsertExchangeRate(currency, domain.ReportingCurrency, today, rate); err != nil {
				j.log.Warn().Err(err).Str("currency", currency).Msg("Failed to archive FX rate")
			}
		}
	}

	return j.compactor.Compact()
}
