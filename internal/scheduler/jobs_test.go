package scheduler

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ewanhart/nestegg/internal/database"
	"github.com/ewanhart/nestegg/internal/modules/history"
	"github.com/ewanhart/nestegg/internal/modules/pricing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHistoryRepo(t *testing.T) *history.Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return history.NewRepository(db.Conn(), zerolog.Nop())
}

type fakeNetWorth struct{}

func (fakeNetWorth) Calculate() (float64, map[string]float64, error) {
	return 100, map[string]float64{}, nil
}

// countingStore counts symbol listings so tests can observe refresh runs.
type countingStore struct {
	listings atomic.Int64
}

func (s *countingStore) DistinctSymbols() (map[string]string, error) {
	s.listings.Add(1)
	return map[string]string{}, nil
}

func (s *countingStore) UpdatePriceForSymbol(string, float64, time.Time) (int64, error) {
	return 0, nil
}

func newTickFixture(t *testing.T, store *countingStore, refreshEvery time.Duration) *TickJob {
	t.Helper()

	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	recorder := history.NewRecorder(setupHistoryRepo(t), fakeNetWorth{}, loc, zerolog.Nop())
	updater := pricing.NewUpdater(store, nil, nil, pricing.NewRouter(zerolog.Nop()), nil, zerolog.Nop())

	return NewTickJob(recorder, updater, refreshEvery, zerolog.Nop())
}

func TestDispatchSkipsInFlight(t *testing.T) {
	j := newTickFixture(t, &countingStore{}, time.Hour)

	block := make(chan struct{})
	started := make(chan struct{})
	var second atomic.Int64

	j.dispatch("work", func() error {
		close(started)
		<-block
		return nil
	})
	<-started

	j.dispatch("work", func() error {
		second.Add(1)
		return nil
	})
	assert.Zero(t, second.Load(), "overlapping dispatch must be skipped")

	close(block)
	require.Eventually(t, func() bool {
		j.mu.Lock()
		defer j.mu.Unlock()
		return !j.inFlight["work"]
	}, time.Second, 5*time.Millisecond)

	j.dispatch("work", func() error {
		second.Add(1)
		return nil
	})
	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTickJobRefreshInterval(t *testing.T) {
	store := &countingStore{}
	j := newTickFixture(t, store, 15*time.Minute)

	// Minute 7: no tier boundary, so ticks only exercise the refresh path.
	base := time.Date(2026, 8, 3, 10, 7, 0, 0, time.UTC)
	now := base
	var mu sync.Mutex
	j.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	require.NoError(t, j.Run())
	require.Eventually(t, func() bool { return store.listings.Load() == 1 }, time.Second, 5*time.Millisecond,
		"first tick must trigger a refresh")

	mu.Lock()
	now = base.Add(time.Minute)
	mu.Unlock()
	require.NoError(t, j.Run())
	assert.Equal(t, int64(1), store.listings.Load(), "a tick inside the interval must not refresh")

	mu.Lock()
	now = base.Add(16 * time.Minute)
	mu.Unlock()
	require.NoError(t, j.Run())
	require.Eventually(t, func() bool { return store.listings.Load() == 2 }, time.Second, 5*time.Millisecond)

	state := j.LastState()
	require.NotNil(t, state)
	assert.False(t, state.CompletedAt.IsZero())
}

type fakeRates struct{ rate float64 }

func (f fakeRates) GetRate(string, string) (float64, error) { return f.rate, nil }

type recordingArchiver struct {
	mu    sync.Mutex
	pairs []string
}

func (a *recordingArchiver) UpsertExchangeRate(from, to string, _ time.Time, _ float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pairs = append(a.pairs, from+"->"+to)
	return nil
}

func TestMaintenanceJobArchivesRatesAndCompacts(t *testing.T) {
	repo := setupHistoryRepo(t)
	compactor := history.NewCompactor(repo, nil, zerolog.Nop())

	archiver := &recordingArchiver{}
	j := NewMaintenanceJob(compactor, archiver, fakeRates{rate: 0.79}, []string{"USD", "EUR"}, zerolog.Nop())

	require.NoError(t, j.Run())
	assert.Equal(t, []string{"USD->GBP", "EUR->GBP"}, archiver.pairs)

	// Compaction ran and stamped its once-per-day guard.
	last, err := repo.GetMeta("last_compaction")
	require.NoError(t, err)
	assert.NotEmpty(t, last)
}
