package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SilverStorm2/currency-exchange-app/internal/converter/adapter/storage/memory"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

// fakeSource is the in-memory RateSource shared by the service tests.
// Results are fixed per currency; gates let a test hold a call open until
// it is released or its context is cancelled.
type fakeSource struct {
	mu          sync.Mutex
	latestCalls int
	rangeCalls  int

	latestValues map[string]float64
	latestDates  map[string]string
	latestErrs   map[string]error
	blockLatest  bool

	rangeSeries map[string]map[string]float64
	rangeErrs   map[string]error
	rangeGates  map[string]chan struct{}
}

func (f *fakeSource) FetchLatest(ctx context.Context, currency string) (float64, string, error) {
	f.mu.Lock()
	f.latestCalls++
	blocked := f.blockLatest
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return 0, "", ctx.Err()
	}

	if err := f.latestErrs[currency]; err != nil {
		return 0, "", err
	}

	return f.latestValues[currency], f.latestDates[currency], nil
}

func (f *fakeSource) FetchRange(ctx context.Context, currency string, _, _ time.Time) (map[string]float64, error) {
	f.mu.Lock()
	f.rangeCalls++
	gate := f.rangeGates[currency]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.rangeErrs[currency]; err != nil {
		return nil, err
	}

	return f.rangeSeries[currency], nil
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.latestCalls, f.rangeCalls
}

var providerCurrencies = []string{"EUR", "USD", "PLN"}

func healthySource() *fakeSource {
	return &fakeSource{
		latestValues: map[string]float64{"USD": 1.1, "PLN": 4.5},
		latestDates:  map[string]string{"USD": "2026-08-27", "PLN": "2026-08-28"},
	}
}

func newProvider(source RateSource, store Store) *RateProvider {
	cache := NewRateCache(store, 24*time.Hour, providerCurrencies)
	return NewRateProvider(source, cache, providerCurrencies)
}

func TestRateProviderRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("publishes a complete table when every fetch succeeds", func(t *testing.T) {
		asserts := require.New(t)
		source := healthySource()
		provider := newProvider(source, memory.NewStorage())

		asserts.NoError(provider.Refresh(ctx))

		snapshot, state := provider.Snapshot()
		asserts.Equal(StateReady, state)
		asserts.NotNil(snapshot)

		for _, currency := range providerCurrencies {
			asserts.Contains(snapshot.Rates, currency)
		}
		asserts.Equal(1.0, snapshot.Rates["EUR"])
		asserts.Equal(1.1, snapshot.Rates["USD"])

		// First resolved date in currency-iteration order wins.
		asserts.Equal("2026-08-27", snapshot.ObservationDate)
	})

	t.Run("one failed fetch invalidates the whole cycle", func(t *testing.T) {
		asserts := require.New(t)
		source := healthySource()
		source.latestErrs = map[string]error{"PLN": entities.ErrSourceRequest}
		provider := newProvider(source, memory.NewStorage())

		err := provider.Refresh(ctx)

		asserts.ErrorIs(err, entities.ErrRatesUnavailable)

		snapshot, state := provider.Snapshot()
		asserts.Equal(StateUnavailable, state)
		asserts.Nil(snapshot, "no partial table may be published")
	})

	t.Run("serves a valid cached snapshot without network calls", func(t *testing.T) {
		asserts := require.New(t)
		store := memory.NewStorage()
		cache := NewRateCache(store, 24*time.Hour, providerCurrencies)
		asserts.NoError(cache.Write(ctx, &entities.RateSnapshot{
			Rates:           entities.RateTable{"EUR": 1, "USD": 1.2, "PLN": 4.2},
			ObservationDate: "2026-08-26",
			FetchedAt:       time.Now().Add(-time.Hour),
		}))

		source := healthySource()
		provider := newProvider(source, store)

		asserts.NoError(provider.Refresh(ctx))

		snapshot, state := provider.Snapshot()
		asserts.Equal(StateReady, state)
		asserts.Equal(4.2, snapshot.Rates["PLN"])

		latestCalls, _ := source.calls()
		asserts.Zero(latestCalls)
	})

	t.Run("refetches when the cached snapshot is stale", func(t *testing.T) {
		asserts := require.New(t)
		store := memory.NewStorage()
		cache := NewRateCache(store, 24*time.Hour, providerCurrencies)
		asserts.NoError(cache.Write(ctx, &entities.RateSnapshot{
			Rates:     entities.RateTable{"EUR": 1, "USD": 1.2, "PLN": 4.2},
			FetchedAt: time.Now().Add(-25 * time.Hour),
		}))

		source := healthySource()
		provider := newProvider(source, store)

		asserts.NoError(provider.Refresh(ctx))

		snapshot, state := provider.Snapshot()
		asserts.Equal(StateReady, state)
		asserts.Equal(4.5, snapshot.Rates["PLN"], "stale cache must be refetched, not served")

		latestCalls, _ := source.calls()
		asserts.Equal(2, latestCalls)
	})

	t.Run("persists a successful cycle for the next provider", func(t *testing.T) {
		asserts := require.New(t)
		store := memory.NewStorage()

		asserts.NoError(newProvider(healthySource(), store).Refresh(ctx))

		secondSource := healthySource()
		second := newProvider(secondSource, store)
		asserts.NoError(second.Refresh(ctx))

		_, state := second.Snapshot()
		asserts.Equal(StateReady, state)

		latestCalls, _ := secondSource.calls()
		asserts.Zero(latestCalls)
	})

	t.Run("close cancels the cycle without a state transition", func(t *testing.T) {
		asserts := require.New(t)
		source := healthySource()
		source.blockLatest = true
		provider := newProvider(source, memory.NewStorage())

		errChan := make(chan error, 1)
		go func() {
			errChan <- provider.Refresh(ctx)
		}()

		asserts.Eventually(func() bool {
			_, state := provider.Snapshot()
			return state == StateLoading
		}, time.Second, 5*time.Millisecond)

		provider.Close()

		err := <-errChan
		asserts.ErrorIs(err, context.Canceled)
		asserts.NotErrorIs(err, entities.ErrRatesUnavailable)

		snapshot, state := provider.Snapshot()
		asserts.Equal(StateLoading, state, "a cancelled cycle transitions nowhere")
		asserts.Nil(snapshot)
	})

	t.Run("rejects a re-entrant refresh", func(t *testing.T) {
		asserts := require.New(t)
		source := healthySource()
		source.blockLatest = true
		provider := newProvider(source, memory.NewStorage())

		errChan := make(chan error, 1)
		go func() {
			errChan <- provider.Refresh(ctx)
		}()

		asserts.Eventually(func() bool {
			_, state := provider.Snapshot()
			return state == StateLoading
		}, time.Second, 5*time.Millisecond)

		asserts.ErrorIs(provider.Refresh(ctx), entities.ErrRefreshInFlight)

		provider.Close()
		<-errChan
	})
}
