package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/SilverStorm2/currency-exchange-app/internal/converter/metrics"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateUnavailable
)

func (s State) String() string {
	return [...]string{"idle", "loading", "ready", "unavailable"}[s]
}

// RateProvider owns the current rate snapshot and drives the fetch cycle.
// A cycle resolves every non-pivot currency concurrently and publishes all
// of them or none: a partially fetched table is never observable. Only one
// cycle may be in flight per provider instance.
type RateProvider struct {
	source     RateSource
	cache      *RateCache
	currencies []string

	mu         sync.Mutex
	state      State
	snapshot   *entities.RateSnapshot
	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
}

func NewRateProvider(source RateSource, cache *RateCache, currencies []string) *RateProvider {
	return &RateProvider{
		source:     source,
		cache:      cache,
		currencies: currencies,
		state:      StateIdle,
	}
}

// Refresh produces a current snapshot: from the cache when a valid one is
// stored, otherwise through one fetch cycle. A canceled cycle performs no
// state transition and returns the context error untouched so callers can
// tell teardown apart from failure.
func (p *RateProvider) Refresh(ctx context.Context) error {
	const op = "service.RateProvider.Refresh"

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return entities.ErrRefreshInFlight
	}
	p.inFlight = true
	p.generation++
	gen := p.generation

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.inFlight = false
		p.cancel = nil
		p.mu.Unlock()
	}()

	if cached := p.cache.Read(ctx); cached != nil {
		p.publish(gen, StateReady, cached)
		return nil
	}

	p.publish(gen, StateLoading, nil)

	toFetch := make([]string, 0, len(p.currencies))
	for _, currency := range p.currencies {
		if currency != entities.Pivot {
			toFetch = append(toFetch, currency)
		}
	}

	values := make([]float64, len(toFetch))
	dates := make([]string, len(toFetch))

	g, gctx := errgroup.WithContext(ctx)
	for i, currency := range toFetch {
		g.Go(func() error {
			value, date, err := p.source.FetchLatest(gctx, currency)
			if err != nil {
				return err
			}
			values[i] = value
			dates[i] = date
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// Torn down while loading: discard the cycle entirely.
			metrics.FetchCycles.WithLabelValues(metrics.ResultCanceled).Inc()
			return ctx.Err()
		}

		p.publish(gen, StateUnavailable, nil)
		metrics.FetchCycles.WithLabelValues(metrics.ResultUnavailable).Inc()

		return errors.Wrap(entities.ErrRatesUnavailable, err.Error())
	}

	rates := entities.RateTable{entities.Pivot: 1}
	observationDate := ""

	for i, currency := range toFetch {
		rates[currency] = values[i]
		if observationDate == "" && dates[i] != "" {
			observationDate = dates[i]
		}
	}

	snapshot := &entities.RateSnapshot{
		Rates:           rates,
		ObservationDate: observationDate,
		FetchedAt:       time.Now(),
	}

	// Persistence is best-effort: a failed write must not fail the cycle.
	if err := p.cache.Write(ctx, snapshot); err != nil {
		slog.Debug("snapshot cache write failed", "op", op, "error", err)
	}

	p.publish(gen, StateReady, snapshot)
	metrics.FetchCycles.WithLabelValues(metrics.ResultReady).Inc()

	return nil
}

// publish replaces state and snapshot atomically. A write from a
// superseded cycle is dropped.
func (p *RateProvider) publish(gen uint64, state State, snapshot *entities.RateSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return
	}

	p.state = state
	p.snapshot = snapshot
}

// Snapshot returns the current state and an independent copy of the
// published snapshot, nil unless the provider is Ready.
func (p *RateProvider) Snapshot() (*entities.RateSnapshot, State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshot.Clone(), p.state
}

// Close cancels an in-flight cycle. Late responses are discarded, never
// applied.
func (p *RateProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	if p.cancel != nil {
		p.cancel()
	}
}
