package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/SilverStorm2/currency-exchange-app/internal/converter/metrics"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

const maxHistoryEntries = 10

const historyTimeLayout = "2006-01-02 15:04"

// Session is the top-level state of one converter instance: the history
// ledger, the favorites set, the selected pair and its chart series. It is
// the single writer of that state; the provider's snapshot is consumed
// read-only. History and favorites survive rate refreshes and restarts
// through the key-value store, best-effort.
type Session struct {
	store      Store
	provider   *RateProvider
	series     *SeriesBuilder
	currencies []string
	rangeDays  int

	mu          sync.Mutex
	history     []entities.HistoryEntry
	favorites   []entities.Pair
	selected    entities.Pair
	chart       []entities.TimeSeriesPoint
	chartGen    uint64
	chartCancel context.CancelFunc
}

func NewSession(ctx context.Context, store Store, provider *RateProvider, series *SeriesBuilder, currencies []string, rangeDays int) *Session {
	s := &Session{
		store:      store,
		provider:   provider,
		series:     series,
		currencies: currencies,
		rangeDays:  rangeDays,
		selected:   entities.Pair{From: "PLN", To: "USD"},
	}

	// Malformed or missing persisted state starts the session empty, it
	// never fails construction.
	loadJSON(ctx, store, HistoryKey, &s.history)
	loadJSON(ctx, store, FavoritesKey, &s.favorites)

	return s
}

func loadJSON(ctx context.Context, store Store, key string, target any) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return
	}

	_ = json.Unmarshal(raw, target)
}

// Convert runs one conversion against the current snapshot and records it
// in the history ledger.
func (s *Session) Convert(ctx context.Context, req entities.ConversionRequest) (string, error) {
	const op = "service.Session.Convert"

	if !s.supported(req.From) || !s.supported(req.To) {
		return "", errors.Wrapf(entities.ErrUnsupportedCurrency, "%s/%s", req.From, req.To)
	}

	snapshot, _ := s.provider.Snapshot()

	var rates entities.RateTable
	if snapshot != nil {
		rates = snapshot.Rates
	}

	result, err := Convert(req, rates)
	if err != nil {
		return "", errors.Wrap(err, op)
	}

	s.AppendHistory(ctx, entities.HistoryEntry{
		ID:         uuid.NewString(),
		AmountText: FormatAmount(req.Amount, req.From),
		ResultText: result,
		Timestamp:  time.Now().Format(historyTimeLayout),
	})
	metrics.Conversions.Inc()

	return result, nil
}

func (s *Session) supported(currency string) bool {
	for _, code := range s.currencies {
		if code == currency {
			return true
		}
	}
	return false
}

// AppendHistory prepends an entry and drops everything past the cap.
func (s *Session) AppendHistory(ctx context.Context, entry entities.HistoryEntry) {
	s.mu.Lock()
	s.history = append([]entities.HistoryEntry{entry}, s.history...)
	if len(s.history) > maxHistoryEntries {
		s.history = s.history[:maxHistoryEntries]
	}
	snapshot := make([]entities.HistoryEntry, len(s.history))
	copy(snapshot, s.history)
	s.mu.Unlock()

	s.persist(ctx, HistoryKey, snapshot)
}

func (s *Session) History() []entities.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]entities.HistoryEntry, len(s.history))
	copy(history, s.history)

	return history
}

func (s *Session) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()

	s.persist(ctx, HistoryKey, []entities.HistoryEntry{})
}

// ToggleFavorite adds the pair when absent and removes it when present,
// keyed by ordered-pair equality. A degenerate pair is ignored. Returns
// whether the pair is a favorite afterwards.
func (s *Session) ToggleFavorite(ctx context.Context, pair entities.Pair) bool {
	if pair.From == pair.To {
		return false
	}

	s.mu.Lock()
	found := -1
	for i, favorite := range s.favorites {
		if favorite == pair {
			found = i
			break
		}
	}

	var isFavorite bool
	if found >= 0 {
		s.favorites = append(s.favorites[:found], s.favorites[found+1:]...)
	} else {
		s.favorites = append([]entities.Pair{pair}, s.favorites...)
		isFavorite = true
	}

	snapshot := make([]entities.Pair, len(s.favorites))
	copy(snapshot, s.favorites)
	s.mu.Unlock()

	s.persist(ctx, FavoritesKey, snapshot)

	return isFavorite
}

func (s *Session) Favorites() []entities.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorites := make([]entities.Pair, len(s.favorites))
	copy(favorites, s.favorites)

	return favorites
}

func (s *Session) ClearFavorites(ctx context.Context) {
	s.mu.Lock()
	s.favorites = nil
	s.mu.Unlock()

	s.persist(ctx, FavoritesKey, []entities.Pair{})
}

// persist writes state best-effort. Failures are logged and deliberately
// dropped: the in-memory state already handed to callers stays valid.
func (s *Session) persist(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Debug("state marshal failed", "key", key, "error", err)
		return
	}

	if err := s.store.Set(ctx, key, raw); err != nil {
		slog.Debug("state write failed", "key", key, "error", err)
	}
}

// SelectPair makes pair the current selection and rebuilds its chart
// series in the background. The latest selection wins: any series fetch
// still in flight for an earlier selection is cancelled, and its result is
// dropped even if it lands after cancellation.
func (s *Session) SelectPair(pair entities.Pair) {
	s.mu.Lock()
	s.selected = pair
	s.chartGen++
	gen := s.chartGen

	if s.chartCancel != nil {
		s.chartCancel()
	}

	// Session-scoped, not request-scoped: the fetch outlives the HTTP
	// request that triggered the selection.
	fetchCtx, cancel := context.WithCancel(context.Background())
	s.chartCancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()

		points, err := s.series.BuildCrossSeries(fetchCtx, pair.From, pair.To, s.rangeDays)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("series build failed", "from", pair.From, "to", pair.To, "error", err)
			points = nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if gen != s.chartGen {
			return
		}
		s.chart = points
	}()
}

// SelectedPair returns the current selection.
func (s *Session) SelectedPair() entities.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selected
}

// ChartSeries returns the series of the current selection as last built.
func (s *Session) ChartSeries() []entities.TimeSeriesPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	chart := make([]entities.TimeSeriesPoint, len(s.chart))
	copy(chart, s.chart)

	return chart
}

// Refresh drives the provider through one fetch cycle (or a cache hit).
func (s *Session) Refresh(ctx context.Context) error {
	return s.provider.Refresh(ctx)
}

// Snapshot exposes the provider's published snapshot and state.
func (s *Session) Snapshot() (*entities.RateSnapshot, State) {
	return s.provider.Snapshot()
}

// BuildSeries computes a cross-rate series on demand.
func (s *Session) BuildSeries(ctx context.Context, from, to string, rangeDays int) ([]entities.TimeSeriesPoint, error) {
	if !s.supported(from) || !s.supported(to) {
		return nil, errors.Wrapf(entities.ErrUnsupportedCurrency, "%s/%s", from, to)
	}

	if rangeDays <= 0 {
		rangeDays = s.rangeDays
	}

	return s.series.BuildCrossSeries(ctx, from, to, rangeDays)
}

// Currencies returns the supported set in configured order.
func (s *Session) Currencies() []string {
	currencies := make([]string, len(s.currencies))
	copy(currencies, s.currencies)

	return currencies
}

// Close tears the session down: the in-flight chart fetch and rate cycle
// are cancelled and may no longer mutate state.
func (s *Session) Close() {
	s.mu.Lock()
	s.chartGen++
	if s.chartCancel != nil {
		s.chartCancel()
		s.chartCancel = nil
	}
	s.mu.Unlock()

	s.provider.Close()
}
