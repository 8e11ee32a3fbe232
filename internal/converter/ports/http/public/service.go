package public

import (
	"context"

	"github.com/SilverStorm2/currency-exchange-app/internal/converter/service"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

type Service interface {
	Convert(ctx context.Context, req entities.ConversionRequest) (string, error)
	Snapshot() (*entities.RateSnapshot, service.State)
	Refresh(ctx context.Context) error

	BuildSeries(ctx context.Context, from, to string, rangeDays int) ([]entities.TimeSeriesPoint, error)

	History() []entities.HistoryEntry
	ClearHistory(ctx context.Context)
	Favorites() []entities.Pair
	ToggleFavorite(ctx context.Context, pair entities.Pair) bool
	ClearFavorites(ctx context.Context)

	SelectPair(pair entities.Pair)
	SelectedPair() entities.Pair
	ChartSeries() []entities.TimeSeriesPoint

	Currencies() []string
}
