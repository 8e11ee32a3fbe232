package service

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/SilverStorm2/currency-exchange-app/internal/converter/metrics"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

// SeriesBuilder derives the historical cross-rate series for a currency
// pair. Each non-pivot leg costs one range request; the pivot leg is a
// constant 1 and costs nothing. The result is recomputed per invocation.
type SeriesBuilder struct {
	source RateSource
}

func NewSeriesBuilder(source RateSource) *SeriesBuilder {
	return &SeriesBuilder{source: source}
}

// BuildCrossSeries returns one point per calendar date on which every
// required leg has an observation, ascending by date. Dates missing a leg
// are dropped, never interpolated. A same-currency pair yields an empty
// series without touching the network. Fewer than two points is a valid
// result; drawing a line out of it is the consumer's problem.
func (b *SeriesBuilder) BuildCrossSeries(ctx context.Context, from, to string, rangeDays int) ([]entities.TimeSeriesPoint, error) {
	const op = "service.SeriesBuilder.BuildCrossSeries"

	if from == to {
		return []entities.TimeSeriesPoint{}, nil
	}

	end := time.Now()
	start := end.AddDate(0, 0, -rangeDays)

	var fromLeg, toLeg map[string]float64

	g, gctx := errgroup.WithContext(ctx)

	if from != entities.Pivot {
		g.Go(func() error {
			leg, err := b.source.FetchRange(gctx, from, start, end)
			if err != nil {
				return err
			}
			fromLeg = leg
			return nil
		})
	}

	if to != entities.Pivot {
		g.Go(func() error {
			leg, err := b.source.FetchRange(gctx, to, start, end)
			if err != nil {
				return err
			}
			toLeg = leg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, op)
	}

	dateSet := make(map[string]struct{}, len(fromLeg)+len(toLeg))
	for date := range fromLeg {
		dateSet[date] = struct{}{}
	}
	for date := range toLeg {
		dateSet[date] = struct{}{}
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]entities.TimeSeriesPoint, 0, len(dates))
	for _, date := range dates {
		fromRate, ok := legRate(from, fromLeg, date)
		if !ok {
			continue
		}
		toRate, ok := legRate(to, toLeg, date)
		if !ok {
			continue
		}

		points = append(points, entities.TimeSeriesPoint{
			Date:  date,
			Value: (1 / fromRate) * toRate,
		})
	}

	metrics.SeriesBuilds.Inc()

	return points, nil
}

func legRate(currency string, leg map[string]float64, date string) (float64, bool) {
	if currency == entities.Pivot {
		return 1, true
	}

	rate, ok := leg[date]
	return rate, ok
}
