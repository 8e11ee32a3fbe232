package service

import (
	"context"
	"time"
)

// RateSource performs the network round trips against the reference-rate
// API. Both calls honor context cancellation; a canceled call returns
// context.Canceled, which callers must not treat as a source failure.
type RateSource interface {
	FetchLatest(ctx context.Context, currency string) (value float64, date string, err error)
	FetchRange(ctx context.Context, currency string, start, end time.Time) (map[string]float64, error)
}
