package entities

import "errors"

var (
	// ErrNotFound is returned by a key-value store for a missing key.
	ErrNotFound = errors.New("entity not found")

	// ErrSourceRequest marks a transport error or non-success status from
	// the rate source API.
	ErrSourceRequest = errors.New("rate source request failed")

	// ErrSourceData marks a response that could not be parsed into an
	// observation: missing series, missing value or missing date mapping.
	ErrSourceData = errors.New("rate source returned unusable data")

	// ErrRatesUnavailable is the aggregate failure of a fetch cycle: at
	// least one per-currency request failed, so no table was published.
	ErrRatesUnavailable = errors.New("rates unavailable")

	// ErrNegativeAmount signals an invalid conversion request.
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrRefreshInFlight rejects a re-entrant provider refresh.
	ErrRefreshInFlight = errors.New("rate refresh already in flight")

	// ErrUnsupportedCurrency rejects a currency outside the configured set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)
