package entities

import "time"

// RateTable maps a currency code to its rate expressed as units of that
// currency per one unit of the pivot. A table is usable only when it holds
// a numeric entry for every supported currency, the pivot included.
type RateTable map[string]float64

// RateSnapshot is the unit of rate consistency: a complete table plus the
// date the observations were published and the moment they were fetched.
// A snapshot is replaced as a whole, never patched field by field.
type RateSnapshot struct {
	Rates           RateTable `json:"rates"`
	ObservationDate string    `json:"lastUpdated,omitempty"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// Clone returns an independent copy so consumers cannot mutate the
// snapshot owned by the provider.
func (s *RateSnapshot) Clone() *RateSnapshot {
	if s == nil {
		return nil
	}

	rates := make(RateTable, len(s.Rates))
	for code, rate := range s.Rates {
		rates[code] = rate
	}

	return &RateSnapshot{
		Rates:           rates,
		ObservationDate: s.ObservationDate,
		FetchedAt:       s.FetchedAt,
	}
}

// TimeSeriesPoint is one daily cross-rate observation.
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}
