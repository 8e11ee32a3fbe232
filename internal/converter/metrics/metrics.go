package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "converter_rate_fetch_cycles_total",
		Help: "Rate fetch cycles by outcome.",
	}, []string{"result"})

	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "converter_rate_cache_reads_total",
		Help: "Snapshot cache reads by outcome.",
	}, []string{"result"})

	Conversions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "converter_conversions_total",
		Help: "Successful conversions.",
	})

	SeriesBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "converter_series_builds_total",
		Help: "Cross-rate series builds.",
	})
)

const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultReady       = "ready"
	ResultUnavailable = "unavailable"
	ResultCanceled    = "canceled"
)
