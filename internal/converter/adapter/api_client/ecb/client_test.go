package ecb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SilverStorm2/currency-exchange-app/deploy/config"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

const latestFixture = `{
	"dataSets": [{
		"series": {
			"0:0:0:0:0": {
				"observations": {
					"0": [4.32],
					"1": [4.35],
					"2": [4.31]
				}
			}
		}
	}],
	"structure": {
		"dimensions": {
			"observation": [{
				"values": [
					{"id": "2026-08-26"},
					{"id": "2026-08-27"},
					{"id": "2026-08-28"}
				]
			}]
		}
	}
}`

const sparseFixture = `{
	"dataSets": [{
		"series": {
			"0:0:0:0:0": {
				"observations": {
					"0": [1.10],
					"2": [1.12],
					"7": [9.99],
					"bad": [5.55]
				}
			}
		}
	}],
	"structure": {
		"dimensions": {
			"observation": [{
				"values": [
					{"id": "2026-08-24"},
					{"id": "2026-08-25"},
					{"id": "2026-08-26"}
				]
			}]
		}
	}
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Source.URL = server.URL
	cfg.Source.Timeout = 5 * time.Second
	cfg.Source.RPS = 1000
	cfg.Source.Burst = 1000

	return NewClient(cfg)
}

func TestFetchLatest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("picks the newest observation", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			asserts.Contains(r.URL.Path, "D.PLN.EUR.SP00.A")
			asserts.Equal("1", r.URL.Query().Get("lastNObservations"))
			asserts.Equal("dataonly", r.URL.Query().Get("detail"))
			asserts.Contains(r.Header.Get("Accept"), "application/vnd.sdmx.data+json")

			fmt.Fprint(w, latestFixture)
		}))

		value, date, err := client.FetchLatest(ctx, "PLN")

		asserts.NoError(err)
		asserts.Equal(4.31, value)
		asserts.Equal("2026-08-28", date)
	})

	t.Run("skips null observations when picking the newest", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, fixtureHandler(`{
			"dataSets": [{"series": {"0:0:0:0:0": {"observations": {"0": [4.32], "1": [null]}}}}],
			"structure": {"dimensions": {"observation": [{"values": [{"id": "2026-08-27"}, {"id": "2026-08-28"}]}]}}
		}`))

		value, date, err := client.FetchLatest(ctx, "PLN")

		asserts.NoError(err)
		asserts.Equal(4.32, value)
		asserts.Equal("2026-08-27", date)
	})

	t.Run("bad status is a source request failure", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, _, err := client.FetchLatest(ctx, "PLN")

		asserts.ErrorIs(err, entities.ErrSourceRequest)
	})

	t.Run("malformed payload is a source data failure", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, fixtureHandler(`{"dataSets": [`))

		_, _, err := client.FetchLatest(ctx, "PLN")

		asserts.ErrorIs(err, entities.ErrSourceData)
	})

	t.Run("an empty envelope is a source data failure", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, fixtureHandler(`{"dataSets": [], "structure": {}}`))

		_, _, err := client.FetchLatest(ctx, "PLN")

		asserts.ErrorIs(err, entities.ErrSourceData)
	})

	t.Run("an observation without a date is a source data failure", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, fixtureHandler(`{
			"dataSets": [{"series": {"0:0:0:0:0": {"observations": {"3": [4.32]}}}}],
			"structure": {"dimensions": {"observation": [{"values": [{"id": "2026-08-28"}]}]}}
		}`))

		_, _, err := client.FetchLatest(ctx, "PLN")

		asserts.ErrorIs(err, entities.ErrSourceData)
	})

	t.Run("cancellation is not a source failure", func(t *testing.T) {
		asserts := require.New(t)
		started := make(chan struct{})
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		}))

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			<-started
			cancel()
		}()

		_, _, err := client.FetchLatest(cancelCtx, "PLN")

		asserts.ErrorIs(err, context.Canceled)
		asserts.NotErrorIs(err, entities.ErrSourceRequest)
	})
}

func TestFetchRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("zips observations to their dates", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			asserts.Equal("2026-08-21", r.URL.Query().Get("startPeriod"))
			asserts.Equal("2026-08-28", r.URL.Query().Get("endPeriod"))

			fmt.Fprint(w, latestFixture)
		}))

		start := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

		series, err := client.FetchRange(ctx, "PLN", start, end)

		asserts.NoError(err)
		asserts.Equal(map[string]float64{
			"2026-08-26": 4.32,
			"2026-08-27": 4.35,
			"2026-08-28": 4.31,
		}, series)
	})

	t.Run("drops unmatched and malformed indexes", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, fixtureHandler(sparseFixture))

		series, err := client.FetchRange(ctx, "USD", time.Now().AddDate(0, 0, -7), time.Now())

		asserts.NoError(err)
		asserts.Equal(map[string]float64{
			"2026-08-24": 1.10,
			"2026-08-26": 1.12,
		}, series)
	})

	t.Run("an empty envelope yields an empty series", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, fixtureHandler(`{"dataSets": [], "structure": {}}`))

		series, err := client.FetchRange(ctx, "USD", time.Now().AddDate(0, 0, -7), time.Now())

		asserts.NoError(err)
		asserts.Empty(series)
	})

	t.Run("bad status is a source request failure", func(t *testing.T) {
		asserts := require.New(t)
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := client.FetchRange(ctx, "USD", time.Now().AddDate(0, 0, -7), time.Now())

		asserts.ErrorIs(err, entities.ErrSourceRequest)
	})
}

func fixtureHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	})
}
