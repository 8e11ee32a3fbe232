package ecb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/SilverStorm2/currency-exchange-app/deploy/config"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

const (
	seriesFrequency = "D"
	seriesSuffix    = "SP00.A"

	acceptHeader = "application/vnd.sdmx.data+json;version=1.0.0-wd"
	dateLayout   = "2006-01-02"
)

// Client fetches reference rates from the ECB data API. Every series is
// quoted against the euro, one observation per business day, delivered in
// an SDMX-JSON envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    cfg.Source.URL,
		httpClient: &http.Client{Timeout: cfg.Source.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.Source.RPS), cfg.Source.Burst),
	}
}

// FetchLatest returns the most recent observed rate for one currency and
// the date it was observed on.
func (c *Client) FetchLatest(ctx context.Context, currency string) (float64, string, error) {
	const op = "ecb.FetchLatest"

	query := url.Values{}
	query.Set("lastNObservations", "1")
	query.Set("detail", "dataonly")

	doc, err := c.fetchSeries(ctx, currency, query)
	if err != nil {
		return 0, "", errors.Wrap(err, op)
	}

	value, date, err := extractLatest(doc)
	if err != nil {
		return 0, "", errors.Wrap(err, op)
	}

	return value, date, nil
}

// FetchRange returns the daily observations for one currency between start
// and end inclusive, keyed by date. Dates without an observation are simply
// absent: a sparse result is valid, not a failure.
func (c *Client) FetchRange(ctx context.Context, currency string, start, end time.Time) (map[string]float64, error) {
	const op = "ecb.FetchRange"

	query := url.Values{}
	query.Set("startPeriod", start.Format(dateLayout))
	query.Set("endPeriod", end.Format(dateLayout))
	query.Set("detail", "dataonly")

	doc, err := c.fetchSeries(ctx, currency, query)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return buildSeriesMap(doc), nil
}

func (c *Client) fetchSeries(ctx context.Context, currency string, query url.Values) (*sdmxDocument, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	seriesKey := fmt.Sprintf("%s.%s.%s.%s", seriesFrequency, currency, entities.Pivot, seriesSuffix)
	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, seriesKey, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(entities.ErrSourceRequest, err.Error())
	}

	req.Header.Set("Accept", acceptHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Cooperative cancellation is not a source failure.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errors.Wrap(entities.ErrSourceRequest, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(entities.ErrSourceRequest, "bad status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(entities.ErrSourceRequest, err.Error())
	}

	var doc sdmxDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(entities.ErrSourceData, err.Error())
	}

	return &doc, nil
}

type sdmxDocument struct {
	DataSets []struct {
		Series map[string]sdmxSeries `json:"series"`
	} `json:"dataSets"`
	Structure struct {
		Dimensions struct {
			Observation []struct {
				Values []struct {
					ID string `json:"id"`
				} `json:"values"`
			} `json:"observation"`
		} `json:"dimensions"`
	} `json:"structure"`
}

type sdmxSeries struct {
	Observations map[string][]*float64 `json:"observations"`
}

// observationDates returns the date dimension parallel to the observation
// indexes, or nil when the structure block is absent.
func (d *sdmxDocument) observationDates() []string {
	dims := d.Structure.Dimensions.Observation
	if len(dims) == 0 {
		return nil
	}

	dates := make([]string, len(dims[0].Values))
	for i, value := range dims[0].Values {
		dates[i] = value.ID
	}

	return dates
}

// soleSeries returns the single data series of the document. The EXR key
// fully qualifies one series, so the envelope carries exactly one.
func (d *sdmxDocument) soleSeries() (sdmxSeries, bool) {
	if len(d.DataSets) == 0 {
		return sdmxSeries{}, false
	}

	for _, series := range d.DataSets[0].Series {
		return series, true
	}

	return sdmxSeries{}, false
}

// extractLatest resolves the newest (value, date) pair of the document.
// Observation values and dates live in parallel arrays matched by index,
// so the zipping is bounds-checked rather than assumed.
func extractLatest(doc *sdmxDocument) (float64, string, error) {
	series, ok := doc.soleSeries()
	if !ok {
		return 0, "", errors.Wrap(entities.ErrSourceData, "no data series")
	}

	dates := doc.observationDates()

	latestIndex := -1
	var latestValue float64

	for key, observation := range series.Observations {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 {
			continue
		}
		if len(observation) == 0 || observation[0] == nil {
			continue
		}
		if index > latestIndex {
			latestIndex = index
			latestValue = *observation[0]
		}
	}

	if latestIndex < 0 {
		return 0, "", errors.Wrap(entities.ErrSourceData, "no observation value")
	}

	if latestIndex >= len(dates) || dates[latestIndex] == "" {
		return 0, "", errors.Wrap(entities.ErrSourceData, "no observation date")
	}

	return latestValue, dates[latestIndex], nil
}

// buildSeriesMap zips observation indexes to the date dimension. Entries
// with an out-of-range index or a missing value are dropped.
func buildSeriesMap(doc *sdmxDocument) map[string]float64 {
	result := make(map[string]float64)

	series, ok := doc.soleSeries()
	if !ok {
		return result
	}

	dates := doc.observationDates()

	for key, observation := range series.Observations {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= len(dates) {
			continue
		}
		if len(observation) == 0 || observation[0] == nil {
			continue
		}
		if date := dates[index]; date != "" {
			result[date] = *observation[0]
		}
	}

	return result
}
