/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package forecast fetches today's high and low from Open-Meteo.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/maypok86/otter/v2"
)

const (
	DefaultURL = "https://api.open-meteo.com/v1/forecast"

	userAgent = "weathrguessr/1.0"
)

// ErrNoData is returned when Open-Meteo answers without a daily value.
var ErrNoData = errors.New("forecast response has no daily values")

// Daily is one day's high and low, rounded to whole degrees Celsius.
type Daily struct {
	High int `json:"high"`
	Low  int `json:"low"`
}

type response struct {
	Daily struct {
		Max []*float64 `json:"temperature_2m_max"`
		Min []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

type Options struct {
	// BaseURL defaults to DefaultURL.
	BaseURL string

	HTTPClient *http.Client

	// Attempts is the number of tries per lookup. Values below 1 mean 1.
	Attempts uint

	// CacheTTL keeps results per location for this long. Zero disables
	// caching.
	CacheTTL time.Duration

	// Logf, if set, receives retry and cache diagnostics.
	Logf func(format string, args ...any)
}

type Client struct {
	baseURL  string
	http     *http.Client
	attempts uint
	cache    *otter.Cache[string, Daily]
	logf     func(format string, args ...any)
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:  opts.BaseURL,
		http:     opts.HTTPClient,
		attempts: opts.Attempts,
		logf:     opts.Logf,
	}

	if c.baseURL == "" {
		c.baseURL = DefaultURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}

	if opts.CacheTTL > 0 {
		c.cache = otter.Must(&otter.Options[string, Daily]{
			MaximumSize:      10_000,
			ExpiryCalculator: otter.ExpiryWriting[string, Daily](opts.CacheTTL),
		})
	}

	return c
}

// HighLow satisfies game.Forecaster.
func (c *Client) HighLow(ctx context.Context, lat, lon float64) (int, int, error) {
	d, err := c.Daily(ctx, lat, lon)
	if err != nil {
		return 0, 0, err
	}

	return d.High, d.Low, nil
}

// Daily returns today's forecast for the given coordinates, in the
// location's own time zone.
func (c *Client) Daily(ctx context.Context, lat, lon float64) (Daily, error) {
	key := cacheKey(lat, lon)

	if c.cache != nil {
		if d, ok := c.cache.GetIfPresent(key); ok {
			c.logf("FORECAST: Cache hit for %s", key)

			return d, nil
		}
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")

	var body []byte
	err := c.do(ctx, c.baseURL+"?"+q.Encode(), func(b []byte) {
		body = b
	})
	if err != nil {
		return Daily{}, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return Daily{}, fmt.Errorf("decoding forecast: %w", err)
	}

	if len(resp.Daily.Max) == 0 || len(resp.Daily.Min) == 0 ||
		resp.Daily.Max[0] == nil || resp.Daily.Min[0] == nil {
		return Daily{}, ErrNoData
	}

	d := Daily{
		High: round(*resp.Daily.Max[0]),
		Low:  round(*resp.Daily.Min[0]),
	}

	if c.cache != nil {
		c.cache.Set(key, d)
	}

	return d, nil
}

// Ping checks that the forecast API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("latitude", "40.7128")
	q.Set("longitude", "-74.0060")
	q.Set("daily", "temperature_2m_max")
	q.Set("forecast_days", "1")

	return c.do(ctx, c.baseURL+"?"+q.Encode(), nil)
}

// do issues a GET, retrying transport errors and server-side failures up
// to c.attempts times. Client errors are not retried.
func (c *Client) do(ctx context.Context, target string, handle func([]byte)) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("User-Agent", userAgent)

			resp, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("requesting forecast: %w", err)
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return fmt.Errorf("reading forecast: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				statusErr := fmt.Errorf("weather API error: %d", resp.StatusCode)
				if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
					return statusErr
				}

				return retry.Unrecoverable(statusErr)
			}

			if handle != nil {
				handle(body)
			}

			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(250*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logf("FORECAST: Retrying (attempt %d): %v", n+1, err)
		}),
	)
}

func cacheKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}

// round matches the browser's Math.round, which sends halves up.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}
