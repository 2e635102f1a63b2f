package market

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Bar is one daily futures bar.
type Bar struct {
	Date  time.Time
	Open  *float64
	Close float64
}

// Point is one observation of a daily series.
type Point struct {
	Date  time.Time
	Value float64
}

// BarSource yields daily futures bars, oldest first.
type BarSource interface {
	DailyBars(ctx context.Context) ([]Bar, error)
}

// SeriesSource yields a daily series between from and to, inclusive.
type SeriesSource interface {
	Series(ctx context.Context, from, to time.Time) ([]Point, error)
}

const maxBodyBytes = 8 << 20

// Fetcher is a throttled HTTP GET shared by the upstream sources.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher returns a fetcher issuing at most perSec requests per second;
// perSec <= 0 disables throttling.
func NewFetcher(timeout time.Duration, perSec float64) *Fetcher {
	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Get returns the body of a 2xx response.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "market: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "market: build request %s", url)
	}
	req.Header.Set("User-Agent", "sugarnexus/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "market: GET %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "market: read %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("market: GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return body, nil
}
