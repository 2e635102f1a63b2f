package market

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

// JSONSeries reads a daily series from an endpoint answering
// GET url?start=YYYY-MM-DD&end=YYYY-MM-DD with
//
//	[{"date":"2025-12-01","value":7.1}, ...]
type JSONSeries struct {
	fetcher *Fetcher
	url     string
}

func NewJSONSeries(f *Fetcher, endpoint string) *JSONSeries {
	return &JSONSeries{fetcher: f, url: endpoint}
}

type jsonPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func (s *JSONSeries) Series(ctx context.Context, from, to time.Time) ([]Point, error) {
	if s.url == "" {
		return nil, errors.New("market: series endpoint not configured")
	}
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, errors.Wrapf(err, "market: series url %q", s.url)
	}
	q := u.Query()
	q.Set("start", from.Format(DateLayout))
	q.Set("end", to.Format(DateLayout))
	u.RawQuery = q.Encode()

	body, err := s.fetcher.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var raw []jsonPoint
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "market: decode series")
	}
	points := make([]Point, 0, len(raw))
	for _, r := range raw {
		d, err := ParseDate(r.Date)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{Date: d, Value: r.Value})
	}
	return points, nil
}

// FixedRate returns value for each of the days calendar days ending at today.
func FixedRate(today time.Time, days int, value float64) []Point {
	today = DateOf(today)
	points := make([]Point, 0, days)
	for i := 0; i < days; i++ {
		points = append(points, Point{Date: today.AddDate(0, 0, -i), Value: value})
	}
	return points
}
