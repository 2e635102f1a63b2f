package market

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// SinaFutures reads daily K-line bars from Sina's futures JSONP endpoint.
// The payload looks like
//
//	var _SR0=([{"d":"2025-12-01","o":"5500","h":"5530","l":"5480","c":"5512","v":"123"}]);
type SinaFutures struct {
	fetcher *Fetcher
	baseURL string
	symbol  string
	now     func() time.Time
}

func NewSinaFutures(f *Fetcher, baseURL, symbol string) *SinaFutures {
	return &SinaFutures{fetcher: f, baseURL: baseURL, symbol: symbol, now: time.Now}
}

type sinaBar struct {
	D string `json:"d"`
	O string `json:"o"`
	C string `json:"c"`
}

func (s *SinaFutures) DailyBars(ctx context.Context) ([]Bar, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "market: sina url %q", s.baseURL)
	}
	q := u.Query()
	q.Set("symbol", s.symbol)
	q.Set("type", s.now().Format("2006_01_02"))
	u.RawQuery = q.Encode()

	body, err := s.fetcher.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	return parseSinaJSONP(body)
}

func parseSinaJSONP(body []byte) ([]Bar, error) {
	start := bytes.Index(body, []byte("(["))
	end := bytes.LastIndex(body, []byte("])"))
	if start < 0 || end < start {
		return nil, errors.New("market: sina payload is not a JSONP array")
	}

	var raw []sinaBar
	if err := json.Unmarshal(body[start+1:end+1], &raw); err != nil {
		return nil, errors.Wrap(err, "market: decode sina payload")
	}

	bars := make([]Bar, 0, len(raw))
	for _, r := range raw {
		d, err := ParseDate(r.D)
		if err != nil {
			return nil, err
		}
		closePx, err := strconv.ParseFloat(strings.TrimSpace(r.C), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "market: sina close on %s", r.D)
		}
		bar := Bar{Date: d, Close: closePx}
		if o, err := strconv.ParseFloat(strings.TrimSpace(r.O), 64); err == nil {
			bar.Open = float(o)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
