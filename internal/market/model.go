// Package market collects and stores daily sugar market indicators: the
// Zhengzhou sugar futures close, the USD/CNY rate, the Baltic Dry Index
// and a derived import cost estimate.
package market

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// DateLayout is the wire and query format of record dates.
const DateLayout = "2006-01-02"

// ErrNotFound is returned when no row matches a query.
var ErrNotFound = errors.New("market: no data")

// MarketDaily is one trading day. RecordDate is a calendar date stored at
// midnight UTC.
type MarketDaily struct {
	RecordDate         time.Time
	SugarClose         float64
	SugarOpen          *float64
	USDCNYRate         float64
	BDIIndex           *float64
	ImportCostEstimate *float64
	UpdatedAt          time.Time
}

type marketDailyJSON struct {
	RecordDate         string    `json:"record_date"`
	SugarClose         float64   `json:"sugar_close"`
	SugarOpen          *float64  `json:"sugar_open"`
	USDCNYRate         float64   `json:"usd_cny_rate"`
	BDIIndex           *float64  `json:"bdi_index"`
	ImportCostEstimate *float64  `json:"import_cost_estimate"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (m MarketDaily) MarshalJSON() ([]byte, error) {
	return json.Marshal(marketDailyJSON{
		RecordDate:         m.RecordDate.Format(DateLayout),
		SugarClose:         m.SugarClose,
		SugarOpen:          m.SugarOpen,
		USDCNYRate:         m.USDCNYRate,
		BDIIndex:           m.BDIIndex,
		ImportCostEstimate: m.ImportCostEstimate,
		UpdatedAt:          m.UpdatedAt,
	})
}

// ParseDate parses a YYYY-MM-DD date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "market: invalid date %q", s)
	}
	return d, nil
}

// DateOf truncates t to its calendar date in t's own location and returns
// that date at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func float(v float64) *float64 { return &v }
