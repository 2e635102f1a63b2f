package market

import (
	"math"
	"sort"
	"time"
)

// Import cost model: 22 US cents/lb raw sugar, 22.0462 lb per 100 kg,
// 1.5 tariff factor, freight approximated as BDI/10 + 200 CNY/t.
const (
	rawSugarCents = 22
	lbPer100Kg    = 22.0462
	tariffFactor  = 1.5
)

// perHundredThreshold separates per-1-USD quotes from per-100-USD quotes.
const perHundredThreshold = 50

// Inputs are the extracted series for one run.
type Inputs struct {
	Sugar []Bar
	FX    []Point
	BDI   []Point
}

// Transform joins FX and BDI onto sugar trading days, forward fills gaps in
// date order, keeps rows dated within windowDays of today, derives the
// import cost estimate and drops rows that still lack a value: no open
// price, no rate or no index.
// Rows are returned oldest first with UpdatedAt set to now.
func Transform(in Inputs, today time.Time, windowDays int, now time.Time) []MarketDaily {
	fx := make(map[time.Time]float64, len(in.FX))
	for _, p := range in.FX {
		v := p.Value
		if v > perHundredThreshold {
			v /= 100
		}
		fx[DateOf(p.Date)] = v
	}
	bdi := make(map[time.Time]float64, len(in.BDI))
	for _, p := range in.BDI {
		bdi[DateOf(p.Date)] = p.Value
	}

	bars := make([]Bar, len(in.Sugar))
	copy(bars, in.Sugar)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	cutoff := DateOf(today).AddDate(0, 0, -windowDays)

	var (
		lastRate, lastBDI *float64
		out               []MarketDaily
	)
	for _, b := range bars {
		day := DateOf(b.Date)
		if v, ok := fx[day]; ok {
			lastRate = float(v)
		}
		if v, ok := bdi[day]; ok {
			lastBDI = float(v)
		}
		if day.Before(cutoff) || b.Open == nil || lastRate == nil || lastBDI == nil {
			continue
		}

		out = append(out, MarketDaily{
			RecordDate:         day,
			SugarClose:         b.Close,
			SugarOpen:          b.Open,
			USDCNYRate:         *lastRate,
			BDIIndex:           float(*lastBDI),
			ImportCostEstimate: float(ImportCost(*lastRate, *lastBDI)),
			UpdatedAt:          now,
		})
	}
	return out
}

// ImportCost estimates the landed cost of imported sugar in CNY/t.
func ImportCost(rate, bdi float64) float64 {
	return round2(rawSugarCents*rate*lbPer100Kg*tariffFactor + (bdi/10 + 200))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
