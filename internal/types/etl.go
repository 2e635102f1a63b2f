package types

import "time"

// ETLConfig configures the market data pipeline.
type ETLConfig struct {
	SugarURL       string        `mapstructure:"sugar_url"`
	SugarSymbol    string        `mapstructure:"sugar_symbol"`
	FXURL          string        `mapstructure:"fx_url"`
	BDIURL         string        `mapstructure:"bdi_url"`
	FXLookbackDays int           `mapstructure:"fx_lookback_days"`
	WindowDays     int           `mapstructure:"window_days"`
	FallbackFXRate float64       `mapstructure:"fallback_fx_rate"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
}
