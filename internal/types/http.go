package types

import "time"

// HTTPConfig for the API server
type HTTPConfig struct {
	Bind           string        `mapstructure:"bind"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}
