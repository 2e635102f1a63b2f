package types

import "time"

// Config is the root configuration of the daemon, decoded by viper.
type Config struct {
	AppName     string          `mapstructure:"app_name"`
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	Jobs        JobsConfig      `mapstructure:"jobs"`
	ETL         ETLConfig       `mapstructure:"etl"`
	Database    DatabaseConfig  `mapstructure:"database"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Shutdown    ShutdownConfig  `mapstructure:"shutdown"`
	Logger      LoggerConfig    `mapstructure:"logger"`
}

// ShutdownConfig bounds the ordered shutdown sequence.
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}
