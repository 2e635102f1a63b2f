package types

import "time"

// SchedulerConfig configures the periodic job runner.
type SchedulerConfig struct {
	// Timezone is an IANA zone name. Cron expressions are evaluated in it,
	// never in the host's local zone.
	Timezone      string        `mapstructure:"timezone"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// JobsConfig holds the static job definitions.
type JobsConfig struct {
	ETL JobConfig `mapstructure:"etl"`
}

// JobConfig describes one recurring job.
type JobConfig struct {
	ID                 string        `mapstructure:"id"`
	Name               string        `mapstructure:"name"`
	Schedule           string        `mapstructure:"schedule"`
	Enabled            bool          `mapstructure:"enabled"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Exclusive          bool          `mapstructure:"exclusive"`
	ReconcileOnStartup bool          `mapstructure:"reconcile_on_startup"`
	ReconcileFatal     bool          `mapstructure:"reconcile_fatal"`
}
