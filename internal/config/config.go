// config/config.go
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/amir-mohammad-HP/sugarnexus/internal/scheduler"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const configName = "sugarnexus"

// Default configuration values
var defaultConfig = types.Config{
	AppName:     "SugarNexus",
	Environment: "development",
	LogLevel:    "info",
	Scheduler: types.SchedulerConfig{
		Timezone:      "Asia/Shanghai",
		TickInterval:  time.Second,
		MaxConcurrent: 4,
	},
	Jobs: types.JobsConfig{
		ETL: types.JobConfig{
			ID:                 "daily_etl",
			Name:               "Daily market data fetch",
			Schedule:           "0 2 * * *",
			Enabled:            true,
			Timeout:            10 * time.Minute,
			Exclusive:          false,
			ReconcileOnStartup: true,
			ReconcileFatal:     true,
		},
	},
	ETL: types.ETLConfig{
		SugarURL:       "https://stock2.finance.sina.com.cn/futures/api/jsonp.php/var%20_SR0=/InnerFuturesNewService.getDailyKLine",
		SugarSymbol:    "SR0",
		FXURL:          "",
		BDIURL:         "",
		FXLookbackDays: 60,
		WindowDays:     365,
		FallbackFXRate: 7.0,
		HTTPTimeout:    30 * time.Second,
		RequestsPerSec: 2,
	},
	Database: types.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "password",
		Name:            "sugarnexus",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	},
	HTTP: types.HTTPConfig{
		Bind:           ":8000",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Minute,
		AllowedOrigins: []string{"*"},
	},
	Shutdown: types.ShutdownConfig{
		Timeout: 30 * time.Second,
	},
	Logger: types.LoggerConfig{
		Level:           "info",
		Format:          "text",
		Output:          "stdout",
		FilePath:        "",
		TimestampFormat: "2006-01-02 15:04:05.000",
		ShowCaller:      false,
		Colors:          true,
		Async:           false,
		BufferSize:      256,
	},
}

// Defaults returns a copy of the built-in configuration.
func Defaults() types.Config {
	cfg := defaultConfig
	cfg.HTTP.AllowedOrigins = append([]string(nil), defaultConfig.HTTP.AllowedOrigins...)
	return cfg
}

// getSystemConfigPath returns the OS-specific configuration directory
func getSystemConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %PROGRAMDATA%\sugarnexus
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = "C:\\ProgramData"
		}
		configDir = filepath.Join(programData, configName)

	case "darwin":
		configDir = "/Library/Application Support/sugarnexus"

	case "linux", "freebsd", "openbsd", "netbsd":
		configDir = "/etc/sugarnexus"

	default:
		return "", errors.Newf("unsupported operating system: %s", runtime.GOOS)
	}

	return configDir, nil
}

// getConfigDirs returns the directories searched for sugarnexus.yaml, first found wins.
func getConfigDirs() ([]string, error) {
	systemConfigDir, err := getSystemConfigPath()
	if err != nil {
		return nil, err
	}

	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", configName))
	}
	return append(dirs, systemConfigDir), nil
}

// Loader reads configuration with its own viper instance.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load reads configuration from an explicit file (when path is not empty)
// or from the search path, then applies SUGARNEXUS_* environment overrides
// on top of the defaults.
func (l *Loader) Load(path string) (*types.Config, error) {
	v := l.v
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		dirs, err := getConfigDirs()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get config paths")
		}
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	v.SetEnvPrefix("SUGARNEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file Load read, or "" when only defaults and
// environment were used.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load is a convenience wrapper around a fresh Loader.
func Load(path string) (*types.Config, error) {
	return NewLoader().Load(path)
}

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *types.Config) error {
	switch {
	case cfg.Scheduler.Timezone == "" || strings.EqualFold(cfg.Scheduler.Timezone, "Local"):
		return errors.WithHint(
			errors.New("config: scheduler.timezone must be an IANA zone name"),
			"the host's local zone is never used for schedules",
		)
	case cfg.Scheduler.TickInterval <= 0 || cfg.Scheduler.TickInterval > time.Minute:
		return errors.Newf("config: scheduler.tick_interval %s must be in (0, 1m]", cfg.Scheduler.TickInterval)
	case cfg.Jobs.ETL.ID == "":
		return errors.New("config: jobs.etl.id is required")
	case cfg.Jobs.ETL.Schedule == "":
		return errors.New("config: jobs.etl.schedule is required")
	case cfg.ETL.WindowDays <= 0:
		return errors.New("config: etl.window_days must be positive")
	}
	if err := scheduler.CheckSchedule(cfg.Jobs.ETL.Schedule, time.Now()); err != nil {
		return errors.Wrap(err, "config: jobs.etl.schedule")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig
	v.SetDefault("app_name", d.AppName)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("scheduler.timezone", d.Scheduler.Timezone)
	v.SetDefault("scheduler.tick_interval", d.Scheduler.TickInterval)
	v.SetDefault("scheduler.max_concurrent", d.Scheduler.MaxConcurrent)

	v.SetDefault("jobs.etl.id", d.Jobs.ETL.ID)
	v.SetDefault("jobs.etl.name", d.Jobs.ETL.Name)
	v.SetDefault("jobs.etl.schedule", d.Jobs.ETL.Schedule)
	v.SetDefault("jobs.etl.enabled", d.Jobs.ETL.Enabled)
	v.SetDefault("jobs.etl.timeout", d.Jobs.ETL.Timeout)
	v.SetDefault("jobs.etl.exclusive", d.Jobs.ETL.Exclusive)
	v.SetDefault("jobs.etl.reconcile_on_startup", d.Jobs.ETL.ReconcileOnStartup)
	v.SetDefault("jobs.etl.reconcile_fatal", d.Jobs.ETL.ReconcileFatal)

	v.SetDefault("etl.sugar_url", d.ETL.SugarURL)
	v.SetDefault("etl.sugar_symbol", d.ETL.SugarSymbol)
	v.SetDefault("etl.fx_url", d.ETL.FXURL)
	v.SetDefault("etl.bdi_url", d.ETL.BDIURL)
	v.SetDefault("etl.fx_lookback_days", d.ETL.FXLookbackDays)
	v.SetDefault("etl.window_days", d.ETL.WindowDays)
	v.SetDefault("etl.fallback_fx_rate", d.ETL.FallbackFXRate)
	v.SetDefault("etl.http_timeout", d.ETL.HTTPTimeout)
	v.SetDefault("etl.requests_per_sec", d.ETL.RequestsPerSec)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.connect_timeout", d.Database.ConnectTimeout)

	v.SetDefault("http.bind", d.HTTP.Bind)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)

	v.SetDefault("shutdown.timeout", d.Shutdown.Timeout)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output", d.Logger.Output)
	v.SetDefault("logger.file_path", d.Logger.FilePath)
	v.SetDefault("logger.timestamp_format", d.Logger.TimestampFormat)
	v.SetDefault("logger.show_caller", d.Logger.ShowCaller)
	v.SetDefault("logger.colors", d.Logger.Colors)
	v.SetDefault("logger.async", d.Logger.Async)
	v.SetDefault("logger.buffer_size", d.Logger.BufferSize)
}

// GetSystemConfigDir returns the system-wide configuration directory
func GetSystemConfigDir() (string, error) {
	return getSystemConfigPath()
}

// CreateDefaultConfig writes the default configuration into dir, or into
// the system config directory when dir is empty. It returns the file path.
func CreateDefaultConfig(dir string) (string, error) {
	if dir == "" {
		var err error
		if dir, err = getSystemConfigPath(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create config directory")
	}

	configPath := filepath.Join(dir, configName+".yaml")
	if _, err := os.Stat(configPath); err == nil {
		return configPath, errors.Newf("config file %s already exists", configPath)
	}

	if err := os.WriteFile(configPath, []byte(DEFAULT_CONFIG_YAML), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write config file")
	}
	return configPath, nil
}
