package config

var DEFAULT_CONFIG_YAML = `
# sugarnexus Configuration File
# Environment: development, staging, production
# sugarnexus.yaml
app_name: "SugarNexus"
environment: "production"
log_level: "info"

scheduler:
  timezone: "Asia/Shanghai"   # IANA name; the host zone is never used
  tick_interval: 1s
  max_concurrent: 4

jobs:
  etl:
    id: "daily_etl"
    name: "Daily market data fetch"
    schedule: "0 2 * * *"     # minute hour day month day_of_week
    enabled: true
    timeout: 10m
    exclusive: false          # true makes manual triggers wait for a scheduled run
    reconcile_on_startup: true
    reconcile_fatal: true

etl:
  sugar_symbol: "SR0"
  fx_url: ""                  # JSON series of {date, value}; empty uses the fallback rate
  bdi_url: ""
  fx_lookback_days: 60
  window_days: 365
  fallback_fx_rate: 7.0
  http_timeout: 30s
  requests_per_sec: 2

database:
  host: "localhost"
  port: 5432
  user: "postgres"
  password: "password"
  name: "sugarnexus"
  sslmode: "disable"
  max_open_conns: 10
  max_idle_conns: 5
  conn_max_lifetime: 30m
  connect_timeout: 10s

http:
  bind: ":8000"
  read_timeout: 15s
  write_timeout: 15m          # manual triggers hold the request for the whole run
  allowed_origins: ["*"]

shutdown:
  timeout: 60s

logger:
  level: "info"
  format: "json"  # or "text"
  output: "stdout"  # stdout, stderr, file, null
  file_path: "/var/log/sugarnexus.log"
  timestamp_format: "2006-01-02T15:04:05.000Z07:00"
  show_caller: false
  colors: false   # No colors in production logs
  async: true
  buffer_size: 256  # KB
`
