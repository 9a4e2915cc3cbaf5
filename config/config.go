package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Coinbase CoinbaseConfig `mapstructure:"coinbase"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Log      LogConfig      `mapstructure:"log"`
}

type CoinbaseConfig struct {
	Products    []string   `mapstructure:"products"`
	RefreshCron string     `mapstructure:"refresh_cron"` // re-resolve products against the catalog
	REST        RESTConfig `mapstructure:"rest"`
	WS          WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WSConfig struct {
	URL              string        `mapstructure:"url"`
	Channels         []string      `mapstructure:"channels"`
	Timeout          time.Duration `mapstructure:"timeout"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"` // 0 retries forever
	RetryDelay       time.Duration `mapstructure:"retry_delay"` // doubled on every failed attempt
}

// ChartConfig controls the rolling window and the rendered figure.
type ChartConfig struct {
	MaxPointsPerSeries int           `mapstructure:"max_points_per_series"`
	Title              string        `mapstructure:"title"`
	XAxisTitle         string        `mapstructure:"x_axis_title"`
	YAxisTitle         string        `mapstructure:"y_axis_title"`
	LineWidth          int           `mapstructure:"line_width"`
	RangePolicy        string        `mapstructure:"range_policy"` // "latest" or "union"
	Overlay            OverlayConfig `mapstructure:"overlay"`
}

// OverlayConfig draws short and long moving averages over every series.
type OverlayConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	ShortWindow int  `mapstructure:"short_window"`
	LongWindow  int  `mapstructure:"long_window"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects where accepted samples are persisted.
type StorageConfig struct {
	Driver    string        `mapstructure:"driver"` // "none", "postgres" or "sqlite"
	Retention time.Duration `mapstructure:"retention"`
	PurgeCron string        `mapstructure:"purge_cron"`
	StatsCron string        `mapstructure:"stats_cron"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads config.yaml when one is found and overrides with environment variables.
// CONFIG_PATH points at an explicit file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")

		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
		v.AddConfigPath("./config")
	}

	// Support environment variables with dot notation (e.g., CHART_MAX_POINTS_PER_SERIES)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coinbase.products", []string{"BTC-USD", "ETH-USD"})
	v.SetDefault("coinbase.refresh_cron", "0 0 0 * * *")
	v.SetDefault("coinbase.rest.base_url", "https://api.exchange.coinbase.com")
	v.SetDefault("coinbase.rest.timeout", 10*time.Second)
	v.SetDefault("coinbase.ws.url", "wss://ws-feed.exchange.coinbase.com")
	v.SetDefault("coinbase.ws.channels", []string{"ticker", "heartbeat"})
	v.SetDefault("coinbase.ws.timeout", 10*time.Second)
	v.SetDefault("coinbase.ws.ping_interval", 30*time.Second)
	v.SetDefault("coinbase.ws.heartbeat_timeout", 60*time.Second)
	v.SetDefault("coinbase.ws.max_retries", 0)
	v.SetDefault("coinbase.ws.retry_delay", 5*time.Second)

	v.SetDefault("chart.max_points_per_series", 100)
	v.SetDefault("chart.title", "Real-Time Cryptocurrency Prices")
	v.SetDefault("chart.x_axis_title", "Time")
	v.SetDefault("chart.y_axis_title", "Price (USD)")
	v.SetDefault("chart.line_width", 2)
	v.SetDefault("chart.range_policy", "union")
	v.SetDefault("chart.overlay.enabled", false)
	v.SetDefault("chart.overlay.short_window", 10)
	v.SetDefault("chart.overlay.long_window", 50)

	v.SetDefault("server.addr", ":8050")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.retention", 24*time.Hour)
	v.SetDefault("storage.purge_cron", "0 */10 * * * *")
	v.SetDefault("storage.stats_cron", "*/30 * * * * *")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.dbname", "livechart")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("sqlite.path", "data/livechart.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")
}

// Validate checks the values Load cannot express through defaults alone.
func (c *Config) Validate() error {
	if len(c.Coinbase.Products) == 0 {
		return errors.New("config: coinbase.products must not be empty")
	}
	if c.Coinbase.WS.URL == "" {
		return errors.New("config: coinbase.ws.url is required")
	}
	if c.Coinbase.WS.RetryDelay <= 0 {
		return fmt.Errorf("config: coinbase.ws.retry_delay must be > 0, got %s", c.Coinbase.WS.RetryDelay)
	}
	if c.Coinbase.REST.Timeout <= 0 {
		return fmt.Errorf("config: coinbase.rest.timeout must be > 0, got %s", c.Coinbase.REST.Timeout)
	}
	if c.Coinbase.WS.MaxRetries < 0 {
		return fmt.Errorf("config: coinbase.ws.max_retries must be >= 0, got %d", c.Coinbase.WS.MaxRetries)
	}
	if c.Chart.MaxPointsPerSeries <= 0 {
		return fmt.Errorf("config: chart.max_points_per_series must be > 0, got %d", c.Chart.MaxPointsPerSeries)
	}
	if o := c.Chart.Overlay; o.Enabled {
		if o.ShortWindow <= 0 || o.LongWindow <= o.ShortWindow {
			return fmt.Errorf("config: chart.overlay needs 0 < short_window < long_window, got %d and %d",
				o.ShortWindow, o.LongWindow)
		}
		if o.LongWindow > c.Chart.MaxPointsPerSeries {
			return fmt.Errorf("config: chart.overlay.long_window %d exceeds chart.max_points_per_series %d",
				o.LongWindow, c.Chart.MaxPointsPerSeries)
		}
	}
	switch c.Chart.RangePolicy {
	case "latest", "union":
	default:
		return fmt.Errorf("config: unknown chart.range_policy %q", c.Chart.RangePolicy)
	}
	switch c.Storage.Driver {
	case "none", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.SQLite.Path == "" {
		return errors.New("config: sqlite.path is required for the sqlite driver")
	}
	return nil
}
