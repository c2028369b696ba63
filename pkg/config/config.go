package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"DashPull/pkg/util"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	mainnetBaseURL = "https://api.bybit.com"
	testnetBaseURL = "https://api-testnet.bybit.com"

	// Spot stream to match the REST client's category=spot queries; the spot
	// tickers topic pushes full snapshots, not snapshot+delta.
	mainnetWSURL = "wss://stream.bybit.com/v5/public/spot"
	testnetWSURL = "wss://stream-testnet.bybit.com/v5/public/spot"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Bybit struct {
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		BaseURL        string        `yaml:"base_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		UseProduction  bool          `yaml:"use_production"`
		RecvWindow     string        `yaml:"recv_window"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		RetryDelay     time.Duration `yaml:"retry_delay"`
	} `yaml:"bybit"`
	Cache struct {
		Backend      string        `yaml:"backend"` // memory or redis
		BalanceTTL   time.Duration `yaml:"balance_ttl"`
		MarketTTL    time.Duration `yaml:"market_ttl"`
		HistoryTTL   time.Duration `yaml:"history_ttl"`
		PortfolioTTL time.Duration `yaml:"portfolio_ttl"`
		Redis        struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		MaxCallsPerWindow int           `yaml:"max_calls_per_window"`
		Window            time.Duration `yaml:"window"`
		RPS               float64       `yaml:"rps"`
		Burst             int           `yaml:"burst"`
	} `yaml:"ratelimit"`
	Breaker struct {
		MaxFailures int           `yaml:"max_failures"`
		Window      time.Duration `yaml:"window"`
		Cooldown    time.Duration `yaml:"cooldown"`
	} `yaml:"breaker"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file in the working directory is read first if present;
// real environment variables win over it.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("BYBIT_API_KEY"); v != "" {
		c.Bybit.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_SECRET"); v != "" {
		c.Bybit.APISecret = v
	}
	if v := os.Getenv("BYBIT_PRODUCTION_ENABLED"); v != "" {
		c.Bybit.UseProduction = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("BYBIT_BASE_URL"); v != "" {
		c.Bybit.BaseURL = v
	}
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// applyDefaults fills in everything safe to default. Credentials stay
// optional: without them the service runs public-data-only.
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Bybit.BaseURL == "" {
		if c.Bybit.UseProduction {
			c.Bybit.BaseURL = mainnetBaseURL
		} else {
			c.Bybit.BaseURL = testnetBaseURL
		}
	}
	if c.Bybit.WebSocketURL == "" {
		if c.Bybit.UseProduction {
			c.Bybit.WebSocketURL = mainnetWSURL
		} else {
			c.Bybit.WebSocketURL = testnetWSURL
		}
	}
	if c.Bybit.RecvWindow == "" {
		c.Bybit.RecvWindow = "20000"
	}
	if c.Bybit.RequestTimeout == 0 {
		c.Bybit.RequestTimeout = 5 * time.Second
	}
	if c.Bybit.RetryDelay == 0 {
		c.Bybit.RetryDelay = 250 * time.Millisecond
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.BalanceTTL == 0 {
		c.Cache.BalanceTTL = time.Minute
	}
	if c.Cache.MarketTTL == 0 {
		c.Cache.MarketTTL = 30 * time.Second
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = 2 * time.Minute
	}
	if c.Cache.PortfolioTTL == 0 {
		c.Cache.PortfolioTTL = 5 * time.Minute
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "dashpull"
	}

	if c.RateLimit.MaxCallsPerWindow == 0 {
		c.RateLimit.MaxCallsPerWindow = 600
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 8
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 16
	}

	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = 3
	}
	if c.Breaker.Window == 0 {
		c.Breaker.Window = 30 * time.Second
	}
	if c.Breaker.Cooldown == 0 {
		c.Breaker.Cooldown = time.Minute
	}

	if len(c.Stream.Symbols) == 0 {
		c.Stream.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = 5 * time.Second
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = 20 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if (c.Bybit.APIKey == "") != (c.Bybit.APISecret == "") {
		return fmt.Errorf("bybit.api_key and bybit.api_secret must be set together")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.RateLimit.MaxCallsPerWindow < 0 {
		return fmt.Errorf("ratelimit.max_calls_per_window cannot be negative")
	}
	return nil
}

// Authenticated reports whether API credentials are configured.
func (c *Config) Authenticated() bool {
	return c.Bybit.APIKey != "" && c.Bybit.APISecret != ""
}
