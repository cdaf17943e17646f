package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string         `yaml:"environment" default:"development"`
	Server      ServerConfig   `yaml:"server"`
	Logger      LoggerConfig   `yaml:"logger"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Storage     StorageConfig  `yaml:"storage"`
	Redis       RedisConfig    `yaml:"redis"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	ClickHouse  ClickHouse     `yaml:"clickhouse"`
	Upstream    UpstreamConfig `yaml:"upstream"`
	Stream      StreamConfig   `yaml:"stream"`
	Gateway     GatewayConfig  `yaml:"gateway"`
	Scoring     ScoringConfig  `yaml:"scoring"`
	Scan        ScanConfig     `yaml:"scan"`
	Alerts      AlertsConfig   `yaml:"alerts"`
	Assets      []string       `yaml:"assets"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       float64       `yaml:"rate_limit" default:"10"` // requests/s per client, 0 disables
	RateBurst       int           `yaml:"rate_burst" default:"20"`
}

type LoggerConfig struct {
	Level         string        `yaml:"level" default:"info"`
	Format        string        `yaml:"format" default:"json"`
	Output        string        `yaml:"output" default:"stdout"`
	CollectTopic  string        `yaml:"collect_topic" default:"oracle.logs"`
	CollectPeriod time.Duration `yaml:"collect_period" default:"30s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend" default:"memory"` // memory | postgres
	PostgresDSN string `yaml:"postgres_dsn"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"oracle"`
	PoolSize int    `yaml:"pool_size" default:"20"`
}

type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers"`
	Compression string   `yaml:"compression" default:"snappy"`
	Topics      struct {
		Signals       string `yaml:"signals" default:"oracle.signals"`
		Alerts        string `yaml:"alerts" default:"oracle.alerts"`
		Notifications string `yaml:"notifications" default:"oracle.notifications"`
		Ticks         string `yaml:"ticks" default:"oracle.ticks"`
	} `yaml:"topics"`
	Producer struct {
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"oracle-engine"`
		Workers    int           `yaml:"workers" default:"4"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"oracle.ticks.dlq"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"oracle"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

type UpstreamConfig struct {
	CoinGecko struct {
		BaseURL   string `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
		APIKey    string `yaml:"api_key"`
		PerMinute int    `yaml:"per_minute" default:"30"`
	} `yaml:"coingecko"`
	FearGreed struct {
		URL       string `yaml:"url" default:"https://api.alternative.me/fng/?limit=1"`
		PerMinute int    `yaml:"per_minute" default:"10"`
	} `yaml:"feargreed"`
	Timeout          time.Duration `yaml:"timeout" default:"10s"`
	Retries          int           `yaml:"retries" default:"2"`
	BreakerFailures  int           `yaml:"breaker_failures" default:"5"`
	BreakerOpenDelay time.Duration `yaml:"breaker_open_delay" default:"60s"`
}

type StreamConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url" default:"wss://ws.finnhub.io"`
	APIKey         string        `yaml:"api_key"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	Throttle       time.Duration `yaml:"throttle" default:"1s"`
	Publish        bool          `yaml:"publish"` // forward ticks to kafka instead of resolving in-process
}

type GatewayConfig struct {
	CacheTTL    time.Duration `yaml:"cache_ttl" default:"30s"`
	MaxEntries  int           `yaml:"max_entries" default:"512"`
	HistoryDays int           `yaml:"history_days" default:"30"`
	HistoryTTL  time.Duration `yaml:"history_ttl" default:"5m"`
	StaleTTL    time.Duration `yaml:"stale_ttl" default:"15m"`
	TickMaxAge  time.Duration `yaml:"tick_max_age" default:"2m"`
}

type ScoringConfig struct {
	NeutralBand  int    `yaml:"neutral_band" default:"5"`
	ModelVersion string `yaml:"model_version" default:"oracle-v3.0.0"`
}

type ScanConfig struct {
	Workers         int           `yaml:"workers" default:"4"`
	AssetTimeout    time.Duration `yaml:"asset_timeout" default:"20s"`
	Interval        time.Duration `yaml:"interval" default:"1h"`
	TimesOfDay      []string      `yaml:"times_of_day"`
	SweepInterval   time.Duration `yaml:"sweep_interval" default:"6h"`
	LockTTL         time.Duration `yaml:"lock_ttl" default:"10m"`
	QueueWorkers    int           `yaml:"queue_workers" default:"2"`
	ResultRetention time.Duration `yaml:"result_retention" default:"24h"`
}

type AlertsConfig struct {
	DefaultCooldown time.Duration `yaml:"default_cooldown" default:"60m"`
	WebhookTimeout  time.Duration `yaml:"webhook_timeout" default:"5s"`
}

// DefaultAssets is used when the config file lists none.
var DefaultAssets = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "AVAX", "DOT",
	"MATIC", "LINK", "UNI", "PEPE", "SHIB", "ARB", "OP", "APT", "SUI",
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes raw YAML, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Assets) == 0 {
		c.Assets = append([]string(nil), DefaultAssets...)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ORACLE_HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("ORACLE_POSTGRES_DSN"); v != "" {
		c.Storage.Backend = "postgres"
		c.Storage.PostgresDSN = v
	}
	if v := getenv("ORACLE_REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Enabled = true
		c.Redis.Host = host
		if p, err := strconv.Atoi(port); ok && err == nil {
			c.Redis.Port = p
		}
	}
	if v := getenv("ORACLE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("ORACLE_COINGECKO_API_KEY"); v != "" {
		c.Upstream.CoinGecko.APIKey = v
	}
	if v := getenv("ORACLE_STREAM_API_KEY"); v != "" {
		c.Stream.APIKey = v
	}
	if v := getenv("ORACLE_ASSETS"); v != "" {
		c.Assets = strings.Split(strings.ToUpper(v), ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'memory' or 'postgres', got '%s'", c.Storage.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Stream.Enabled && c.Stream.APIKey == "" {
		return fmt.Errorf("stream.api_key is required when the price stream is enabled")
	}
	if c.Scoring.NeutralBand < 0 || c.Scoring.NeutralBand >= 50 {
		return fmt.Errorf("scoring.neutral_band must be in [0,50), got %d", c.Scoring.NeutralBand)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if c.Gateway.CacheTTL <= 0 {
		return fmt.Errorf("gateway.cache_ttl must be positive")
	}
	for _, tod := range c.Scan.TimesOfDay {
		if _, err := time.Parse("15:04", tod); err != nil {
			return fmt.Errorf("scan.times_of_day entry %q is not HH:MM", tod)
		}
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets cannot be empty")
	}
	return nil
}
