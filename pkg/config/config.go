package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Metrics struct {
		Path string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Upstream struct {
		BaseURL string        `yaml:"base_url" default:"https://api.exchange.coinbase.com"`
		Symbols []string      `yaml:"symbols"`
		Timeout time.Duration `yaml:"timeout" default:"4s"`
	} `yaml:"upstream"`
	Cycle struct {
		Interval       time.Duration `yaml:"interval" default:"15s"`
		Timeout        time.Duration `yaml:"timeout" default:"8s"`
		InteractiveGap time.Duration `yaml:"interactive_gap" default:"5s"`
		PersistGap     time.Duration `yaml:"persist_gap" default:"5m"`
		VolumeEvery    time.Duration `yaml:"volume_every" default:"1m"`
	} `yaml:"cycle"`
	Scorer struct {
		TopN         int     `yaml:"top_n" default:"10"`
		TableSize    int     `yaml:"table_size" default:"10"`
		WeightPct1m  float64 `yaml:"weight_pct_1m" default:"0.35"`
		WeightPct3m  float64 `yaml:"weight_pct_3m" default:"0.25"`
		WeightVolZ   float64 `yaml:"weight_vol_z" default:"0.3"`
		WeightStreak float64 `yaml:"weight_streak" default:"0.1"`
		WeightBody   float64 `yaml:"weight_body" default:"0.5"`
	} `yaml:"scorer"`
	Channels struct {
		Heartbeat        time.Duration `yaml:"heartbeat" default:"20s"`
		MissedHeartbeats int           `yaml:"missed_heartbeats" default:"2"`
		SendBuffer       int           `yaml:"send_buffer" default:"16"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"5s"`
		ConnectBurst     float64       `yaml:"connect_burst" default:"5"`
		ConnectPerSec    float64       `yaml:"connect_per_sec" default:"1"`
	} `yaml:"channels"`
	Snapshot struct {
		Key   string `yaml:"key" default:"global"`
		Store string `yaml:"store" default:"redis"`
	} `yaml:"snapshot"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"pumpradar"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pumpradar"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic" default:"pumpradar.signals"`
		TicksTopic   string   `yaml:"ticks_topic" default:"pumpradar.ticks"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"pumpradar"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"1s"`
			MaxTickRPS int           `yaml:"max_tick_rps" default:"20"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
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

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Upstream.Symbols = splitList(v)
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Upstream.Symbols) == 0 {
		return fmt.Errorf("upstream.symbols cannot be empty")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Snapshot.Store != "redis" && c.Snapshot.Store != "memory" {
		return fmt.Errorf("snapshot.store must be 'redis' or 'memory', got '%s'", c.Snapshot.Store)
	}
	if c.Cycle.Interval <= 0 {
		return fmt.Errorf("cycle.interval must be positive")
	}
	if c.Cycle.InteractiveGap > c.Cycle.PersistGap {
		return fmt.Errorf("cycle.interactive_gap must not exceed cycle.persist_gap")
	}
	if c.Channels.Heartbeat <= 0 {
		return fmt.Errorf("channels.heartbeat must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
