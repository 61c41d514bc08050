package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Symbol string `envconfig:"WATCH_SYMBOL" default:"SPY"`

	Transport  TransportConfig
	RateLimit  RateLimitConfig
	Request    RequestConfig
	Classifier ClassifierConfig
	Feed       FeedConfig
	Telegram   TelegramConfig
	Redis      RedisConfig
	Health     HealthConfig
	Logging    LoggingConfig
}

// TransportConfig controls the persistent channel and its fallbacks
type TransportConfig struct {
	StreamURL            string        `envconfig:"TRANSPORT_STREAM_URL" required:"false"`
	HeartbeatInterval    time.Duration `envconfig:"TRANSPORT_HEARTBEAT_INTERVAL" default:"30s"`
	ReconnectBaseDelay   time.Duration `envconfig:"TRANSPORT_RECONNECT_BASE_DELAY" default:"1s"`
	ReconnectMaxDelay    time.Duration `envconfig:"TRANSPORT_RECONNECT_MAX_DELAY" default:"16s"`
	MaxReconnectAttempts int           `envconfig:"TRANSPORT_MAX_RECONNECT_ATTEMPTS" default:"5"`
	PollInterval         time.Duration `envconfig:"TRANSPORT_POLL_INTERVAL" default:"30s"`
}

// RateLimitConfig controls the sliding-window request ceilings
type RateLimitConfig struct {
	PerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	PerHour   int `envconfig:"RATE_LIMIT_PER_HOUR" default:"1000"`
}

// RequestConfig controls the request executor defaults
type RequestConfig struct {
	Timeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	MaxRetries int           `envconfig:"REQUEST_MAX_RETRIES" default:"3"`
	BaseDelay  time.Duration `envconfig:"REQUEST_BASE_DELAY" default:"500ms"`
}

// ClassifierConfig controls regime scoring thresholds and the tick interval
type ClassifierConfig struct {
	TickInterval       time.Duration `envconfig:"CLASSIFIER_TICK_INTERVAL" default:"10m"`
	FearExtreme        float64       `envconfig:"CLASSIFIER_FEAR_EXTREME" default:"35"`
	FearSpike          float64       `envconfig:"CLASSIFIER_FEAR_SPIKE" default:"28"`
	FearComplacency    float64       `envconfig:"CLASSIFIER_FEAR_COMPLACENCY" default:"14"`
	PutCallBearish     float64       `envconfig:"CLASSIFIER_PUT_CALL_BEARISH" default:"1.2"`
	PutCallBullish     float64       `envconfig:"CLASSIFIER_PUT_CALL_BULLISH" default:"0.8"`
	BreadthNegative    float64       `envconfig:"CLASSIFIER_BREADTH_NEGATIVE" default:"0.7"`
	BreadthStrong      float64       `envconfig:"CLASSIFIER_BREADTH_STRONG" default:"1.5"`
	SentimentStrong    float64       `envconfig:"CLASSIFIER_SENTIMENT_STRONG" default:"0.5"`
	ReboundFromLowPct  float64       `envconfig:"CLASSIFIER_REBOUND_FROM_LOW_PCT" default:"0.05"`
	HistoryDepth       int           `envconfig:"CLASSIFIER_HISTORY_DEPTH" default:"250"`
	MinHistoryForScore int           `envconfig:"CLASSIFIER_MIN_HISTORY" default:"30"`
}

// FeedConfig controls the market data source
type FeedConfig struct {
	BaseURL   string `envconfig:"FEED_BASE_URL" required:"false"`
	Synthetic bool   `envconfig:"FEED_SYNTHETIC" default:"false"`
	NewsLimit int    `envconfig:"FEED_NEWS_LIMIT" default:"25"`
}

// TelegramConfig represents Telegram publication configuration
type TelegramConfig struct {
	BotToken        string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID          int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnRegime   bool   `envconfig:"TELEGRAM_ALERT_ON_REGIME" default:"true"`
	AlertOnDegraded bool   `envconfig:"TELEGRAM_ALERT_ON_DEGRADED" default:"true"`
}

// RedisConfig represents the optional local cache
type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_TTL" default:"1h"`
}

// HealthConfig represents the health endpoint
type HealthConfig struct {
	Port string `envconfig:"HEALTH_PORT" default:"8080"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("watch symbol is required")
	}

	if c.RateLimit.PerMinute < 1 {
		return fmt.Errorf("rate limit per minute must be at least 1")
	}
	if c.RateLimit.PerHour < c.RateLimit.PerMinute {
		return fmt.Errorf("hourly rate ceiling must be >= minute ceiling")
	}

	if c.Request.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.Request.Timeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.Transport.MaxReconnectAttempts < 1 {
		return fmt.Errorf("max reconnect attempts must be at least 1")
	}
	if c.Transport.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("reconnect base delay must be positive")
	}
	if c.Transport.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if !c.Feed.Synthetic && c.Feed.BaseURL == "" && c.Transport.StreamURL == "" {
		return fmt.Errorf("either a feed base URL, a stream URL, or synthetic mode is required")
	}

	if c.Classifier.TickInterval <= 0 {
		return fmt.Errorf("classification tick interval must be positive")
	}

	return nil
}
