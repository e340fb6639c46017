// Package config loads studyclock settings from STUDYCLOCK_* environment
// variables on top of built-in defaults. Invalid values are ignored.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TimerConfig controls the stopwatch loop.
type TimerConfig struct {
	TickInterval      time.Duration
	AutoFlushInterval time.Duration
	// AutoFlushMinimum is the least unflushed time an autoflush will submit.
	AutoFlushMinimum time.Duration
}

// APIConfig describes the study-session backend the client talks to.
type APIConfig struct {
	Endpoint      string
	TimeoutMs     int
	BeaconTimeout time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	LogCalls      bool
}

// OutboxConfig controls replay of undelivered records.
type OutboxConfig struct {
	BatchSize   int
	MaxAttempts int
	ReplayRPS   float64
}

// ServerConfig holds settings for the reference backend.
type ServerConfig struct {
	Addr            string
	DBPath          string
	AllowedOrigins  []string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// LogConfig selects level and output format for slog.
type LogConfig struct {
	Level  string
	Format string
}

// Config is the full studyclock configuration.
type Config struct {
	DataDir string
	DBPath  string
	Timer   TimerConfig
	API     APIConfig
	Outbox  OutboxConfig
	Server  ServerConfig
	Log     LogConfig
}

// DefaultConfig returns the built-in defaults rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "studyclock.db"),
		Timer: TimerConfig{
			TickInterval:      time.Second,
			AutoFlushInterval: 60 * time.Second,
			AutoFlushMinimum:  30 * time.Second,
		},
		API: APIConfig{
			Endpoint:      "http://localhost:5000/api",
			TimeoutMs:     5000,
			BeaconTimeout: 2 * time.Second,
			MaxRetries:    2,
			RetryBackoff:  500 * time.Millisecond,
		},
		Outbox: OutboxConfig{
			BatchSize:   50,
			MaxAttempts: 10,
			ReplayRPS:   5,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			DBPath:          filepath.Join(dataDir, "server.db"),
			AllowedOrigins:  []string{"*"},
			RateLimitRPS:    10,
			RateLimitBurst:  20,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// LoadConfig reads configuration from the environment, falling back to
// defaults for unset or invalid values. The data directory defaults to
// ~/.studyclock.
func LoadConfig() (Config, error) {
	dataDir := os.Getenv("STUDYCLOCK_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		dataDir = filepath.Join(home, ".studyclock")
	}
	cfg := DefaultConfig(dataDir)

	if v := os.Getenv("STUDYCLOCK_DB"); v != "" {
		cfg.DBPath = v
	}

	applyDuration(&cfg.Timer.TickInterval, "STUDYCLOCK_TICK_INTERVAL")
	applyDuration(&cfg.Timer.AutoFlushInterval, "STUDYCLOCK_AUTOFLUSH_INTERVAL")
	applyDuration(&cfg.Timer.AutoFlushMinimum, "STUDYCLOCK_AUTOFLUSH_MINIMUM")

	if v := os.Getenv("STUDYCLOCK_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = strings.TrimRight(v, "/")
	}
	applyPositiveInt(&cfg.API.TimeoutMs, "STUDYCLOCK_API_TIMEOUT_MS")
	applyDuration(&cfg.API.BeaconTimeout, "STUDYCLOCK_BEACON_TIMEOUT")
	if v := os.Getenv("STUDYCLOCK_API_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.API.MaxRetries = n
		}
	}
	applyDuration(&cfg.API.RetryBackoff, "STUDYCLOCK_API_RETRY_BACKOFF")
	if v := os.Getenv("STUDYCLOCK_API_LOG_CALLS"); v != "" {
		cfg.API.LogCalls, _ = strconv.ParseBool(v)
	}

	applyPositiveInt(&cfg.Outbox.BatchSize, "STUDYCLOCK_OUTBOX_BATCH")
	applyPositiveInt(&cfg.Outbox.MaxAttempts, "STUDYCLOCK_OUTBOX_MAX_ATTEMPTS")
	applyPositiveFloat(&cfg.Outbox.ReplayRPS, "STUDYCLOCK_OUTBOX_RPS")

	if v := os.Getenv("STUDYCLOCK_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STUDYCLOCK_SERVER_DB"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("STUDYCLOCK_CORS_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	applyPositiveFloat(&cfg.Server.RateLimitRPS, "STUDYCLOCK_RATE_LIMIT_RPS")
	applyPositiveInt(&cfg.Server.RateLimitBurst, "STUDYCLOCK_RATE_LIMIT_BURST")

	if v := os.Getenv("STUDYCLOCK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("STUDYCLOCK_LOG_FORMAT"); v == "json" || v == "pretty" {
		cfg.Log.Format = v
	}

	return cfg, nil
}

// Timeout returns the per-request timeout for API calls.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RetryBudget is the longest one logical call can take: every attempt
// timing out plus the linear backoff between them.
func (c APIConfig) RetryBudget() time.Duration {
	retries := max(c.MaxRetries, 0)
	backoff := c.RetryBackoff * time.Duration(retries*(retries+1)/2)
	return c.Timeout()*time.Duration(retries+1) + backoff
}

func applyDuration(dst *time.Duration, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return
	}
	*dst = d
}

func applyPositiveInt(dst *int, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return
	}
	*dst = n
}

func applyPositiveFloat(dst *float64, env string) {
	v := os.Getenv(env)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return
	}
	*dst = f
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
