// Package config provides configuration loading from environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/usestring/harreplay/internal/compare"
	"github.com/usestring/harreplay/pkg/transport"
)

// Tool output limit defaults
const (
	DefaultListLimitValue  = 50
	DefaultQueryLimitValue = 20
)

// Config holds all configuration for the replay tools.
type Config struct {
	Timeout            time.Duration // REPLAY_TIMEOUT_MS, default 30000ms (30s)
	Delay              time.Duration // REPLAY_DELAY_MS, default 0
	Concurrency        int           // REPLAY_CONCURRENCY, default 1
	RateLimitRPS       float64       // REPLAY_RATE_LIMIT_RPS, default 0 (off)
	RateLimitBurst     int           // REPLAY_RATE_LIMIT_BURST, default 1
	ProxyURL           string        // REPLAY_PROXY_URL, default "" (direct)
	InsecureSkipVerify bool          // REPLAY_INSECURE_SKIP_VERIFY, default false
	MaintainSession    bool          // REPLAY_MAINTAIN_SESSION, default false
	FollowRedirects    bool          // REPLAY_FOLLOW_REDIRECTS, default false
	MaxBodyBytes       int           // REPLAY_MAX_BODY_BYTES, default 32MB

	DiffPreviewChars     int    // DIFF_PREVIEW_CHARS, default 100
	ArchiveCacheMaxItems int    // ARCHIVE_CACHE_MAX_ITEMS, default 16
	MetricsAddr          string // METRICS_ADDR, default "" (disabled)

	// Tool output limits
	DefaultListLimit  int // DEFAULT_LIST_LIMIT
	DefaultQueryLimit int // DEFAULT_QUERY_LIMIT

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
	LogFormat     string // LOG_FORMAT, "text" or "json", default "text"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Timeout:            getEnvDurationMs("REPLAY_TIMEOUT_MS", int(transport.DefaultTimeout/time.Millisecond)),
		Delay:              getEnvDurationMs("REPLAY_DELAY_MS", 0),
		Concurrency:        getEnvInt("REPLAY_CONCURRENCY", 1),
		RateLimitRPS:       getEnvFloat("REPLAY_RATE_LIMIT_RPS", 0),
		RateLimitBurst:     getEnvInt("REPLAY_RATE_LIMIT_BURST", 1),
		ProxyURL:           getEnvString("REPLAY_PROXY_URL", ""),
		InsecureSkipVerify: getEnvBool("REPLAY_INSECURE_SKIP_VERIFY", false),
		MaintainSession:    getEnvBool("REPLAY_MAINTAIN_SESSION", false),
		FollowRedirects:    getEnvBool("REPLAY_FOLLOW_REDIRECTS", false),
		MaxBodyBytes:       getEnvInt("REPLAY_MAX_BODY_BYTES", int(transport.DefaultMaxBodyBytes)),

		DiffPreviewChars:     getEnvInt("DIFF_PREVIEW_CHARS", compare.DefaultPreviewChars),
		ArchiveCacheMaxItems: getEnvInt("ARCHIVE_CACHE_MAX_ITEMS", 16),
		MetricsAddr:          getEnvString("METRICS_ADDR", ""),

		DefaultListLimit:  getEnvInt("DEFAULT_LIST_LIMIT", DefaultListLimitValue),
		DefaultQueryLimit: getEnvInt("DEFAULT_QUERY_LIMIT", DefaultQueryLimitValue),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
	}
}

// TransportOptions converts the transport related settings.
// An unparsable proxy URL is returned as an error.
func (c *Config) TransportOptions() ([]transport.Option, error) {
	opts := []transport.Option{
		transport.WithTimeout(c.Timeout),
		transport.WithInsecureSkipVerify(c.InsecureSkipVerify),
		transport.WithSession(c.MaintainSession),
		transport.WithFollowRedirects(c.FollowRedirects),
		transport.WithMaxBodyBytes(int64(c.MaxBodyBytes)),
	}
	if c.ProxyURL != "" {
		p, err := transport.ParseProxy(c.ProxyURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithProxy(p))
	}
	return opts, nil
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
