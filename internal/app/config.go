package app

import (
	"time"

	"github.com/hyperifyio/clickconverter/internal/personalize"
)

// Config holds runtime configuration for the application.
type Config struct {
	// LLM
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMTemperature float32
	LLMMaxTokens   int
	// Offline skips the model and always uses the deterministic fallback.
	Offline bool
	// Preflight lists models once at startup and logs the result.
	Preflight bool

	// Fetch
	FetchRelayURL     string
	FetchUserAgent    string
	FetchTimeout      time.Duration
	FetchMaxBodyBytes int64
	FetchBrowser      bool
	ChromePath        string

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxEntries  int
	CacheMaxBytes    int64
	CacheClear       bool
	CacheStrictPerms bool
	CacheBypass      bool

	MetricsFile string
	Verbose     bool
}

const (
	userAgentDefault    = "clickconverter/1.0 (+https://github.com/hyperifyio/clickconverter)"
	fetchTimeoutDefault = 20 * time.Second
)

// DefaultConfig returns the lowest-precedence configuration layer.
func DefaultConfig() Config {
	return Config{
		LLMModel:          "gpt-4o-mini",
		LLMTemperature:    personalize.DefaultTemperature,
		LLMMaxTokens:      personalize.DefaultMaxTokens,
		FetchUserAgent:    userAgentDefault,
		FetchTimeout:      fetchTimeoutDefault,
		FetchMaxBodyBytes: 10 << 20,
	}
}
