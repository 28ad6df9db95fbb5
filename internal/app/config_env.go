package app

import (
    "fmt"
    "time"

    "github.com/kelseyhightower/envconfig"
)

// EnvConfig mirrors Config for environment variables. Pointer fields stay nil
// when the variable is unset so only present values override lower layers.
type EnvConfig struct {
    LLMBaseURL     *string  `envconfig:"LLM_BASE_URL"`
    LLMModel       *string  `envconfig:"LLM_MODEL"`
    LLMAPIKey      *string  `envconfig:"LLM_API_KEY"`
    OpenAIAPIKey   *string  `envconfig:"OPENAI_API_KEY"`
    LLMTemperature *float32 `envconfig:"LLM_TEMPERATURE"`
    LLMMaxTokens   *int     `envconfig:"LLM_MAX_TOKENS"`
    Offline        *bool    `envconfig:"OFFLINE"`

    FetchRelayURL     *string        `envconfig:"FETCH_RELAY_URL"`
    FetchUserAgent    *string        `envconfig:"FETCH_USER_AGENT"`
    FetchTimeout      *time.Duration `envconfig:"FETCH_TIMEOUT"`
    FetchMaxBodyBytes *int64         `envconfig:"FETCH_MAX_BODY_BYTES"`
    FetchBrowser      *bool          `envconfig:"FETCH_BROWSER"`
    ChromePath        *string        `envconfig:"CHROME_PATH"`

    CacheDir         *string        `envconfig:"CACHE_DIR"`
    CacheMaxAge      *time.Duration `envconfig:"CACHE_MAX_AGE"`
    CacheMaxEntries  *int           `envconfig:"CACHE_MAX_ENTRIES"`
    CacheMaxBytes    *int64         `envconfig:"CACHE_MAX_BYTES"`
    CacheClear       *bool          `envconfig:"CACHE_CLEAR"`
    CacheStrictPerms *bool          `envconfig:"CACHE_STRICT_PERMS"`

    MetricsFile *string `envconfig:"METRICS_FILE"`
    Verbose     *bool   `envconfig:"VERBOSE"`
}

// ReadEnv decodes the process environment.
func ReadEnv() (EnvConfig, error) {
    var ec EnvConfig
    if err := envconfig.Process("", &ec); err != nil {
        return ec, fmt.Errorf("env: %w", err)
    }
    return ec, nil
}

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. Env takes precedence over a config file
// while flags remain highest.
func ApplyEnvOverrides(cfg *Config) error {
    if cfg == nil {
        return nil
    }
    ec, err := ReadEnv()
    if err != nil {
        return err
    }
    ec.apply(cfg)
    return nil
}

func (ec EnvConfig) apply(cfg *Config) {
    setString(&cfg.LLMBaseURL, ec.LLMBaseURL)
    setString(&cfg.LLMModel, ec.LLMModel)
    // LLM_API_KEY wins over the conventional OPENAI_API_KEY.
    setString(&cfg.LLMAPIKey, ec.OpenAIAPIKey)
    setString(&cfg.LLMAPIKey, ec.LLMAPIKey)
    set(&cfg.LLMTemperature, ec.LLMTemperature)
    set(&cfg.LLMMaxTokens, ec.LLMMaxTokens)
    set(&cfg.Offline, ec.Offline)

    setString(&cfg.FetchRelayURL, ec.FetchRelayURL)
    setString(&cfg.FetchUserAgent, ec.FetchUserAgent)
    set(&cfg.FetchTimeout, ec.FetchTimeout)
    set(&cfg.FetchMaxBodyBytes, ec.FetchMaxBodyBytes)
    set(&cfg.FetchBrowser, ec.FetchBrowser)
    setString(&cfg.ChromePath, ec.ChromePath)

    setString(&cfg.CacheDir, ec.CacheDir)
    set(&cfg.CacheMaxAge, ec.CacheMaxAge)
    set(&cfg.CacheMaxEntries, ec.CacheMaxEntries)
    set(&cfg.CacheMaxBytes, ec.CacheMaxBytes)
    set(&cfg.CacheClear, ec.CacheClear)
    set(&cfg.CacheStrictPerms, ec.CacheStrictPerms)

    setString(&cfg.MetricsFile, ec.MetricsFile)
    set(&cfg.Verbose, ec.Verbose)
}

func set[T any](dst *T, v *T) {
    if v != nil {
        *dst = *v
    }
}

// setString ignores empty values so an exported but blank variable does not
// wipe a configured string.
func setString(dst *string, v *string) {
    if v != nil && *v != "" {
        *dst = *v
    }
}
