package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to the dotted flag names.
type FileConfig struct {
    LLM struct {
        BaseURL     string   `yaml:"base" json:"base"`
        Model       string   `yaml:"model" json:"model"`
        APIKey      string   `yaml:"key" json:"key"`
        Temperature *float32 `yaml:"temperature" json:"temperature"`
        MaxTokens   int      `yaml:"maxTokens" json:"maxTokens"`
        Offline     bool     `yaml:"offline" json:"offline"`
        Preflight   bool     `yaml:"preflight" json:"preflight"`
    } `yaml:"llm" json:"llm"`

    Fetch struct {
        RelayURL     string        `yaml:"relay" json:"relay"`
        UserAgent    string        `yaml:"ua" json:"ua"`
        Timeout      time.Duration `yaml:"timeout" json:"timeout"`
        MaxBodyBytes int64         `yaml:"maxBodyBytes" json:"maxBodyBytes"`
        Browser      bool          `yaml:"browser" json:"browser"`
        ChromePath   string        `yaml:"chromePath" json:"chromePath"`
    } `yaml:"fetch" json:"fetch"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
        MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
    } `yaml:"cache" json:"cache"`

    Metrics struct {
        File string `yaml:"file" json:"file"`
    } `yaml:"metrics" json:"metrics"`

    Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig. JSON durations are
// nanosecond integers; YAML accepts "30s" style strings.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays the non-zero values of fc onto cfg. Call it on the
// defaults, before env and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if fc.LLM.BaseURL != "" { cfg.LLMBaseURL = fc.LLM.BaseURL }
    if fc.LLM.Model != "" { cfg.LLMModel = fc.LLM.Model }
    if fc.LLM.APIKey != "" { cfg.LLMAPIKey = fc.LLM.APIKey }
    if fc.LLM.Temperature != nil { cfg.LLMTemperature = *fc.LLM.Temperature }
    if fc.LLM.MaxTokens != 0 { cfg.LLMMaxTokens = fc.LLM.MaxTokens }
    if fc.LLM.Offline { cfg.Offline = true }
    if fc.LLM.Preflight { cfg.Preflight = true }

    if fc.Fetch.RelayURL != "" { cfg.FetchRelayURL = fc.Fetch.RelayURL }
    if fc.Fetch.UserAgent != "" { cfg.FetchUserAgent = fc.Fetch.UserAgent }
    if fc.Fetch.Timeout != 0 { cfg.FetchTimeout = fc.Fetch.Timeout }
    if fc.Fetch.MaxBodyBytes != 0 { cfg.FetchMaxBodyBytes = fc.Fetch.MaxBodyBytes }
    if fc.Fetch.Browser { cfg.FetchBrowser = true }
    if fc.Fetch.ChromePath != "" { cfg.ChromePath = fc.Fetch.ChromePath }

    if fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
    if fc.Cache.MaxAge != 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if fc.Cache.MaxEntries != 0 { cfg.CacheMaxEntries = fc.Cache.MaxEntries }
    if fc.Cache.MaxBytes != 0 { cfg.CacheMaxBytes = fc.Cache.MaxBytes }
    if fc.Cache.Clear { cfg.CacheClear = true }
    if fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }

    if fc.Metrics.File != "" { cfg.MetricsFile = fc.Metrics.File }
    if fc.Verbose { cfg.Verbose = true }
}

// ValidateConfig performs minimal schema validation. Offline runs need no
// model settings.
func ValidateConfig(cfg Config) error {
    if !cfg.Offline && strings.TrimSpace(cfg.LLMModel) == "" {
        return errors.New("config: llm.model is required (or set LLM_MODEL, or run offline)")
    }
    if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
        return fmt.Errorf("config: llm.temperature %v outside [0,2]", cfg.LLMTemperature)
    }
    if cfg.LLMMaxTokens < 0 || cfg.FetchMaxBodyBytes < 0 || cfg.CacheMaxEntries < 0 || cfg.CacheMaxBytes < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    if cfg.FetchTimeout < 0 || cfg.CacheMaxAge < 0 {
        return errors.New("config: negative durations are not allowed")
    }
    if cfg.FetchRelayURL != "" && !strings.HasPrefix(cfg.FetchRelayURL, "http://") && !strings.HasPrefix(cfg.FetchRelayURL, "https://") {
        return fmt.Errorf("config: fetch.relay %q must be an http(s) url prefix", cfg.FetchRelayURL)
    }
    return nil
}
