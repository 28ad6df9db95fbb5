package app

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func writeFile(t *testing.T, name, body string) string {
    t.Helper()
    p := filepath.Join(t.TempDir(), name)
    if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
        t.Fatalf("write %s: %v", name, err)
    }
    return p
}

func TestLoadConfigFile_YAML(t *testing.T) {
    p := writeFile(t, "clickconverter.yaml", `
llm:
  base: http://localhost:11434/v1
  model: llama3
  temperature: 0
fetch:
  relay: https://relay.test/raw?url=
  timeout: 15s
cache:
  dir: /tmp/cc
  maxAge: 24h
  maxEntries: 50
metrics:
  file: /tmp/cc.prom
`)
    fc, err := LoadConfigFile(p)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    cfg := DefaultConfig()
    ApplyFileConfig(&cfg, fc)
    if cfg.LLMBaseURL != "http://localhost:11434/v1" || cfg.LLMModel != "llama3" {
        t.Fatalf("llm section not applied: %+v", cfg)
    }
    if cfg.LLMTemperature != 0 {
        t.Fatalf("explicit zero temperature should override default, got %v", cfg.LLMTemperature)
    }
    if cfg.LLMMaxTokens != 1500 {
        t.Fatalf("unset max tokens should keep default, got %d", cfg.LLMMaxTokens)
    }
    if cfg.FetchTimeout != 15*time.Second || cfg.CacheMaxAge != 24*time.Hour || cfg.CacheMaxEntries != 50 {
        t.Fatalf("durations/limits not applied: %+v", cfg)
    }
    if cfg.MetricsFile != "/tmp/cc.prom" {
        t.Fatalf("metrics file = %q", cfg.MetricsFile)
    }
}

func TestLoadConfigFile_JSON(t *testing.T) {
    p := writeFile(t, "clickconverter.json", `{"llm":{"model":"gpt-4o-mini","offline":true},"fetch":{"browser":true}}`)
    fc, err := LoadConfigFile(p)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    var cfg Config
    ApplyFileConfig(&cfg, fc)
    if !cfg.Offline || !cfg.FetchBrowser || cfg.LLMModel != "gpt-4o-mini" {
        t.Fatalf("json not applied: %+v", cfg)
    }
}

func TestLoadConfigFile_Invalid(t *testing.T) {
    p := writeFile(t, "broken.yaml", "llm: [")
    if _, err := LoadConfigFile(p); err == nil || !strings.Contains(err.Error(), "parse yaml") {
        t.Fatalf("expected yaml parse error, got %v", err)
    }
}

func TestValidateConfig(t *testing.T) {
    ok := DefaultConfig()
    if err := ValidateConfig(ok); err != nil {
        t.Fatalf("defaults should validate: %v", err)
    }
    cases := map[string]func(*Config){
        "no model":          func(c *Config) { c.LLMModel = " " },
        "temperature":       func(c *Config) { c.LLMTemperature = 2.5 },
        "negative tokens":   func(c *Config) { c.LLMMaxTokens = -1 },
        "negative entries":  func(c *Config) { c.CacheMaxEntries = -3 },
        "negative duration": func(c *Config) { c.FetchTimeout = -time.Second },
        "relay scheme":      func(c *Config) { c.FetchRelayURL = "relay.test/?u=" },
    }
    for name, mutate := range cases {
        cfg := DefaultConfig()
        mutate(&cfg)
        if err := ValidateConfig(cfg); err == nil {
            t.Fatalf("%s: expected validation error", name)
        }
    }
    offline := DefaultConfig()
    offline.LLMModel = ""
    offline.Offline = true
    if err := ValidateConfig(offline); err != nil {
        t.Fatalf("offline without model should validate: %v", err)
    }
}
