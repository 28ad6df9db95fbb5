package app

import (
    "bufio"
    "errors"
    "fmt"
    "os"
    "reflect"
    "strings"

    "github.com/rs/zerolog/log"
)

// envKeys are the variables EnvConfig decodes. Dotenv files may only set
// these; anything else in a file is skipped.
var envKeys = func() map[string]struct{} {
    keys := map[string]struct{}{}
    t := reflect.TypeOf(EnvConfig{})
    for i := 0; i < t.NumField(); i++ {
        if k := t.Field(i).Tag.Get("envconfig"); k != "" {
            keys[k] = struct{}{}
        }
    }
    return keys
}()

// LoadEnvFiles loads dotenv files of KEY=VALUE pairs into the process
// environment, typically LLM_API_KEY and friends kept out of the shell
// history. Only keys understood by EnvConfig are applied. A variable already
// set to a non-empty value in the real environment is left alone; among the
// files, later ones override earlier ones. Lines starting with '#', blank
// lines and malformed lines are ignored, an "export " prefix is allowed, and
// values are not expanded. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
    shell := map[string]struct{}{}
    for k := range envKeys {
        if os.Getenv(k) != "" {
            shell[k] = struct{}{}
        }
    }
    for _, p := range paths {
        if strings.TrimSpace(p) == "" {
            continue
        }
        if err := loadEnvFile(p, shell); err != nil {
            if errors.Is(err, os.ErrNotExist) {
                continue
            }
            return err
        }
    }
    return nil
}

func loadEnvFile(path string, shell map[string]struct{}) error {
    f, err := os.Open(path)
    if err != nil {
        return err
    }
    defer f.Close()

    scanner := bufio.NewScanner(f)
    n := 0
    for scanner.Scan() {
        n++
        key, val, ok := parseEnvLine(scanner.Text())
        if !ok {
            continue
        }
        if _, known := envKeys[key]; !known {
            log.Debug().Str("file", path).Int("line", n).Str("key", key).Msg("dotenv: unknown key skipped")
            continue
        }
        if _, set := shell[key]; set {
            continue
        }
        if err := os.Setenv(key, val); err != nil {
            return fmt.Errorf("%s:%d: %w", path, n, err)
        }
    }
    return scanner.Err()
}

// parseEnvLine splits KEY=VALUE at the first '=' and strips matching quotes.
func parseEnvLine(raw string) (key, val string, ok bool) {
    line := strings.TrimSpace(raw)
    if line == "" || strings.HasPrefix(line, "#") {
        return "", "", false
    }
    line = strings.TrimPrefix(line, "export ")
    eq := strings.IndexByte(line, '=')
    if eq <= 0 {
        return "", "", false
    }
    key = strings.TrimSpace(line[:eq])
    val = strings.TrimSpace(line[eq+1:])
    if len(val) >= 2 {
        if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
            val = val[1 : len(val)-1]
        }
    }
    return key, val, true
}
