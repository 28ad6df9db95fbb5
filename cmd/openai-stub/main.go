// Command openai-stub is a minimal OpenAI-compatible server for local runs and
// demos without a model. It answers personalization prompts with a canned
// rewrite derived from the prompt itself. STUB_MODE selects failure modes:
// "json" (default), "fenced", "prose", "empty" or "error".
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

var (
	keywordRE  = regexp.MustCompile(`nach "([^"]*)" gesucht`)
	numberedRE = regexp.MustCompile(`^\d+\. (.+)$`)
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := envOr("MODEL_ID", "gpt-4o-mini")
	addr := envOr("ADDR", ":8081")
	mode := envOr("STUB_MODE", "json")

	log.Info().Str("addr", addr).Str("model", model).Str("mode", mode).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, newMux(model, mode)); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func newMux(model, mode string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if !strings.Contains(req.Messages[0].Content, "Conversion-Optimierung") {
			http.Error(w, "unexpected system", http.StatusBadRequest)
			return
		}
		var content string
		switch mode {
		case "error":
			http.Error(w, `{"error":{"message":"stub failure","type":"server_error"}}`, http.StatusInternalServerError)
			return
		case "empty":
			content = ""
		case "prose":
			content = "Gerne! Hier sind meine Vorschläge für die Seite."
		case "fenced":
			content = "```json\n" + rewriteFor(req.Messages[1].Content) + "\n```"
		default:
			content = rewriteFor(req.Messages[1].Content)
		}
		log.Debug().Str("mode", mode).Int("bytes", len(content)).Msg("chat completion")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-stub",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})
	return mux
}

// rewriteFor builds a deterministic JSON rewrite from the user prompt: every
// listed headline and button gets the keyword appended.
func rewriteFor(prompt string) string {
	kw := ""
	if m := keywordRE.FindStringSubmatch(prompt); m != nil {
		kw = m[1]
	}
	sections := map[string][]string{}
	current := ""
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		switch line {
		case "HEADLINES:", "PARAGRAPHS:", "BUTTONS/CTAs:":
			current = strings.TrimSuffix(line, ":")
			continue
		case "":
			current = ""
			continue
		}
		if m := numberedRE.FindStringSubmatch(line); m != nil && current != "" {
			sections[current] = append(sections[current], m[1])
		}
	}
	suffix := func(items []string) []string {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, fmt.Sprintf("%s für %s", it, kw))
		}
		return out
	}
	r := map[string]any{
		"heroHeadline":    fmt.Sprintf("Die beste Lösung für %s", kw),
		"heroSubheadline": fmt.Sprintf("Alles, was Sie für %s brauchen, an einem Ort.", kw),
		"heroCta":         fmt.Sprintf("%s jetzt starten", kw),
		"headlines":       suffix(sections["HEADLINES"]),
		"paragraphs":      sections["PARAGRAPHS"],
		"buttons":         suffix(sections["BUTTONS/CTAs"]),
	}
	b, _ := json.Marshal(r)
	return string(b)
}
