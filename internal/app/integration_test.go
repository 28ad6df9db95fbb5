package app

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "testing"

    "github.com/hyperifyio/clickconverter/internal/content"
)

// TestIntegration_FetchAndPersonalize runs the whole pipeline against a local
// page and a local OpenAI-compatible endpoint.
func TestIntegration_FetchAndPersonalize(t *testing.T) {
    t.Parallel()

    page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "text/html; charset=utf-8")
        w.Header().Set("ETag", `"p1"`)
        _, _ = w.Write([]byte(landingHTML))
    }))
    defer page.Close()

    var prompt string
    llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/v1/chat/completions" {
            http.NotFound(w, r)
            return
        }
        body, _ := io.ReadAll(r.Body)
        var req struct {
            Messages []struct{ Content string } `json:"messages"`
        }
        _ = json.Unmarshal(body, &req)
        if len(req.Messages) > 1 {
            prompt = req.Messages[1].Content
        }
        reply := `{"heroHeadline":"Online Shop mit Acme","headlines":["Shop-Tools"],"paragraphs":[],"buttons":["Shop starten"]}`
        resp := map[string]any{
            "id":      "chatcmpl-test",
            "object":  "chat.completion",
            "choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"}},
        }
        w.Header().Set("Content-Type", "application/json")
        _ = json.NewEncoder(w).Encode(resp)
    }))
    defer llmSrv.Close()

    cfg := DefaultConfig()
    cfg.LLMBaseURL = llmSrv.URL + "/v1"
    cfg.LLMAPIKey = "test"
    cfg.CacheDir = filepath.Join(t.TempDir(), "cache")
    a, err := New(context.Background(), cfg)
    if err != nil {
        t.Fatalf("new app: %v", err)
    }
    res, err := a.Run(context.Background(), Request{URL: page.URL + "/landing", Keyword: "Online Shop"})
    if err != nil {
        t.Fatalf("run: %v", err)
    }
    if !strings.Contains(prompt, `"Online Shop"`) || !strings.Contains(prompt, "1. Home") {
        t.Fatalf("prompt did not carry keyword and headlines:\n%s", prompt)
    }
    c := res.Content
    if c.Source != content.SourceLLM || c.HeroHeadline != "Online Shop mit Acme" {
        t.Fatalf("unexpected content: %+v", c)
    }
    if strings.Join(c.PersonalizedHeadlines, "|") != "Shop-Tools" || c.PersonalizedButtons[0] != "Shop starten" {
        t.Fatalf("lists not composed: %+v", c)
    }
    if len(c.PersonalizedParagraphs) != 1 {
        t.Fatalf("empty paragraphs should keep originals, got %v", c.PersonalizedParagraphs)
    }
    if c.BaseURL != page.URL {
        t.Fatalf("base = %q, want %q", c.BaseURL, page.URL)
    }
    if res.Persona.ID != "ecommerce" {
        t.Fatalf("persona = %q", res.Persona.ID)
    }
}

// A model endpoint that returns 500 degrades to the fallback and the run
// still succeeds.
func TestIntegration_ModelDownUsesFallback(t *testing.T) {
    t.Parallel()
    llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
    }))
    defer llmSrv.Close()

    cfg := DefaultConfig()
    cfg.LLMBaseURL = llmSrv.URL + "/v1"
    a, err := New(context.Background(), cfg)
    if err != nil {
        t.Fatalf("new app: %v", err)
    }
    res, err := a.Run(context.Background(), Request{HTML: []byte(landingHTML), BaseURL: "https://acme.test", Keyword: "wachstum"})
    if err != nil {
        t.Fatalf("run: %v", err)
    }
    if res.Content.Source != content.SourceFallback || res.Content.HeroHeadline != "Wachstum - Home" {
        t.Fatalf("unexpected content: %+v", res.Content)
    }
}
