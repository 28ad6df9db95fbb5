package content

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalized_EncodesEmptyArrays(t *testing.T) {
	b, err := json.Marshal(Structured{Title: "x"}.Normalized())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "null") {
		t.Fatalf("expected no null arrays, got %s", b)
	}
}

func TestHeadAndClone_DoNotAlias(t *testing.T) {
	src := []string{"a", "b", "c"}
	h := Head(src, 2)
	h[0] = "z"
	c := Clone(src)
	c[1] = "y"
	if src[0] != "a" || src[1] != "b" {
		t.Fatalf("source mutated: %v", src)
	}
	if len(Head(src, 10)) != 3 {
		t.Fatalf("expected head to cap at len")
	}
	if First(nil) != "" || First(src) != "a" {
		t.Fatalf("unexpected First results")
	}
}
