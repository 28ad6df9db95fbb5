package fetch

import (
	"testing"
)

func TestDecodeHTML_UTF8Untouched(t *testing.T) {
	in := []byte("<html><body>Grüße</body></html>")
	if got := DecodeHTML(in, "text/html"); string(got) != string(in) {
		t.Fatalf("utf-8 input changed: %q", got)
	}
}

func TestDecodeHTML_HeaderCharset(t *testing.T) {
	// "Grüße" in ISO-8859-1.
	in := []byte("<html><body>Gr\xfc\xdfe</body></html>")
	got := DecodeHTML(in, "text/html; charset=iso-8859-1")
	if string(got) != "<html><body>Grüße</body></html>" {
		t.Fatalf("decoded = %q", got)
	}
}

func TestDecodeHTML_MetaCharset(t *testing.T) {
	in := []byte(`<html><head><meta charset="iso-8859-15"></head><body>caf` + "\xe9" + `</body></html>`)
	got := DecodeHTML(in, "text/html")
	want := `<html><head><meta charset="iso-8859-15"></head><body>café</body></html>`
	if string(got) != want {
		t.Fatalf("decoded = %q", got)
	}
}
