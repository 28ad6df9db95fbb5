package demo

import "testing"

func TestSelect(t *testing.T) {
	cases := []struct {
		kw   string
		want string
	}{
		{"Online Shop Produkt", "ecommerce"},
		{"conversion rate", "conversion"},
		{"Website Optimierung", "conversion"},
		{"Marketing Automation", "marketing"},
		{"landing page builder", "landingpage"},
		{"Homepage Baukasten", "landingpage"},
		{"product pages", "ecommerce"},
		{"", "default"},
		{"   ", "default"},
		{"gartenmöbel", "default"},
		// first rule wins over later ones
		{"shop conversion", "conversion"},
		{"marketing landing", "marketing"},
	}
	for _, tc := range cases {
		if got := Select(tc.kw); got.ID != tc.want {
			t.Fatalf("Select(%q) = %q, want %q", tc.kw, got.ID, tc.want)
		}
	}
}

func TestSelect_BundlesArePopulated(t *testing.T) {
	all := All()
	if len(all) != len(rules)+1 {
		t.Fatalf("expected %d bundles, got %d", len(rules)+1, len(all))
	}
	for _, b := range all {
		if b.Badge == "" || b.Headline == "" || b.Description == "" || b.CTA == "" || b.Color == "" {
			t.Fatalf("bundle %q has empty fields: %+v", b.ID, b)
		}
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	got := Rules()
	if len(got) != len(rules) || got[0].BundleID != "conversion" {
		t.Fatalf("unexpected rules: %+v", got)
	}
	got[0].BundleID = "ecommerce"
	got[0].Terms[0] = "shop"
	if rules[0].BundleID != "conversion" || rules[0].Terms[0] != "conversion" {
		t.Fatalf("mutating the copy changed the rules: %+v", rules[0])
	}
	if Select("conversion").ID != "conversion" {
		t.Fatalf("selection changed after mutating the copy")
	}
}
