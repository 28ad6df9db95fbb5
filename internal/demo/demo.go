// Package demo selects an illustrative content bundle for a keyword without
// any network dependency.
package demo

import (
	_ "embed"
	"fmt"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/clickconverter/internal/keyword"
)

// DefaultID names the bundle returned when no rule matches.
const DefaultID = "default"

// Bundle is a fixed piece of demo copy for one topic bucket.
type Bundle struct {
	ID          string `yaml:"id" json:"id"`
	Badge       string `yaml:"badge" json:"badge"`
	Headline    string `yaml:"headline" json:"headline"`
	Description string `yaml:"description" json:"description"`
	CTA         string `yaml:"cta" json:"cta"`
	Color       string `yaml:"color" json:"color"`
}

// Rule maps a topic bucket to the substrings that select it.
type Rule struct {
	BundleID string
	Terms    []string
}

func (r Rule) matches(norm string) bool {
	for _, t := range r.Terms {
		if strings.Contains(norm, t) {
			return true
		}
	}
	return false
}

// rules are evaluated in order; the first hit wins.
var rules = []Rule{
	{BundleID: "conversion", Terms: []string{"conversion", "optimierung", "optimization", "cro"}},
	{BundleID: "marketing", Terms: []string{"marketing", "automation", "automatisierung"}},
	{BundleID: "landingpage", Terms: []string{"landing", "builder", "baukasten"}},
	{BundleID: "ecommerce", Terms: []string{"shop", "e-commerce", "ecommerce", "produkt", "product"}},
}

//go:embed bundles.yaml
var bundlesYAML []byte

var bundles = mustLoad(bundlesYAML)

func mustLoad(data []byte) map[string]Bundle {
	var list []Bundle
	if err := yaml.Unmarshal(data, &list); err != nil {
		panic(fmt.Errorf("parse demo bundles: %w", err))
	}
	out := make(map[string]Bundle, len(list))
	for _, b := range list {
		out[b.ID] = b
	}
	if _, ok := out[DefaultID]; !ok {
		panic(fmt.Errorf("demo bundles: missing %q", DefaultID))
	}
	for _, r := range rules {
		if _, ok := out[r.BundleID]; !ok {
			panic(fmt.Errorf("demo bundles: rule references unknown bundle %q", r.BundleID))
		}
	}
	return out
}

// Select returns the bundle of the first rule matching kw, or the default.
func Select(kw string) Bundle {
	norm := keyword.Normalize(kw)
	if norm != "" {
		for _, r := range rules {
			if r.matches(norm) {
				return bundles[r.BundleID]
			}
		}
	}
	return bundles[DefaultID]
}

// All returns the default bundle followed by the rule bundles in rule order.
func All() []Bundle {
	out := []Bundle{bundles[DefaultID]}
	for _, r := range rules {
		out = append(out, bundles[r.BundleID])
	}
	return out
}

// Rules returns a copy of the selection rules in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{BundleID: r.BundleID, Terms: append([]string(nil), r.Terms...)}
	}
	return out
}
