// Package persona holds the static audience catalog and maps search keywords
// onto it.
//
// The catalog is embedded at build time and loaded once; entries are never
// mutated afterwards, so lookups need no synchronization. Matching is
// bidirectional substring containment evaluated in catalog order, first match
// wins. Short trigger keywords therefore match broadly ("cro" also matches
// "micro"); order the catalog from specific to generic when adding entries.
package persona

import (
	_ "embed"
	"fmt"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/clickconverter/internal/keyword"
)

// DefaultID identifies the reserved fallback persona.
const DefaultID = "default"

// Testimonial is a customer quote shown for a persona.
type Testimonial struct {
	Quote   string `yaml:"quote" json:"quote"`
	Author  string `yaml:"author" json:"author"`
	Company string `yaml:"company" json:"company"`
}

// CTA holds the primary and secondary call-to-action labels.
type CTA struct {
	Primary   string `yaml:"primary" json:"primary"`
	Secondary string `yaml:"secondary" json:"secondary"`
}

// Persona is a named audience profile with tailored copy.
type Persona struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Role        string      `yaml:"role" json:"role"`
	Avatar      string      `yaml:"avatar" json:"avatar"`
	Keywords    []string    `yaml:"keywords" json:"keywords"`
	Headline    string      `yaml:"headline" json:"headline"`
	Subheadline string      `yaml:"subheadline" json:"subheadline"`
	PainPoints  []string    `yaml:"painPoints" json:"painPoints"`
	Benefits    []string    `yaml:"benefits" json:"benefits"`
	Testimonial Testimonial `yaml:"testimonial" json:"testimonial"`
	CTA         CTA         `yaml:"cta" json:"cta"`
	AccentColor string      `yaml:"accentColor" json:"accentColor"`
}

// PrimaryKeyword returns the first trigger keyword, or "" for personas
// without any (the default). Used to build demo landing URLs that select p.
func (p Persona) PrimaryKeyword() string {
	if len(p.Keywords) == 0 {
		return ""
	}
	return p.Keywords[0]
}

// matches reports whether the normalized keyword triggers p.
func (p Persona) matches(norm string) bool {
	for _, k := range p.Keywords {
		if strings.Contains(norm, k) || strings.Contains(k, norm) {
			return true
		}
	}
	return false
}

func (p Persona) clone() Persona {
	p.Keywords = append([]string{}, p.Keywords...)
	p.PainPoints = append([]string{}, p.PainPoints...)
	p.Benefits = append([]string{}, p.Benefits...)
	return p
}

//go:embed personas.yaml
var catalogYAML []byte

// Catalog is an ordered, read-only persona list with an id index.
type Catalog struct {
	ordered []Persona
	byID    map[string]int
}

// ParseCatalog decodes a YAML persona list. Ids must be unique and exactly
// one entry must use DefaultID with no keywords.
func ParseCatalog(data []byte) (*Catalog, error) {
	var list []Persona
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}
	c := &Catalog{ordered: make([]Persona, 0, len(list)), byID: make(map[string]int, len(list))}
	for _, p := range list {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona catalog: entry %d has no id", len(c.ordered))
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona catalog: duplicate id %q", p.ID)
		}
		// Trigger keywords are compared against normalized input.
		kws := make([]string, 0, len(p.Keywords))
		for _, k := range p.Keywords {
			if nk := keyword.Normalize(k); nk != "" {
				kws = append(kws, nk)
			}
		}
		p.Keywords = kws
		c.byID[p.ID] = len(c.ordered)
		c.ordered = append(c.ordered, p)
	}
	i, ok := c.byID[DefaultID]
	if !ok {
		return nil, fmt.Errorf("persona catalog: missing %q entry", DefaultID)
	}
	if len(c.ordered[i].Keywords) != 0 {
		return nil, fmt.Errorf("persona catalog: %q must not have keywords", DefaultID)
	}
	return c, nil
}

// Match returns the first persona triggered by kw, or the default persona.
func (c *Catalog) Match(kw string) Persona {
	norm := keyword.Normalize(kw)
	if norm == "" {
		return c.Default()
	}
	for _, p := range c.ordered {
		if p.matches(norm) {
			return p.clone()
		}
	}
	return c.Default()
}

// Default returns the reserved fallback persona.
func (c *Catalog) Default() Persona {
	return c.ordered[c.byID[DefaultID]].clone()
}

// ByID looks up a persona by id.
func (c *Catalog) ByID(id string) (Persona, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Persona{}, false
	}
	return c.ordered[i].clone(), true
}

// All returns every persona in catalog order.
func (c *Catalog) All() []Persona {
	out := make([]Persona, 0, len(c.ordered))
	for _, p := range c.ordered {
		out = append(out, p.clone())
	}
	return out
}

var builtin = mustParse(catalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Builtin returns the embedded catalog.
func Builtin() *Catalog { return builtin }

// Match resolves kw against the embedded catalog.
func Match(kw string) Persona { return builtin.Match(kw) }

// Default returns the embedded default persona.
func Default() Persona { return builtin.Default() }

// ByID looks up id in the embedded catalog.
func ByID(id string) (Persona, bool) { return builtin.ByID(id) }

// All lists the embedded catalog in order.
func All() []Persona { return builtin.All() }
