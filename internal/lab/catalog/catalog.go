// Package catalog holds the immutable table of substances the lab offers.
//
// The table is loaded once from embedded YAML and never mutated. Its
// enumeration order is part of the contract: search results and category
// browsing both follow it.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Category classifies a substance for browsing and for the oracle prompt.
type Category string

const (
	CategoryAcid     Category = "Acid"
	CategoryBase     Category = "Base"
	CategorySalt     Category = "Salt"
	CategoryMetal    Category = "Metal"
	CategoryNonMetal Category = "Non-metal"
	CategoryOxide    Category = "Oxide"
	CategoryOrganic  Category = "Organic"
	CategoryOther    Category = "Other"
)

var categoryOrder = []Category{
	CategoryAcid,
	CategoryBase,
	CategorySalt,
	CategoryMetal,
	CategoryNonMetal,
	CategoryOxide,
	CategoryOrganic,
	CategoryOther,
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// State is the physical state of a substance at room conditions.
type State string

const (
	StateSolid  State = "solid"
	StateLiquid State = "liquid"
	StateGas    State = "gas"
)

// Valid reports whether s is a known physical state.
func (s State) Valid() bool {
	switch s {
	case StateSolid, StateLiquid, StateGas:
		return true
	default:
		return false
	}
}

// Substance is one catalog entry.
type Substance struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Formula  string   `json:"formula" yaml:"formula"`
	Category Category `json:"category" yaml:"category"`
	State    State    `json:"state" yaml:"state"`
	// Color is an opaque style token for the presentation layer.
	Color string `json:"color" yaml:"color"`
}

// Catalog is an ordered, read-only set of substances keyed by ID.
type Catalog struct {
	substances []Substance
	byID       map[string]int
}

//go:embed substances.yaml
var embeddedSubstances []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics if the embedded table is
// invalid, which a unit test guards against.
func Default() *Catalog {
	defaultOnce.Do(func() {
		cat, err := Load(embeddedSubstances)
		if err != nil {
			panic(fmt.Sprintf("load embedded catalog: %v", err))
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}

// Load parses a YAML substance table.
func Load(data []byte) (*Catalog, error) {
	var file struct {
		Substances []Substance `yaml:"substances"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(file.Substances)
}

// New validates substances and builds a catalog that preserves their order.
func New(substances []Substance) (*Catalog, error) {
	if len(substances) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	cat := &Catalog{
		substances: make([]Substance, 0, len(substances)),
		byID:       make(map[string]int, len(substances)),
	}
	for i, s := range substances {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		s.Formula = strings.TrimSpace(s.Formula)
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("substance %d: id is required", i)
		case s.Name == "":
			return nil, fmt.Errorf("substance %q: name is required", s.ID)
		case s.Formula == "":
			return nil, fmt.Errorf("substance %q: formula is required", s.ID)
		case !s.Category.Valid():
			return nil, fmt.Errorf("substance %q: unknown category %q", s.ID, s.Category)
		case !s.State.Valid():
			return nil, fmt.Errorf("substance %q: unknown state %q", s.ID, s.State)
		}
		if _, dup := cat.byID[s.ID]; dup {
			return nil, fmt.Errorf("substance %q: duplicate id", s.ID)
		}
		cat.byID[s.ID] = len(cat.substances)
		cat.substances = append(cat.substances, s)
	}
	return cat, nil
}

// Len returns the number of substances.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.substances)
}

// All returns a copy of every substance in catalog order.
func (c *Catalog) All() []Substance {
	if c == nil {
		return nil
	}
	out := make([]Substance, len(c.substances))
	copy(out, c.substances)
	return out
}

// Range calls fn for each substance in catalog order until fn returns false.
func (c *Catalog) Range(fn func(Substance) bool) {
	if c == nil || fn == nil {
		return
	}
	for _, s := range c.substances {
		if !fn(s) {
			return
		}
	}
}

// Lookup returns the substance with the given id.
func (c *Catalog) Lookup(id string) (Substance, bool) {
	if c == nil {
		return Substance{}, false
	}
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Substance{}, false
	}
	return c.substances[idx], true
}

// Get returns the substance with the given id or a SUBSTANCE_NOT_FOUND error.
func (c *Catalog) Get(id string) (Substance, error) {
	s, ok := c.Lookup(id)
	if !ok {
		return Substance{}, apperrors.WithMetadata(
			apperrors.CodeSubstanceNotFound,
			fmt.Sprintf("substance %q not in catalog", id),
			map[string]string{"ID": strings.TrimSpace(id)},
		)
	}
	return s, nil
}

// ByCategory returns up to limit substances of a category in catalog order.
// A limit of zero or less returns all of them.
func (c *Catalog) ByCategory(category Category, limit int) []Substance {
	var out []Substance
	c.Range(func(s Substance) bool {
		if s.Category != category {
			return true
		}
		out = append(out, s)
		return limit <= 0 || len(out) < limit
	})
	return out
}
