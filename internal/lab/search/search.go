// Package search answers substring queries over the substance catalog.
package search

import (
	"strings"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
)

// MaxResults bounds the number of suggestions a query returns.
const MaxResults = 8

// Index queries a catalog. It holds no state beyond the catalog reference.
type Index struct {
	catalog *catalog.Catalog
}

// New returns an index over cat.
func New(cat *catalog.Catalog) *Index {
	return &Index{catalog: cat}
}

// Query returns up to MaxResults substances whose name or formula contains
// text, case-insensitively, in catalog order. Text is matched as given,
// surrounding spaces included. Blank text returns an empty slice.
func (i *Index) Query(text string) []catalog.Substance {
	return i.QueryLimit(text, MaxResults)
}

// QueryLimit is Query with a caller-chosen bound, capped at MaxResults.
func (i *Index) QueryLimit(text string, limit int) []catalog.Substance {
	out := []catalog.Substance{}
	if strings.TrimSpace(text) == "" || i == nil {
		return out
	}
	needle := strings.ToLower(text)
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}
	i.catalog.Range(func(s catalog.Substance) bool {
		if matches(s, needle) {
			out = append(out, s)
		}
		return len(out) < limit
	})
	return out
}

func matches(s catalog.Substance, needle string) bool {
	return strings.Contains(strings.ToLower(s.Name), needle) ||
		strings.Contains(strings.ToLower(s.Formula), needle)
}
