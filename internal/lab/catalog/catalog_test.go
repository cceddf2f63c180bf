package catalog

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

func TestDefaultLoadsEmbeddedTable(t *testing.T) {
	cat := Default()
	if cat.Len() != 97 {
		t.Fatalf("Len() = %d, want 97", cat.Len())
	}
	first := cat.All()[0]
	if first.ID != "hcl" || first.Formula != "HCl" {
		t.Fatalf("first substance = %+v, want hcl/HCl", first)
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default() returned different instances")
	}
}

func TestLookup(t *testing.T) {
	cat := Default()

	s, ok := cat.Lookup("h2so4")
	if !ok {
		t.Fatal("expected h2so4 in catalog")
	}
	if s.Name != "Sulfuric Acid" || s.Category != CategoryAcid || s.State != StateLiquid {
		t.Fatalf("unexpected substance: %+v", s)
	}

	if _, ok := cat.Lookup("unobtainium"); ok {
		t.Fatal("expected unknown id to be missing")
	}
}

func TestGetUnknownReturnsDomainError(t *testing.T) {
	_, err := Default().Get("unobtainium")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, apperrors.New(apperrors.CodeSubstanceNotFound, "")) {
		t.Fatalf("error = %v, want SUBSTANCE_NOT_FOUND", err)
	}
	if got := apperrors.UserMessage("en-US", err); !strings.Contains(got, "unobtainium") {
		t.Fatalf("user message = %q, want id in message", got)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	cat := Default()
	all := cat.All()
	all[0].Name = "mutated"
	if cat.All()[0].Name == "mutated" {
		t.Fatal("All() exposed internal storage")
	}
}

func TestByCategoryKeepsCatalogOrder(t *testing.T) {
	cat := Default()
	all := cat.All()

	acids := cat.ByCategory(CategoryAcid, 0)
	if len(acids) != 11 {
		t.Fatalf("acids = %d, want 11", len(acids))
	}

	// Each acid must appear after the previous one in the full table.
	pos := map[string]int{}
	for i, s := range all {
		pos[s.ID] = i
	}
	for i := 1; i < len(acids); i++ {
		if pos[acids[i-1].ID] >= pos[acids[i].ID] {
			t.Fatalf("acids out of order at %d: %s before %s", i, acids[i-1].ID, acids[i].ID)
		}
	}

	limited := cat.ByCategory(CategorySalt, 5)
	if len(limited) != 5 {
		t.Fatalf("limited salts = %d, want 5", len(limited))
	}
	for _, s := range limited {
		if s.Category != CategorySalt {
			t.Fatalf("unexpected category %q", s.Category)
		}
	}
}

func TestCategoriesEveryEntryKnown(t *testing.T) {
	seen := map[Category]int{}
	Default().Range(func(s Substance) bool {
		seen[s.Category]++
		return true
	})
	for _, c := range Categories() {
		if seen[c] == 0 {
			t.Errorf("category %q has no substances", c)
		}
	}
	if got := Categories(); got[0] != CategoryAcid || got[len(got)-1] != CategoryOther {
		t.Fatalf("Categories() order = %v", got)
	}
}

func TestRangeStopsEarly(t *testing.T) {
	count := 0
	Default().Range(func(Substance) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestNewValidation(t *testing.T) {
	valid := Substance{ID: "x", Name: "X", Formula: "X", Category: CategoryOther, State: StateSolid}

	tests := []struct {
		name  string
		input []Substance
	}{
		{name: "empty", input: nil},
		{name: "missing id", input: []Substance{{Name: "X", Formula: "X", Category: CategoryOther, State: StateSolid}}},
		{name: "missing name", input: []Substance{{ID: "x", Formula: "X", Category: CategoryOther, State: StateSolid}}},
		{name: "missing formula", input: []Substance{{ID: "x", Name: "X", Category: CategoryOther, State: StateSolid}}},
		{name: "bad category", input: []Substance{{ID: "x", Name: "X", Formula: "X", Category: "Alloy", State: StateSolid}}},
		{name: "bad state", input: []Substance{{ID: "x", Name: "X", Formula: "X", Category: CategoryOther, State: "plasma"}}},
		{name: "duplicate id", input: []Substance{valid, valid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.input); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load([]byte("substances: [")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNilCatalogIsEmpty(t *testing.T) {
	var cat *Catalog
	if cat.Len() != 0 || cat.All() != nil {
		t.Fatal("nil catalog should be empty")
	}
	if _, ok := cat.Lookup("hcl"); ok {
		t.Fatal("nil catalog lookup should miss")
	}
}
