package search

import (
	"reflect"
	"strings"
	"testing"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
)

func ids(substances []catalog.Substance) []string {
	out := make([]string, 0, len(substances))
	for _, s := range substances {
		out = append(out, s.ID)
	}
	return out
}

func TestQuery(t *testing.T) {
	t.Parallel()

	idx := New(catalog.Default())
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "formula fragment bounded", query: "cl", want: []string{"hcl", "hclo4", "nacl", "bacl2", "kcl", "alcl3", "nh4cl", "fecl3"}},
		{name: "name match", query: "sodium", want: []string{"naoh", "nacl", "na2co3", "nahco3", "na2so4", "na3po4", "na", "na2o"}},
		{name: "case insensitive formula", query: "naoh", want: []string{"naoh"}},
		{name: "surrounding whitespace is matched", query: "  NaOH  ", want: []string{}},
		{name: "leading space not trimmed", query: " Na", want: []string{}},
		{name: "trailing space not trimmed", query: "acid ", want: []string{}},
		{name: "mixed case", query: "h2O", want: []string{"h2o2", "h2o"}},
		{name: "no match", query: "zzz", want: []string{}},
		{name: "empty", query: "", want: []string{}},
		{name: "whitespace only", query: "   \t", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ids(idx.Query(tt.query))
			if len(got) != len(tt.want) {
				t.Fatalf("Query(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Query(%q)[%d] = %s, want %s", tt.query, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQueryMatchesSpacesVerbatim(t *testing.T) {
	t.Parallel()

	got := New(catalog.Default()).Query(" Acid")
	if len(got) != MaxResults || got[0].ID != "hcl" {
		t.Fatalf("Query(\" Acid\") = %v", ids(got))
	}
	for _, s := range got {
		if !strings.Contains(strings.ToLower(s.Name), " acid") && !strings.Contains(strings.ToLower(s.Formula), " acid") {
			t.Fatalf("%s (%s) does not contain \" acid\"", s.Name, s.Formula)
		}
	}
}

func TestQueryNeverNil(t *testing.T) {
	t.Parallel()

	if got := New(catalog.Default()).Query(""); got == nil {
		t.Fatal("Query returned nil slice")
	}
}

func TestQueryIsStateless(t *testing.T) {
	t.Parallel()

	idx := New(catalog.Default())
	first := ids(idx.Query("acid"))
	_ = idx.Query("sodium")
	second := ids(idx.Query("acid"))
	if len(first) != len(second) {
		t.Fatalf("repeat query differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeat query differs at %d: %v vs %v", i, first, second)
		}
	}
}

func TestQueryLimit(t *testing.T) {
	t.Parallel()

	idx := New(catalog.Default())
	if got := idx.QueryLimit("cl", 3); len(got) != 3 {
		t.Fatalf("QueryLimit(3) = %d results", len(got))
	}
	if got := idx.QueryLimit("cl", 50); len(got) != MaxResults {
		t.Fatalf("QueryLimit(50) = %d results, want cap %d", len(got), MaxResults)
	}
}

func TestQueryMatchesAreOrderedAndCapped(t *testing.T) {
	cat := catalog.Default()
	got := New(cat).Query("NA")
	if len(got) == 0 || len(got) > MaxResults {
		t.Fatalf("len = %d, want 1..%d", len(got), MaxResults)
	}

	var want []string
	cat.Range(func(s catalog.Substance) bool {
		if strings.Contains(strings.ToLower(s.Name), "na") || strings.Contains(strings.ToLower(s.Formula), "na") {
			want = append(want, s.ID)
		}
		return len(want) < MaxResults
	})
	if !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("Query(NA) = %v, want %v", ids(got), want)
	}
}
