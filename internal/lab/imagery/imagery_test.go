package imagery

import "testing"

func TestResultImageURL(t *testing.T) {
	b := New("")
	got, err := b.ResultImageURL("A blue solution / with foam")
	if err != nil {
		t.Fatalf("ResultImageURL: %v", err)
	}
	want := "https://picsum.photos/seed/A%20blue%20solution%20%2F%20with%20foam/600/600"
	if got != want {
		t.Fatalf("ResultImageURL = %q, want %q", got, want)
	}
}

func TestResultImageURLCustomBase(t *testing.T) {
	b := New("https://images.example.com/seed/")
	got, err := b.ResultImageURL("beaker")
	if err != nil {
		t.Fatalf("ResultImageURL: %v", err)
	}
	if got != "https://images.example.com/seed/beaker/600/600" {
		t.Fatalf("ResultImageURL = %q", got)
	}
}

func TestStructureURL(t *testing.T) {
	got, err := New("").StructureURL("Sodium Chloride")
	if err != nil {
		t.Fatalf("StructureURL: %v", err)
	}
	if got != "https://pubchem.ncbi.nlm.nih.gov/rest/pug/compound/name/Sodium%20Chloride/PNG" {
		t.Fatalf("StructureURL = %q", got)
	}
}

func TestPlaceholderURL(t *testing.T) {
	got, err := New("").PlaceholderURL("NaCl")
	if err != nil {
		t.Fatalf("PlaceholderURL: %v", err)
	}
	if got != "https://via.placeholder.com/400x300?text=NaCl+Structure" {
		t.Fatalf("PlaceholderURL = %q", got)
	}
}

func TestBlankTextRejected(t *testing.T) {
	b := New("")
	if _, err := b.ResultImageURL(" "); err != ErrTextRequired {
		t.Fatalf("ResultImageURL error = %v", err)
	}
	if _, err := b.StructureURL(""); err != ErrTextRequired {
		t.Fatalf("StructureURL error = %v", err)
	}
	if _, err := b.PlaceholderURL(""); err != ErrTextRequired {
		t.Fatalf("PlaceholderURL error = %v", err)
	}
}
