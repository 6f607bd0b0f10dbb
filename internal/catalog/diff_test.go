package catalog

import (
	"testing"

	"woosync/internal/namecache"
	"woosync/internal/product"
	"woosync/internal/wc"
)

func TestDiffScalarNormalization(t *testing.T) {
	remote := &wc.Product{
		Fields: map[string]any{
			"description": "<p>Good &amp; sturdy</p>",
			"name":        "Hammer",
		},
	}
	p := &product.Payload{
		SKU: "H-1",
		Fields: map[string]string{
			"description": "Good   &\nsturdy",
			"name":        "Sledgehammer",
		},
	}

	changes := Diff(remote, p, nil, nil)
	if len(changes) != 1 {
		t.Fatalf("Diff returned %d changes, want 1: %v", len(changes), changes)
	}
	if changes[0].Field != "name" || changes[0].Old != "Hammer" || changes[0].New != "Sledgehammer" {
		t.Errorf("change = %+v, want name Hammer->Sledgehammer", changes[0])
	}
}

func TestDiffCategoryIDSets(t *testing.T) {
	remote := &wc.Product{
		Categories: []wc.Term{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
	}

	// Same ids, different order: no diff.
	p := &product.Payload{SKU: "X", Categories: []string{"B", "A"}}
	resolved := []namecache.Resolved{{Name: "B", ID: 2}, {Name: "A", ID: 1}}
	if changes := Diff(remote, p, resolved, nil); len(changes) != 0 {
		t.Errorf("reordered identical sets produced changes: %v", changes)
	}

	// Different id set: one diff, names from each side's own source.
	p = &product.Payload{SKU: "X", Categories: []string{"C"}}
	resolved = []namecache.Resolved{{Name: "C", ID: 3}}
	changes := Diff(remote, p, resolved, nil)
	if len(changes) != 1 {
		t.Fatalf("Diff returned %d changes, want 1", len(changes))
	}
	if changes[0].Field != "categories" || changes[0].Old != "A, B" || changes[0].New != "C" {
		t.Errorf("change = %+v, want categories A, B -> C", changes[0])
	}
}

func TestDiffSkipsUnresolvedTaxonomies(t *testing.T) {
	remote := &wc.Product{
		Categories: []wc.Term{{ID: 1, Name: "A"}},
	}
	// Names that resolved to nothing are dropped from the live update, so
	// the dry run must not promise a change either.
	p := &product.Payload{SKU: "X", Categories: []string{"Unknown"}}
	if changes := Diff(remote, p, nil, nil); len(changes) != 0 {
		t.Errorf("unresolved categories produced changes: %v", changes)
	}
}

func TestDiffSkipsAbsentTaxonomies(t *testing.T) {
	remote := &wc.Product{
		Categories: []wc.Term{{ID: 1, Name: "A"}},
		Tags:       []wc.Term{{ID: 5, Name: "Sale"}},
	}
	// Payload without categories/tags must not report the remote values as
	// cleared.
	p := &product.Payload{SKU: "X", Fields: map[string]string{}}
	if changes := Diff(remote, p, nil, nil); len(changes) != 0 {
		t.Errorf("absent taxonomies produced changes: %v", changes)
	}
}

func TestDiffAttributes(t *testing.T) {
	remote := &wc.Product{
		Attributes: []wc.Attribute{
			{Name: "Color", Options: []string{"Red", "Blue"}},
		},
	}

	same := &product.Payload{SKU: "X", Attributes: []product.Attribute{
		{Name: "Color", Options: []string{"Red", "Blue"}},
	}}
	if changes := Diff(remote, same, nil, nil); len(changes) != 0 {
		t.Errorf("identical attributes produced changes: %v", changes)
	}

	// Option order matters.
	reordered := &product.Payload{SKU: "X", Attributes: []product.Attribute{
		{Name: "Color", Options: []string{"Blue", "Red"}},
	}}
	changes := Diff(remote, reordered, nil, nil)
	if len(changes) != 1 {
		t.Fatalf("reordered options: got %d changes, want 1", len(changes))
	}
	if changes[0].Old != "Color:Red,Blue" || changes[0].New != "Color:Blue,Red" {
		t.Errorf("change = %+v", changes[0])
	}

	added := &product.Payload{SKU: "X", Attributes: []product.Attribute{
		{Name: "Color", Options: []string{"Red", "Blue"}},
		{Name: "Size", Options: []string{"M"}},
	}}
	changes = Diff(remote, added, nil, nil)
	if len(changes) != 1 {
		t.Fatalf("added attribute: got %d changes, want 1", len(changes))
	}
	if changes[0].New != "Color:Red,Blue; Size:M" {
		t.Errorf("new attribute map = %q", changes[0].New)
	}
}

func TestDiffDoesNotMutateRemote(t *testing.T) {
	remote := &wc.Product{
		Categories: []wc.Term{{ID: 1, Name: "A"}},
		Fields:     map[string]any{"name": "Widget"},
	}
	p := &product.Payload{
		SKU:        "X",
		Categories: []string{"B"},
		Fields:     map[string]string{"name": "Gadget"},
	}
	Diff(remote, p, []namecache.Resolved{{Name: "B", ID: 2}}, nil)

	if remote.Categories[0].Name != "A" || remote.Fields["name"] != "Widget" {
		t.Errorf("remote record mutated: %+v", remote)
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"a &amp; b", "a & b"},
		{"  spaced\t\nout  ", "spaced out"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := normalizeText(tc.in); got != tc.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
