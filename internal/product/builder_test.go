package product

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuild_MissingSKU(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]string
	}{
		{"absent", map[string]string{"Name": "Widget"}},
		{"empty", map[string]string{"SKU": "", "Name": "Widget"}},
		{"whitespace only", map[string]string{"SKU": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.row)
			if !errors.Is(err, ErrMissingSKU) {
				t.Errorf("Build() error = %v, want ErrMissingSKU", err)
			}
		})
	}
}

func TestBuild_ScalarFieldsNormalized(t *testing.T) {
	p, err := Build(map[string]string{
		"SKU":           "ABC-1",
		"Regular Price": "19.99",
		"Stock Status":  "instock",
		"Empty Field":   "",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := p.Fields["regular_price"]; got != "19.99" {
		t.Errorf("Fields[regular_price] = %q, want %q", got, "19.99")
	}
	if got := p.Fields["stock_status"]; got != "instock" {
		t.Errorf("Fields[stock_status] = %q, want %q", got, "instock")
	}
	if _, ok := p.Fields["empty_field"]; ok {
		t.Error("empty value kept in Fields, want dropped")
	}
	if _, ok := p.Fields["sku"]; ok {
		t.Error("SKU leaked into Fields")
	}
}

func TestBuild_Categories(t *testing.T) {
	p, err := Build(map[string]string{
		"SKU":        "ABC-1",
		"Categories": "Shirts, Summer ,, Sale",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"Shirts", "Summer", "Sale"}
	if !reflect.DeepEqual(p.Categories, want) {
		t.Errorf("Categories = %v, want %v", p.Categories, want)
	}
}

func TestBuild_CategoriesOmittedNotEmpty(t *testing.T) {
	// Present-but-empty and entirely absent must both omit the field.
	tests := []struct {
		name string
		row  map[string]string
	}{
		{"absent", map[string]string{"SKU": "ABC-1"}},
		{"empty value", map[string]string{"SKU": "ABC-1", "Categories": ""}},
		{"only separators", map[string]string{"SKU": "ABC-1", "Categories": " , ,"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Build(tt.row)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if p.Categories != nil {
				t.Errorf("Categories = %v, want nil (field omitted)", p.Categories)
			}
		})
	}
}

func TestBuild_TagsSplitOnCommas(t *testing.T) {
	p, err := Build(map[string]string{
		"SKU":  "ABC-1",
		"Tags": "new arrival, featured",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"new arrival", "featured"}
	if !reflect.DeepEqual(p.Tags, want) {
		t.Errorf("Tags = %v, want %v", p.Tags, want)
	}
}

func TestBuild_KeyMatchingIsCaseInsensitiveContains(t *testing.T) {
	p, err := Build(map[string]string{
		"SKU":                "ABC-1",
		"Product CATEGORIES": "A,B",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(p.Categories) != 2 {
		t.Errorf("Categories = %v, want 2 entries from containing key", p.Categories)
	}
	if len(p.Fields) != 0 {
		t.Errorf("Fields = %v, want empty", p.Fields)
	}
}

func TestBuild_AttributePairing(t *testing.T) {
	// Attribute 2 has a name but no value: it must not be emitted.
	p, err := Build(map[string]string{
		"SKU":               "ABC-1",
		"Attribute 1 Name":  "Color",
		"Attribute 1 Value": "Red,Blue",
		"Attribute 2 Name":  "Size",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(p.Attributes) != 1 {
		t.Fatalf("Attributes = %v, want exactly one", p.Attributes)
	}
	attr := p.Attributes[0]
	if attr.Name != "Color" {
		t.Errorf("Attribute name = %q, want %q", attr.Name, "Color")
	}
	if !reflect.DeepEqual(attr.Options, []string{"Red", "Blue"}) {
		t.Errorf("Attribute options = %v, want [Red Blue]", attr.Options)
	}
	if !attr.Visible {
		t.Error("Attribute.Visible = false, want true")
	}
}

func TestBuild_AttributeValueWithoutName(t *testing.T) {
	p, err := Build(map[string]string{
		"SKU":               "ABC-1",
		"Attribute 1 Value": "Red",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(p.Attributes) != 0 {
		t.Errorf("Attributes = %v, want none", p.Attributes)
	}
}

func TestBuild_AttributesSortedNumerically(t *testing.T) {
	// Index 10 must come after index 2, not before (string sort would flip).
	p, err := Build(map[string]string{
		"SKU":                "ABC-1",
		"Attribute 10 Name":  "Material",
		"Attribute 10 Value": "Cotton",
		"Attribute 2 Name":   "Size",
		"Attribute 2 Value":  "S,M,L",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(p.Attributes) != 2 {
		t.Fatalf("Attributes = %v, want two", p.Attributes)
	}
	if p.Attributes[0].Name != "Size" || p.Attributes[1].Name != "Material" {
		t.Errorf("attribute order = [%s %s], want [Size Material]",
			p.Attributes[0].Name, p.Attributes[1].Name)
	}
}
