// Package product converts transformed flat CSV rows into structured product
// payloads for the catalog API.
package product

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMissingSKU marks a row that cannot be synced because it carries no
// product identifier. The row is skipped; the run continues.
var ErrMissingSKU = errors.New("row is missing a SKU")

// skuColumn is the output column holding the product identifier.
const skuColumn = "SKU"

// attrIndexPattern extracts the numeric index from headers like
// "Attribute 1 Name" / "attribute 2 value".
var attrIndexPattern = regexp.MustCompile(`(?i)attribute\s*(\d+)`)

// Attribute is one product attribute with its display-ordered options.
// Attributes built from rows are always marked visible.
type Attribute struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
	Visible bool     `json:"visible"`
}

// Payload is the structured product update built from one flat row.
//
// Categories and Tags hold names, not identifiers; resolution against the
// remote taxonomy happens later. Both are nil (and must stay omitted from
// any wire payload) when the source row had no usable values, never an
// empty slice.
type Payload struct {
	SKU        string
	Fields     map[string]string
	Categories []string
	Tags       []string
	Attributes []Attribute
}

// attrParts accumulates the name/options halves of one numbered attribute.
type attrParts struct {
	name    string
	options []string
}

// Build converts one transformed row into a Payload.
//
// Returns ErrMissingSKU when the SKU column is empty or absent. All other
// malformed pieces degrade gracefully: attribute halves without a partner
// are dropped, empty values are skipped.
func Build(row map[string]string) (*Payload, error) {
	sku := strings.TrimSpace(row[skuColumn])
	if sku == "" {
		return nil, ErrMissingSKU
	}

	p := &Payload{
		SKU:    sku,
		Fields: make(map[string]string),
	}
	attrs := make(map[int]*attrParts)

	for key, value := range row {
		if key == skuColumn || value == "" {
			continue
		}
		lower := strings.ToLower(key)

		switch {
		case strings.Contains(lower, "categories"):
			if names := splitList(value); len(names) > 0 {
				p.Categories = names
			}

		case strings.Contains(lower, "tags"):
			if names := splitList(value); len(names) > 0 {
				p.Tags = names
			}

		case strings.Contains(lower, "attribute") && strings.Contains(lower, "name"):
			if idx, ok := attrIndex(lower); ok {
				attrAt(attrs, idx).name = value
			}

		case strings.Contains(lower, "attribute") && strings.Contains(lower, "value"):
			if idx, ok := attrIndex(lower); ok {
				attrAt(attrs, idx).options = splitList(value)
			}

		default:
			p.Fields[normalizeKey(key)] = value
		}
	}

	p.Attributes = assembleAttributes(attrs)
	return p, nil
}

// assembleAttributes emits attributes in ascending index order. An entry is
// emitted only when both the name and at least one option were present for
// the same index.
func assembleAttributes(attrs map[int]*attrParts) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	indices := make([]int, 0, len(attrs))
	for idx := range attrs {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var out []Attribute
	for _, idx := range indices {
		parts := attrs[idx]
		if parts.name == "" || len(parts.options) == 0 {
			continue
		}
		out = append(out, Attribute{
			Name:    parts.name,
			Options: parts.options,
			Visible: true,
		})
	}
	return out
}

func attrAt(attrs map[int]*attrParts, idx int) *attrParts {
	if a, ok := attrs[idx]; ok {
		return a
	}
	a := &attrParts{}
	attrs[idx] = a
	return a
}

func attrIndex(lowerKey string) (int, bool) {
	m := attrIndexPattern.FindStringSubmatch(lowerKey)
	if m == nil {
		return 0, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// splitList splits a comma-separated value, trims each entry and drops
// empties. Categories, tags and attribute options all use this rule.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeKey lowercases a column name and replaces spaces with
// underscores, matching the catalog API's scalar field names.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}
