package wc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Term is a category or tag reference on a remote product.
type Term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Attribute is a remote product attribute. Option order reflects the store's
// display order and is significant.
type Attribute struct {
	ID      int      `json:"id,omitempty"`
	Name    string   `json:"name"`
	Options []string `json:"options"`
	Visible bool     `json:"visible"`
}

// Product is a remote product record. The collection fields the diff and
// export paths care about are typed; every other field lands in Fields under
// its wire name so scalar comparisons can reach it.
type Product struct {
	ID         int
	SKU        string
	Categories []Term
	Tags       []Term
	Attributes []Attribute
	Fields     map[string]any
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	typed := map[string]any{
		"id":         &p.ID,
		"sku":        &p.SKU,
		"categories": &p.Categories,
		"tags":       &p.Tags,
		"attributes": &p.Attributes,
	}
	for key, dst := range typed {
		if msg, ok := raw[key]; ok {
			if err := json.Unmarshal(msg, dst); err != nil {
				return fmt.Errorf("product field %q: %w", key, err)
			}
			delete(raw, key)
		}
	}

	p.Fields = make(map[string]any, len(raw))
	for key, msg := range raw {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("product field %q: %w", key, err)
		}
		p.Fields[key] = v
	}
	return nil
}

// Scalar returns the remote value of a non-collection field as a string.
// Absent and null fields are the empty string.
func (p *Product) Scalar(name string) string {
	switch name {
	case "id":
		return strconv.Itoa(p.ID)
	case "sku":
		return p.SKU
	}
	v, ok := p.Fields[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
