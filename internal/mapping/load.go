package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// keyPattern matches the inline literal syntax `key(Some Constant)`.
var keyPattern = regexp.MustCompile(`(?i)^key\((.*)\)$`)

// Load reads a mapping file and resolves it into a Table. The format is
// chosen by extension: .yaml/.yml parse as YAML, anything else as JSON.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse resolves raw mapping-file content into a Table. ext selects the
// format the same way Load does.
func Parse(data []byte, ext string) (*Table, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

// resolveString turns a bare string value into a literal or column ref.
func resolveString(s string) Spec {
	if m := keyPattern.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return Spec{Kind: KindLiteral, Value: m[1]}
	}
	return Spec{Kind: KindColumnRef, Column: s}
}

// ---------- YAML ----------

// parseYAML decodes via yaml.Node so the top-level key order survives.
func parseYAML(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mapping yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("mapping root must be an object")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("mapping root must be an object")
	}

	table := &Table{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Tag != "!!str" {
			return nil, fmt.Errorf("mapping keys (output column names) must be strings, got %q", keyNode.Value)
		}
		spec, err := resolveYAMLSpec(valNode)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", keyNode.Value, err)
		}
		if err := table.add(keyNode.Value, spec); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func resolveYAMLSpec(n *yaml.Node) (Spec, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag != "!!str" {
			return Spec{}, fmt.Errorf("unsupported mapping spec type %s", n.Tag)
		}
		return resolveString(n.Value), nil

	case yaml.SequenceNode:
		var cols []string
		if err := n.Decode(&cols); err != nil {
			return Spec{}, fmt.Errorf("column list must contain strings: %w", err)
		}
		return Spec{Kind: KindColumnList, Columns: cols}, nil

	case yaml.MappingNode:
		fields := make(map[string]*yaml.Node, len(n.Content)/2)
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			fields[n.Content[i].Value] = n.Content[i+1]
			keys = append(keys, n.Content[i].Value)
		}
		// The key form tolerates extra object keys; the concat form does not.
		if v, ok := fields["key"]; ok {
			return Spec{Kind: KindLiteral, Value: v.Value}, nil
		}
		if v, ok := fields["concat"]; ok {
			var cols []string
			if err := v.Decode(&cols); err != nil {
				return Spec{}, fmt.Errorf("concat must be a list of column names: %w", err)
			}
			sep := " "
			if s, ok := fields["sep"]; ok {
				sep = s.Value
			}
			for _, k := range keys {
				if k != "concat" && k != "sep" {
					return Spec{}, fmt.Errorf("unknown mapping object keys: %v", keys)
				}
			}
			return Spec{Kind: KindConcat, Columns: cols, Sep: sep}, nil
		}
		return Spec{}, fmt.Errorf("unknown mapping object keys: %v", keys)

	default:
		return Spec{}, fmt.Errorf("unsupported mapping spec type")
	}
}

// ---------- JSON ----------

// parseJSON walks the token stream instead of unmarshalling into a map, so
// the top-level key order survives.
func parseJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse mapping json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("mapping root must be an object")
	}

	table := &Table{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse mapping json: %w", err)
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		spec, err := resolveJSONSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		if err := table.add(key, spec); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func resolveJSONSpec(raw json.RawMessage) (Spec, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Spec{}, fmt.Errorf("empty mapping spec")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Spec{}, err
		}
		return resolveString(s), nil

	case '[':
		var cols []string
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return Spec{}, fmt.Errorf("column list must contain strings: %w", err)
		}
		return Spec{Kind: KindColumnList, Columns: cols}, nil

	case '{':
		var obj struct {
			Key    *string          `json:"key"`
			Concat *json.RawMessage `json:"concat"`
			Sep    *string          `json:"sep"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Spec{}, err
		}
		// The key form tolerates extra object keys; the concat form does not.
		if obj.Key != nil {
			return Spec{Kind: KindLiteral, Value: *obj.Key}, nil
		}

		var keys map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return Spec{}, err
		}
		if obj.Concat != nil {
			for k := range keys {
				if k != "concat" && k != "sep" {
					return Spec{}, fmt.Errorf("unknown mapping object keys: %v", mapKeys(keys))
				}
			}
			var cols []string
			if err := json.Unmarshal(*obj.Concat, &cols); err != nil {
				return Spec{}, fmt.Errorf("concat must be a list of column names: %w", err)
			}
			sep := " "
			if obj.Sep != nil {
				sep = *obj.Sep
			}
			return Spec{Kind: KindConcat, Columns: cols, Sep: sep}, nil
		}
		return Spec{}, fmt.Errorf("unknown mapping object keys: %v", mapKeys(keys))

	default:
		return Spec{}, fmt.Errorf("unsupported mapping spec type")
	}
}

func mapKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
