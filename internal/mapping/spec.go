// Package mapping implements the declarative column-mapping language used to
// remap tabular product data into the canonical import schema, and the CSV
// transformer that applies a mapping file row by row.
package mapping

import (
	"fmt"
	"strings"
)

// Kind identifies the resolved shape of a mapping spec.
type Kind int

const (
	// KindColumnRef copies a single source column.
	KindColumnRef Kind = iota
	// KindColumnList joins several source columns with a single space.
	KindColumnList
	// KindConcat joins several source columns with a custom separator.
	KindConcat
	// KindLiteral emits a constant value.
	KindLiteral
)

// Spec is one output column's mapping rule. The mapping file's polymorphic
// value shape (string | list | object) is resolved into a Spec once at load
// time; rows are never re-sniffed.
type Spec struct {
	Kind    Kind
	Column  string   // KindColumnRef
	Columns []string // KindColumnList, KindConcat
	Sep     string   // KindConcat
	Value   string   // KindLiteral
}

// SourceRow maps trimmed source-column names to raw string values.
type SourceRow map[string]string

// Table is an ordered mapping from output-column name to spec. Insertion
// order in the mapping file defines the output column order.
type Table struct {
	Columns []string
	Specs   map[string]Spec
}

// add appends an output column, rejecting duplicates.
func (t *Table) add(name string, spec Spec) error {
	if _, ok := t.Specs[name]; ok {
		return fmt.Errorf("duplicate output column %q", name)
	}
	if t.Specs == nil {
		t.Specs = make(map[string]Spec)
	}
	t.Columns = append(t.Columns, name)
	t.Specs[name] = spec
	return nil
}

// Referenced returns the set of source columns any spec refers to.
// Literals reference nothing.
func (t *Table) Referenced() map[string]struct{} {
	refs := make(map[string]struct{})
	for _, spec := range t.Specs {
		switch spec.Kind {
		case KindColumnRef:
			refs[spec.Column] = struct{}{}
		case KindColumnList, KindConcat:
			for _, c := range spec.Columns {
				refs[c] = struct{}{}
			}
		}
	}
	return refs
}

// Eval computes the spec's value for one source row.
//
// A missing source column is not an error here: column refs evaluate to the
// empty string and list entries are skipped.
func (s Spec) Eval(row SourceRow) (string, error) {
	switch s.Kind {
	case KindLiteral:
		return s.Value, nil
	case KindColumnRef:
		return row[s.Column], nil
	case KindColumnList:
		return joinColumns(row, s.Columns, " "), nil
	case KindConcat:
		// Sep is defaulted to a single space at load time; an explicit
		// empty separator is respected.
		return joinColumns(row, s.Columns, s.Sep), nil
	default:
		return "", fmt.Errorf("unsupported mapping spec kind %d", s.Kind)
	}
}

// joinColumns trims each present column value and joins them. Missing
// columns are skipped, not empty-padded.
func joinColumns(row SourceRow, cols []string, sep string) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		v, ok := row[c]
		if !ok {
			continue
		}
		parts = append(parts, strings.TrimSpace(v))
	}
	return strings.Join(parts, sep)
}
