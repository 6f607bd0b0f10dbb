// Package catalog implements the dry-run diff comparator, the row-by-row
// sync coordinator and the bulk catalog export job.
package catalog

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"woosync/internal/namecache"
	"woosync/internal/product"
	"woosync/internal/wc"
)

// Change is one field-level difference between the remote record and the
// payload about to be written.
type Change struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// normalizeText strips markup and collapses whitespace so cosmetically
// different values (HTML-encoded descriptions, reflowed text) don't show up
// as changes.
func normalizeText(s string) string {
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Diff compares a remote product against a new payload and returns the
// field-level changes, in a stable order. The remote record is never
// mutated. cats and tags are the payload's resolved taxonomy names; the id
// sets are what is compared, the names are what is reported.
func Diff(remote *wc.Product, p *product.Payload, cats, tags []namecache.Resolved) []Change {
	var changes []Change

	// A taxonomy with no resolved ids is skipped, matching the live update,
	// which omits the key rather than clearing remote values.
	if len(cats) > 0 {
		if ch, ok := diffTerms("categories", remote.Categories, p.Categories, cats); ok {
			changes = append(changes, ch)
		}
	}
	if len(tags) > 0 {
		if ch, ok := diffTerms("tags", remote.Tags, p.Tags, tags); ok {
			changes = append(changes, ch)
		}
	}
	if len(p.Attributes) > 0 {
		if ch, ok := diffAttributes(remote.Attributes, p.Attributes); ok {
			changes = append(changes, ch)
		}
	}

	fields := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	for _, name := range fields {
		oldVal := normalizeText(remote.Scalar(name))
		newVal := normalizeText(p.Fields[name])
		if oldVal != newVal {
			changes = append(changes, Change{Field: name, Old: oldVal, New: newVal})
		}
	}
	return changes
}

// diffTerms compares the resolved id sets, order-independent. Each side's
// report string comes from its own names, never re-resolved.
func diffTerms(field string, remote []wc.Term, newNames []string, resolved []namecache.Resolved) (Change, bool) {
	oldIDs := make(map[int]bool, len(remote))
	for _, t := range remote {
		oldIDs[t.ID] = true
	}
	newIDs := make(map[int]bool, len(resolved))
	for _, r := range resolved {
		newIDs[r.ID] = true
	}

	same := len(oldIDs) == len(newIDs)
	if same {
		for id := range newIDs {
			if !oldIDs[id] {
				same = false
				break
			}
		}
	}
	if same {
		return Change{}, false
	}

	oldNames := make([]string, 0, len(remote))
	for _, t := range remote {
		oldNames = append(oldNames, t.Name)
	}
	return Change{
		Field: field,
		Old:   strings.Join(oldNames, ", "),
		New:   strings.Join(newNames, ", "),
	}, true
}

// diffAttributes compares attributes as a name→options mapping. Option order
// within an attribute is significant; attribute order is not.
func diffAttributes(remote []wc.Attribute, next []product.Attribute) (Change, bool) {
	oldMap := make(map[string][]string, len(remote))
	for _, a := range remote {
		oldMap[a.Name] = a.Options
	}
	newMap := make(map[string][]string, len(next))
	for _, a := range next {
		newMap[a.Name] = a.Options
	}

	same := len(oldMap) == len(newMap)
	if same {
		for name, opts := range newMap {
			old, ok := oldMap[name]
			if !ok || !equalStrings(old, opts) {
				same = false
				break
			}
		}
	}
	if same {
		return Change{}, false
	}
	return Change{
		Field: "attributes",
		Old:   formatAttributeMap(oldMap),
		New:   formatAttributeMap(newMap),
	}, true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// formatAttributeMap renders "name:opt1,opt2; name2:opt1" with attribute
// names sorted so the output is deterministic.
func formatAttributeMap(m map[string][]string) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%s", name, strings.Join(m[name], ",")))
	}
	return strings.Join(parts, "; ")
}
