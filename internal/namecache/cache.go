// Package namecache maintains persisted name→id lookup tables for the remote
// catalog's category and tag taxonomies.
//
// Each name is stored under both its original case and its lowercased form,
// so resolution tolerates case drift between spreadsheets and the store.
// Snapshots are plain JSON files; a live walk only happens when a snapshot
// is missing or empty, or on an explicit refresh.
package namecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"woosync/internal/wc"
)

// TermLister is the slice of the catalog API the cache needs.
type TermLister interface {
	ListCategories(ctx context.Context, page, perPage int) ([]wc.Term, error)
	ListTags(ctx context.Context, page, perPage int) ([]wc.Term, error)
}

// Resolved is one successfully resolved name.
type Resolved struct {
	Name string
	ID   int
}

const (
	categoriesSnapshot = "categories.json"
	tagsSnapshot       = "tags.json"
)

// Cache holds the category and tag name→id maps.
type Cache struct {
	api TermLister
	dir string

	mu         sync.RWMutex
	categories map[string]int
	tags       map[string]int
}

// New creates a cache persisting snapshots under dir.
func New(api TermLister, dir string) *Cache {
	return &Cache{
		api:        api,
		dir:        dir,
		categories: make(map[string]int),
		tags:       make(map[string]int),
	}
}

// Load populates both maps from their snapshots, falling back to a live walk
// only for a map whose snapshot is missing or empty.
func (c *Cache) Load(ctx context.Context) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	cats, catsLoaded := c.loadSnapshot(categoriesSnapshot)
	if !catsLoaded {
		cats = c.fetchAll(ctx, "categories", c.api.ListCategories)
		c.persist(categoriesSnapshot, cats)
	}
	tags, tagsLoaded := c.loadSnapshot(tagsSnapshot)
	if !tagsLoaded {
		tags = c.fetchAll(ctx, "tags", c.api.ListTags)
		c.persist(tagsSnapshot, tags)
	}

	c.mu.Lock()
	c.categories = cats
	c.tags = tags
	c.mu.Unlock()

	slog.Info("name cache loaded",
		"categories", len(cats),
		"tags", len(tags),
		"categories_from_snapshot", catsLoaded,
		"tags_from_snapshot", tagsLoaded,
	)
	return nil
}

// Refresh re-fetches both taxonomies from scratch and overwrites the
// snapshots. Safe to call while resolution reads are in flight.
func (c *Cache) Refresh(ctx context.Context) {
	cats := c.fetchAll(ctx, "categories", c.api.ListCategories)
	tags := c.fetchAll(ctx, "tags", c.api.ListTags)

	c.mu.Lock()
	c.categories = cats
	c.tags = tags
	c.mu.Unlock()

	c.persist(categoriesSnapshot, cats)
	c.persist(tagsSnapshot, tags)

	slog.Info("name cache refreshed", "categories", len(cats), "tags", len(tags))
}

// ResolveCategories maps category names to ids. Unresolvable names are
// dropped with a warning, never failing the batch.
func (c *Cache) ResolveCategories(names []string) []Resolved {
	return c.resolve("category", names, func() map[string]int {
		return c.categories
	})
}

// ResolveTags maps tag names to ids, with the same drop-on-miss rule.
func (c *Cache) ResolveTags(names []string) []Resolved {
	return c.resolve("tag", names, func() map[string]int {
		return c.tags
	})
}

func (c *Cache) resolve(kind string, names []string, pick func() map[string]int) []Resolved {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := pick()
	var out []Resolved
	for _, name := range names {
		id, ok := m[name]
		if !ok {
			id, ok = m[strings.ToLower(name)]
		}
		if !ok {
			slog.Warn("unresolved taxonomy name dropped", "kind", kind, "name", name)
			continue
		}
		out = append(out, Resolved{Name: name, ID: id})
	}
	return out
}

// fetchAll walks the paginated taxonomy listing until an empty page. An HTTP
// error stops the walk; whatever was collected so far is kept, never
// discarded.
func (c *Cache) fetchAll(ctx context.Context, kind string, list func(context.Context, int, int) ([]wc.Term, error)) map[string]int {
	m := make(map[string]int)
	for page := 1; ; page++ {
		terms, err := list(ctx, page, wc.PageSize)
		if err != nil {
			slog.Warn("taxonomy walk stopped early, keeping partial results",
				"kind", kind,
				"page", page,
				"collected", len(m),
				"error", err,
			)
			break
		}
		if len(terms) == 0 {
			break
		}
		for _, t := range terms {
			m[t.Name] = t.ID
			m[strings.ToLower(t.Name)] = t.ID
		}
	}
	return m
}

// loadSnapshot reads one snapshot file. The second return is false when the
// snapshot is missing, unreadable or empty — the cases that warrant a live
// fetch.
func (c *Cache) loadSnapshot(name string) (map[string]int, bool) {
	path := filepath.Join(c.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("unreadable cache snapshot", "path", path, "error", err)
		}
		return nil, false
	}

	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("corrupt cache snapshot", "path", path, "error", err)
		return nil, false
	}
	if len(m) == 0 {
		return nil, false
	}
	return m, true
}

func (c *Cache) persist(name string, m map[string]int) {
	path := filepath.Join(c.dir, name)
	data, err := json.Marshal(m)
	if err != nil {
		slog.Error("encode cache snapshot", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("write cache snapshot", "path", path, "error", err)
	}
}
