package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"woosync/internal/wc"
)

// ExportPhase indicates the current stage of a catalog export.
type ExportPhase string

const (
	PhaseIdle     ExportPhase = "idle"
	PhaseStarting ExportPhase = "starting"
	PhaseFetching ExportPhase = "fetching"
	PhaseWriting  ExportPhase = "writing"
	PhaseComplete ExportPhase = "complete"
	PhaseError    ExportPhase = "error"
)

// BackupState is the shared progress record polled by callers. Only the
// background worker writes to it after Start returns; a second Start while a
// job is running overwrites the in-flight record, which is an accepted
// limitation rather than a supported concurrent feature.
type BackupState struct {
	Phase   ExportPhase `json:"phase"`
	Page    int         `json:"page"`
	Total   int         `json:"total"`
	File    string      `json:"file,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ProductLister is the slice of the catalog API the exporter needs.
type ProductLister interface {
	ListProducts(ctx context.Context, page, perPage int) ([]wc.Product, error)
}

// exportColumns is the fixed output schema of a catalog export.
var exportColumns = []string{"id", "sku", "name", "price", "stock_status", "categories", "tags", "attributes"}

// Exporter runs bulk catalog exports, one at a time by convention.
type Exporter struct {
	api ProductLister
	dir string

	// mu guards state: the background worker writes while status polls read.
	mu    sync.RWMutex
	state BackupState
}

// NewExporter creates an exporter writing CSV files under dir.
func NewExporter(api ProductLister, dir string) *Exporter {
	return &Exporter{api: api, dir: dir, state: BackupState{Phase: PhaseIdle}}
}

// State returns a snapshot of the current progress record.
func (e *Exporter) State() BackupState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Exporter) setState(update func(*BackupState)) {
	e.mu.Lock()
	update(&e.state)
	e.mu.Unlock()
}

// Start resets the progress record and launches the export in the
// background, returning immediately. Progress is observed by polling State.
func (e *Exporter) Start(ctx context.Context) {
	e.setState(func(st *BackupState) {
		*st = BackupState{Phase: PhaseStarting}
	})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in catalog export", "panic", r)
				e.setState(func(st *BackupState) {
					st.Phase = PhaseError
					st.Error = fmt.Sprintf("internal error: %v", r)
				})
			}
		}()
		e.run(ctx)
	}()
}

// run fetches every catalog page into memory and then writes a single CSV.
// Any fetch failure aborts the whole job; a partial catalog snapshot is not
// a meaningful artifact, so no partial file is ever written.
func (e *Exporter) run(ctx context.Context) {
	var all []wc.Product
	for page := 1; ; page++ {
		e.setState(func(st *BackupState) {
			st.Phase = PhaseFetching
			st.Page = page
			st.Message = fmt.Sprintf("fetching page %d", page)
		})

		products, err := e.api.ListProducts(ctx, page, wc.PageSize)
		if err != nil {
			slog.Error("catalog export fetch failed", "page", page, "error", err)
			e.setState(func(st *BackupState) {
				st.Phase = PhaseError
				st.Error = fmt.Sprintf("fetch page %d: %v", page, err)
			})
			return
		}
		if len(products) == 0 {
			break
		}
		all = append(all, products...)
		e.setState(func(st *BackupState) {
			st.Total = len(all)
		})
	}

	e.setState(func(st *BackupState) {
		st.Phase = PhaseWriting
		st.Message = fmt.Sprintf("writing %d products", len(all))
	})
	path, err := e.write(all)
	if err != nil {
		slog.Error("catalog export write failed", "error", err)
		e.setState(func(st *BackupState) {
			st.Phase = PhaseError
			st.Error = err.Error()
		})
		return
	}

	message := fmt.Sprintf("exported %d products", len(all))
	if len(all) == 0 {
		message = "no products found in catalog"
	}
	e.setState(func(st *BackupState) {
		st.Phase = PhaseComplete
		st.File = filepath.Base(path)
		st.Message = message
	})
	slog.Info("catalog export complete", "products", len(all), "file", filepath.Base(path))
}

func (e *Exporter) write(products []wc.Product) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("catalog-export-%s.csv", time.Now().Format("20060102-150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportColumns); err != nil {
		return "", err
	}
	for i := range products {
		p := &products[i]
		record := []string{
			fmt.Sprintf("%d", p.ID),
			p.SKU,
			p.Scalar("name"),
			p.Scalar("price"),
			p.Scalar("stock_status"),
			joinTermNames(p.Categories),
			joinTermNames(p.Tags),
			flattenAttributes(p.Attributes),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func joinTermNames(terms []wc.Term) string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// flattenAttributes renders "name:opt1,opt2; name2:opt1" in catalog order.
func flattenAttributes(attrs []wc.Attribute) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = fmt.Sprintf("%s:%s", a.Name, strings.Join(a.Options, ","))
	}
	return strings.Join(parts, "; ")
}

// File returns the absolute path of a previously produced export, refusing
// names that escape the export directory.
func (e *Exporter) File(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid export file name %q", name)
	}
	path := filepath.Join(e.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
