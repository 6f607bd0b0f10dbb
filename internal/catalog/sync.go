package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"woosync/internal/namecache"
	"woosync/internal/product"
	"woosync/internal/wc"
)

// liveMessageCap bounds how many row messages a live run surfaces. Dry runs
// are unbounded since the message list is the whole point.
const liveMessageCap = 10

// ProductAPI is the slice of the catalog client the coordinator needs.
type ProductAPI interface {
	FindProductsBySKU(ctx context.Context, sku string) ([]wc.Product, error)
	UpdateProduct(ctx context.Context, id int, payload map[string]any) error
}

// Resolver maps taxonomy names to remote ids.
type Resolver interface {
	ResolveCategories(names []string) []namecache.Resolved
	ResolveTags(names []string) []namecache.Resolved
}

// Result aggregates a sync run.
type Result struct {
	Success  int      `json:"success"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages"`
	DryRun   bool     `json:"dry_run"`

	omitted int
}

func (r *Result) fail(msg string) {
	r.Errors++
	r.append(msg)
}

func (r *Result) append(msg string) {
	if !r.DryRun && len(r.Messages) >= liveMessageCap {
		r.omitted++
		return
	}
	r.Messages = append(r.Messages, msg)
}

// Coordinator runs the row-by-row sync. Rows execute strictly sequentially
// so catalog-mutating calls against any one remote record never race.
type Coordinator struct {
	API   ProductAPI
	Names Resolver
}

// Run processes rows in file order. Every row failure is isolated: counted,
// its message captured, and the run continues. Returns an error only for
// input-level problems, never for row failures.
func (c *Coordinator) Run(ctx context.Context, rows []map[string]string, dryRun bool) *Result {
	res := &Result{DryRun: dryRun}

	for i, row := range rows {
		line := i + 2 // header is line 1
		c.syncRow(ctx, line, row, res)
	}

	if res.omitted > 0 {
		res.Messages = append(res.Messages, fmt.Sprintf("... and %d more", res.omitted))
	}
	slog.Info("sync run finished",
		"rows", len(rows),
		"success", res.Success,
		"errors", res.Errors,
		"dry_run", dryRun,
	)
	return res
}

func (c *Coordinator) syncRow(ctx context.Context, line int, row map[string]string, res *Result) {
	p, err := product.Build(row)
	if err != nil {
		if errors.Is(err, product.ErrMissingSKU) {
			res.fail(fmt.Sprintf("row %d: missing SKU, skipped", line))
			return
		}
		res.fail(fmt.Sprintf("row %d: %v", line, err))
		return
	}

	matches, err := c.API.FindProductsBySKU(ctx, p.SKU)
	if err != nil {
		res.fail(fmt.Sprintf("row %d (%s): lookup failed: %v", line, p.SKU, err))
		return
	}
	if len(matches) == 0 {
		res.fail(fmt.Sprintf("row %d (%s): not found", line, p.SKU))
		return
	}
	if len(matches) > 1 {
		slog.Warn("multiple products matched SKU, using first", "sku", p.SKU, "matches", len(matches))
	}
	remote := &matches[0]

	cats := c.Names.ResolveCategories(p.Categories)
	tags := c.Names.ResolveTags(p.Tags)

	if res.DryRun {
		changes := Diff(remote, p, cats, tags)
		if len(changes) == 0 {
			return
		}
		msg := fmt.Sprintf("row %d (%s): would update:", line, p.SKU)
		for _, ch := range changes {
			msg += fmt.Sprintf("\n  %s: %q -> %q", ch.Field, ch.Old, ch.New)
		}
		res.append(msg)
		return
	}

	if err := c.API.UpdateProduct(ctx, remote.ID, updateBody(p, cats, tags)); err != nil {
		res.fail(fmt.Sprintf("row %d (%s): update failed: %v", line, p.SKU, err))
		return
	}
	res.Success++
	res.append(fmt.Sprintf("row %d (%s): updated", line, p.SKU))
}

// updateBody builds the update request. Taxonomy keys are sent only when at
// least one name resolved, so an unresolvable batch never clears the remote
// values.
func updateBody(p *product.Payload, cats, tags []namecache.Resolved) map[string]any {
	body := make(map[string]any, len(p.Fields)+3)
	for name, value := range p.Fields {
		body[name] = value
	}
	if ids := termRefs(cats); len(ids) > 0 {
		body["categories"] = ids
	}
	if ids := termRefs(tags); len(ids) > 0 {
		body["tags"] = ids
	}
	if len(p.Attributes) > 0 {
		body["attributes"] = p.Attributes
	}
	return body
}

func termRefs(resolved []namecache.Resolved) []map[string]int {
	if len(resolved) == 0 {
		return nil
	}
	refs := make([]map[string]int, len(resolved))
	for i, r := range resolved {
		refs[i] = map[string]int{"id": r.ID}
	}
	return refs
}

// ReadRows parses a header-led CSV into one map per row, keyed by the
// trimmed header names. Short rows leave their trailing columns absent.
func ReadRows(r io.Reader, delim rune) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("input CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
