package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"woosync/internal/catalog"
	"woosync/internal/convert"
	"woosync/internal/history"
	"woosync/internal/logging"
	"woosync/internal/mapping"
)

const historyPageSize = 50

// uploadRequest is the decoded common upload surface shared by the
// transform and sync endpoints.
type uploadRequest struct {
	data     *bytes.Buffer // CSV bytes, spreadsheets already converted
	fileName string
	table    *mapping.Table
	delimIn  rune
	delimOut rune
	strict   bool
	dryRun   bool
}

// parseUpload reads the multipart form: csv_file (required), mapping_file or
// the default mapping, delimiters, and flags. Spreadsheet uploads are
// converted to CSV here so everything downstream only sees CSV.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*uploadRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		return nil, fmt.Errorf("csv_file is required")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".csv", ".xlsx", ".xlsm":
	default:
		return nil, fmt.Errorf("unsupported data file type %q (use .csv or .xlsx)", ext)
	}

	req := &uploadRequest{
		fileName: header.Filename,
		delimIn:  ',',
		delimOut: ',',
		strict:   formBool(r, "strict"),
		dryRun:   formBool(r, "dry_run"),
	}
	if req.delimIn, err = formDelimiter(r, "delimiter_in", req.delimIn); err != nil {
		return nil, err
	}
	if req.delimOut, err = formDelimiter(r, "delimiter_out", req.delimOut); err != nil {
		return nil, err
	}

	req.data = &bytes.Buffer{}
	if convert.IsSpreadsheet(header.Filename) {
		if err := convert.ExcelToCSV(file, req.data, req.delimIn); err != nil {
			return nil, err
		}
	} else if _, err := req.data.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	req.table, err = s.loadMapping(r)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// loadMapping uses the uploaded mapping_file when present, the configured
// default mapping otherwise. use_default_mapping forces the default even
// when a file was uploaded.
func (s *Server) loadMapping(r *http.Request) (*mapping.Table, error) {
	if formBool(r, "use_default_mapping") {
		return mapping.Load(s.cfg.Upload.DefaultMappingPath)
	}

	file, header, err := r.FormFile("mapping_file")
	if err != nil {
		if err == http.ErrMissingFile {
			return mapping.Load(s.cfg.Upload.DefaultMappingPath)
		}
		return nil, fmt.Errorf("read mapping upload: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported mapping file type %q (use .yaml, .yml or .json)", ext)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("read mapping upload: %w", err)
	}
	return mapping.Parse(buf.Bytes(), ext)
}

func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func formDelimiter(r *http.Request, name string, fallback rune) (rune, error) {
	v := r.FormValue(name)
	if v == "" {
		return fallback, nil
	}
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("%s must be a single character", name)
	}
	d, _ := utf8.DecodeRuneInString(v)
	return d, nil
}

// handleTransform converts an uploaded file through the mapping and returns
// the remapped CSV as an attachment.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseUpload(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tr := &mapping.Transformer{
		Table:    req.table,
		DelimIn:  req.delimIn,
		DelimOut: req.delimOut,
		Strict:   req.strict,
	}
	var out bytes.Buffer
	rows, err := tr.Run(req.data, &out)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	s.record(r, history.Entry{Kind: "transform", FileName: req.fileName, Rows: rows})

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transformed.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Bytes()); err != nil {
		logging.FromContext(r.Context()).Error("write transform response", "error", err)
	}
}

// handleSync transforms the upload and synchronizes each row against the
// remote catalog, or reports the would-be changes when dry_run is set.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.products == nil {
		writeError(w, r, http.StatusServiceUnavailable, "WooCommerce is not configured")
		return
	}

	req, err := s.parseUpload(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tr := &mapping.Transformer{
		Table:    req.table,
		DelimIn:  req.delimIn,
		DelimOut: req.delimOut,
		Strict:   req.strict,
	}
	var transformed bytes.Buffer
	if _, err := tr.Run(req.data, &transformed); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := catalog.ReadRows(&transformed, req.delimOut)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c := &catalog.Coordinator{API: s.products, Names: s.names}
	result := c.Run(r.Context(), rows, req.dryRun)

	s.record(r, history.Entry{
		Kind:     "sync",
		FileName: req.fileName,
		Rows:     len(rows),
		Success:  result.Success,
		Errors:   result.Errors,
		DryRun:   req.dryRun,
	})
	writeJSON(w, http.StatusOK, result)
}

// handleBackupStart launches the catalog export and returns immediately.
// Progress is polled via /api/backup/status.
func (s *Server) handleBackupStart(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, http.StatusServiceUnavailable, "WooCommerce is not configured")
		return
	}
	// The export outlives this request, so it does not use the request
	// context.
	s.exporter.Start(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleBackupStatus(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, http.StatusServiceUnavailable, "WooCommerce is not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.exporter.State())
}

func (s *Server) handleBackupDownload(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, http.StatusServiceUnavailable, "WooCommerce is not configured")
		return
	}
	state := s.exporter.State()
	if state.Phase != catalog.PhaseComplete {
		writeError(w, r, http.StatusConflict, fmt.Sprintf("no finished export (phase %s)", state.Phase))
		return
	}
	path, err := s.exporter.File(state.File)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "export file not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", state.File))
	http.ServeFile(w, r, path)
}

func (s *Server) handleCacheRefresh(w http.ResponseWriter, r *http.Request) {
	if s.names == nil {
		writeError(w, r, http.StatusServiceUnavailable, "WooCommerce is not configured")
		return
	}
	s.names.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.runs.Recent(r.Context(), historyPageSize)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load run history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// record logs a run to history, never failing the request over it.
func (s *Server) record(r *http.Request, e history.Entry) {
	if s.runs == nil {
		return
	}
	if _, err := s.runs.Record(r.Context(), e); err != nil {
		logging.FromContext(r.Context()).Error("record run history", "error", err)
	}
}
