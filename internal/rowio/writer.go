package rowio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cannectors/wrangler/internal/pathutil"
	"github.com/cannectors/wrangler/pkg/row"
	"github.com/cannectors/wrangler/pkg/wrangler"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Create opens path for writing, creating parent directories. "-" or an empty
// path selects stdout, which Close leaves open.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == pathutil.Stdio {
		return nopCloser{os.Stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

// WriteFile writes rows to path ("-" or empty for stdout).
func WriteFile(path, format string, rows []*row.Row) error {
	if format == "" {
		format = DetectFormat(path)
	}
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := Write(w, format, rows); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// WriteErrorsFile writes error records to path ("-" or empty for stdout).
func WriteErrorsFile(path, format string, records []wrangler.ErrorRecord) error {
	if format == "" {
		format = DetectFormat(path)
	}
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := WriteErrors(w, format, records); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Write encodes rows to w. CSV output has one column per distinct column name
// in order of first appearance; nested rows are written as JSON text.
func Write(w io.Writer, format string, rows []*row.Row) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatJSONL, "":
		return writeJSONL(w, rows)
	case FormatCSV:
		return writeCSV(w, rows)
	default:
		return fmt.Errorf("unsupported row format %q", format)
	}
}

// WriteErrors encodes error records to w. In CSV the offending row is written
// as a JSON object in the last column.
func WriteErrors(w io.Writer, format string, records []wrangler.ErrorRecord) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatJSONL, "":
		return writeJSONL(w, records)
	case FormatCSV:
		return writeErrorsCSV(w, records)
	default:
		return fmt.Errorf("unsupported row format %q", format)
	}
}

func writeJSON[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func writeJSONL[T any](w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			return fmt.Errorf("encode record %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

func writeCSV(w io.Writer, rows []*row.Row) error {
	var header []string
	seen := make(map[string]struct{})
	for _, r := range rows {
		for _, c := range r.Columns() {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				header = append(header, c)
			}
		}
	}

	cw := csv.NewWriter(w)
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	rec := make([]string, len(header))
	for _, r := range rows {
		for i, c := range header {
			v, ok := r.Get(c)
			if !ok {
				rec[i] = ""
				continue
			}
			cell, err := csvCell(v)
			if err != nil {
				return err
			}
			rec[i] = cell
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var errorHeader = []string{"index", "code", "reason", "directive", "line", "message", "row"}

func writeErrorsCSV(w io.Writer, records []wrangler.ErrorRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(errorHeader); err != nil {
		return err
	}
	for _, e := range records {
		data, err := json.Marshal(e.Row)
		if err != nil {
			return err
		}
		rec := []string{
			strconv.Itoa(e.Index),
			strconv.Itoa(e.Code),
			e.Reason,
			e.Directive,
			strconv.Itoa(e.Line),
			e.Message,
			string(data),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v row.Value) (string, error) {
	switch v.Kind() {
	case row.KindNull:
		return "", nil
	case row.KindRow:
		data, err := v.MarshalJSON()
		return string(data), err
	default:
		return v.String(), nil
	}
}
