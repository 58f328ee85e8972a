// Package rowio reads and writes rows and error records as JSON, JSON Lines
// or CSV.
package rowio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cannectors/wrangler/internal/pathutil"
	"github.com/cannectors/wrangler/pkg/row"
)

// Row formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 16 * 1024 * 1024

const utf8BOM = "\uFEFF"

// DetectFormat returns the format for path's extension, defaulting to JSON Lines.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	default:
		return FormatJSONL
	}
}

// ReadFile reads all rows from path ("-" for stdin). An empty format is
// detected from the extension.
func ReadFile(path, format string) ([]*row.Row, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	if path == pathutil.Stdio {
		return Read(os.Stdin, format)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	rows, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Read decodes all rows from r. JSON input is an array of objects, JSON Lines
// input has one object per line and CSV input has a header line. Object keys
// keep their order in the source; CSV cells are read as strings.
func Read(r io.Reader, format string) ([]*row.Row, error) {
	switch format {
	case FormatJSON:
		return readJSON(r)
	case FormatJSONL, "":
		return readJSONL(r)
	case FormatCSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported row format %q", format)
	}
}

func readJSON(r io.Reader) ([]*row.Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected a JSON array of objects")
	}

	var rows []*row.Row
	for dec.More() {
		rw, err := decodeRow(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rows, nil
}

func readJSONL(r io.Reader) ([]*row.Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows []*row.Row
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if line == 1 {
			text = bytes.TrimPrefix(text, []byte(utf8BOM))
		}
		if len(text) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		rw, err := decodeRow(dec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("line %d: unexpected data after object", line)
		}
		rows = append(rows, rw)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func decodeRow(dec *json.Decoder) (*row.Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}
	return decodeObject(dec)
}

// decodeObject reads the members of an object whose '{' was already consumed.
// A repeated key overwrites the earlier value in place.
func decodeObject(dec *json.Decoder) (*row.Row, error) {
	r := row.New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		r.AddOrSet(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeValue(dec *json.Decoder) (row.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return row.Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return row.Null(), nil
	case string:
		return row.String(t), nil
	case bool:
		return row.Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return row.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return row.Null(), err
		}
		return row.Float(f), nil
	case json.Delim:
		if t == '{' {
			nested, err := decodeObject(dec)
			if err != nil {
				return row.Null(), err
			}
			return row.Nested(nested), nil
		}
		return row.Null(), fmt.Errorf("arrays are not supported as column values")
	default:
		return row.Null(), fmt.Errorf("unexpected token %v", tok)
	}
}

func readCSV(r io.Reader) ([]*row.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []*row.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("csv line %d has %d fields, header has %d", line, len(rec), len(header))
		}

		rw := row.New()
		for i, name := range header {
			if i < len(rec) {
				rw.Add(name, row.String(rec[i]))
			} else {
				rw.Add(name, row.Null())
			}
		}
		rows = append(rows, rw)
	}
	return rows, nil
}
