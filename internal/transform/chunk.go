package transform

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"omop2neo4j/pkg/errors"
)

// chunkReader streams a source CSV in bounded windows of raw string rows.
// No type inference happens here: identifier columns stay text until the
// transformer converts them explicitly. Restarting means reopening; the
// reader only ever moves forward, so memory is bounded by one window.
type chunkReader struct {
	path  string
	file  *os.File
	r     *csv.Reader
	index map[string]int
	// rowsRead counts data rows handed out so far, for error reporting.
	rowsRead int
}

func openChunkReader(path string) (*chunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source file %s: %w", path, err)
	}
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	return &chunkReader{path: path, file: f, r: r, index: index}, nil
}

// Next returns up to n rows. A nil slice signals end of file.
func (cr *chunkReader) Next(n int) ([][]string, error) {
	var rows [][]string
	for len(rows) < n {
		record, err := cr.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", cr.path, err)
		}
		rows = append(rows, record)
	}
	cr.rowsRead += len(rows)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows, nil
}

func (cr *chunkReader) Close() error {
	return cr.file.Close()
}

// view binds a raw row to the reader's header for named field access.
// num is the 1-based data row number within the file.
func (cr *chunkReader) view(row []string, num int) rowView {
	return rowView{file: cr.path, num: num, index: cr.index, fields: row}
}

// hasColumn reports whether the source file carries the named column.
func (cr *chunkReader) hasColumn(name string) bool {
	_, ok := cr.index[name]
	return ok
}

type rowView struct {
	file   string
	num    int
	index  map[string]int
	fields []string
}

// get returns a required field; a missing column or short row is a
// RowParseError.
func (v rowView) get(name string) (string, error) {
	i, ok := v.index[name]
	if !ok || i >= len(v.fields) {
		return "", errors.NewRowParse(v.file, v.num, name, "is missing", nil)
	}
	return v.fields[i], nil
}

// optional returns a field that the source may legitimately omit.
func (v rowView) optional(name string) (string, bool) {
	i, ok := v.index[name]
	if !ok || i >= len(v.fields) {
		return "", false
	}
	return v.fields[i], true
}

// intField returns a required field that must parse as an integer id. The
// raw text is returned unchanged to avoid any precision loss on large ids.
func (v rowView) intField(name string) (string, error) {
	raw, err := v.get(name)
	if err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err != nil {
		return "", errors.NewRowParse(v.file, v.num, name, "is not an integer id", err)
	}
	return strings.TrimSpace(raw), nil
}
