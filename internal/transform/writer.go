package transform

import (
	"encoding/csv"
	"fmt"
	"os"
)

// outputFile is an append-only CSV writer for one import file. The file is
// truncated on open (runs fully supersede each other) and the header row is
// written immediately, so chunked appends never repeat it.
type outputFile struct {
	path   string
	f      *os.File
	w      *csv.Writer
	rows   int64
	closed bool
}

func newOutputFile(path string, header []string) (*outputFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating import file %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing header of %s: %w", path, err)
	}
	return &outputFile{path: path, f: f, w: w}, nil
}

func (o *outputFile) Write(record []string) error {
	if err := o.w.Write(record); err != nil {
		return fmt.Errorf("writing to %s: %w", o.path, err)
	}
	o.rows++
	return nil
}

// Flush drains the csv writer's buffer at a chunk boundary.
func (o *outputFile) Flush() error {
	o.w.Flush()
	if err := o.w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", o.path, err)
	}
	return nil
}

// Close flushes and closes the file. Safe to call more than once, so it can
// be deferred for error paths and still called eagerly to check the result.
func (o *outputFile) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.Flush(); err != nil {
		o.f.Close()
		return err
	}
	return o.f.Close()
}
