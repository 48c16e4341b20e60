// Package loader reads the fixed-schema reference-data flat files into the
// refdata tables, resolving identities through an identity.Registry first.
//
// Every loader is all-or-nothing: a missing file, a row with the wrong number
// of fields, or an unparsable field fails the whole load and nothing is
// inserted into the target table.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/metrics"
)

var (
	// ErrMalformedRow marks a row whose field count does not match the schema.
	ErrMalformedRow = errors.New("malformed row")
	// ErrInvalidField marks a field that could not be parsed.
	ErrInvalidField = errors.New("invalid field")
)

// RowError describes the row that failed a load.
type RowError struct {
	File   string
	Line   int
	Fields int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s:%d: column %s: %v", e.File, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v (%d fields)", e.File, e.Line, e.Err, e.Fields)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// LoadResult summarises a completed load.
type LoadResult struct {
	File     string
	Rows     int
	Distinct int
	Duration time.Duration
}

// Loader populates refdata tables from flat files.
type Loader struct {
	reg    *identity.Registry
	logger *zap.Logger
}

// New creates a loader that resolves identities through reg.
func New(reg *identity.Registry, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{reg: reg, logger: logger}
}

type line struct {
	number int
	text   string
}

// readRows returns the trimmed, non-blank lines of path after the header.
// The header is compared against expected and a mismatch is only logged.
func (l *Loader) readRows(path, expected string) ([]line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference file: %w", err)
	}
	defer f.Close()

	var lines []line
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		lines = append(lines, line{number: n, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reference file %s: %w", path, err)
	}

	if len(lines) == 0 {
		return nil, nil
	}
	if header := strings.TrimPrefix(lines[0].text, "\ufeff"); header != expected {
		l.logger.Warn("loader.unexpected_header",
			zap.String("file", path),
			zap.String("header", header))
	}
	return lines[1:], nil
}

func splitRow(path string, ln line, want int) ([]string, error) {
	fields := strings.Split(ln.text, ",")
	if len(fields) != want {
		return nil, &RowError{File: path, Line: ln.number, Fields: len(fields), Err: ErrMalformedRow}
	}
	return fields, nil
}

func (l *Loader) finish(file, path string, rows, distinct int, start time.Time, err error) (LoadResult, error) {
	if err != nil {
		metrics.IncLoadRows(file, "error", 1)
		metrics.IncError("loader", file)
		l.logger.Error("loader.file_failed",
			zap.String("file", path),
			zap.Error(err))
		return LoadResult{File: path}, err
	}

	res := LoadResult{File: path, Rows: rows, Distinct: distinct, Duration: time.Since(start)}
	metrics.IncLoadRows(file, "ok", rows)
	metrics.ObserveDuration(metrics.LoadDuration, start, file)
	l.logger.Info("loader.file_loaded",
		zap.String("file", path),
		zap.Int("rows", res.Rows),
		zap.Int("distinct", res.Distinct),
		zap.Duration("duration", res.Duration))
	return res, nil
}
