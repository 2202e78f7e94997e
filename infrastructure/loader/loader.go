// Package loader reads batched input files into raw records.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arnavk-polka/onChain-Explorer/domain/proposal"
)

// ErrUnsupportedFormat indicates a file extension the loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// BatchFunc receives one batch of raw records in input order. Returning an
// error stops the file.
type BatchFunc func(batch []proposal.RawRecord) error

// Loader streams JSON and CSV files as fixed-size batches of raw records.
// Files are read incrementally so peak memory is bounded by the batch size,
// not the file size.
type Loader struct {
	batchSize int
	logger    *slog.Logger
}

// New creates a Loader. batchSize must be positive.
func New(batchSize int, logger *slog.Logger) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("loader: batch size must be positive, got %d", batchSize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{batchSize: batchSize, logger: logger}, nil
}

// Load reads one file and invokes fn for each batch. An unparsable file is
// fatal for that file (the returned error); the caller decides whether to
// continue with other files. Within a file, record order is preserved.
func (l *Loader) Load(path string, fn BatchFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return l.loadJSON(path, f, fn)
	case ".csv":
		return l.loadCSV(path, f, fn)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// loadJSON handles the three shapes upstream feeds produce: a top-level
// array, an object wrapping the array under "items" or "data", and a single
// object. Top-level arrays are token-streamed element by element.
func (l *Loader) loadJSON(path string, r io.Reader, fn BatchFunc) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("parse %s: unexpected top-level token %v", path, tok)
	}

	if delim == '[' {
		return l.streamArray(path, dec, fn)
	}

	// Object form: decode the remainder and look for a wrapped list.
	var obj map[string]any
	if err := decodeObjectRemainder(dec, &obj); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	items := wrappedItems(obj)
	batch := make([]proposal.RawRecord, 0, l.batchSize)
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			l.logger.Warn("skipping non-object item", "file", path, "index", i)
			continue
		}
		batch = append(batch, proposal.NewRawRecord(fields))
		if len(batch) == l.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]proposal.RawRecord, 0, l.batchSize)
		}
	}
	return flush(batch, fn)
}

func (l *Loader) streamArray(path string, dec *json.Decoder, fn BatchFunc) error {
	batch := make([]proposal.RawRecord, 0, l.batchSize)
	index := 0
	for dec.More() {
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			return fmt.Errorf("parse %s element %d: %w", path, index, err)
		}
		batch = append(batch, proposal.NewRawRecord(fields))
		index++
		if len(batch) == l.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]proposal.RawRecord, 0, l.batchSize)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return flush(batch, fn)
}

// loadCSV streams rows, mapping each onto the header columns. Empty cells
// are omitted from the record so normalization treats them as absent.
func (l *Loader) loadCSV(path string, r io.Reader, fn BatchFunc) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", path, err)
	}

	batch := make([]proposal.RawRecord, 0, l.batchSize)
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s row %d: %w", path, row, err)
		}
		row++

		fields := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) && record[i] != "" {
				fields[col] = record[i]
			}
		}
		batch = append(batch, proposal.NewRawRecord(fields))
		if len(batch) == l.batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]proposal.RawRecord, 0, l.batchSize)
		}
	}
	return flush(batch, fn)
}

func flush(batch []proposal.RawRecord, fn BatchFunc) error {
	if len(batch) == 0 {
		return nil
	}
	return fn(batch)
}

// decodeObjectRemainder reconstructs the object whose opening brace was
// already consumed by the caller's token read.
func decodeObjectRemainder(dec *json.Decoder, out *map[string]any) error {
	obj := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		obj[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*out = obj
	return nil
}

// wrappedItems extracts the record list from an object feed. Feeds wrap
// records under "items" or "data"; a bare object is a single record.
func wrappedItems(obj map[string]any) []any {
	if items, ok := obj["items"].([]any); ok {
		return items
	}
	if items, ok := obj["data"].([]any); ok {
		return items
	}
	return []any{normalizeAnyMap(obj)}
}

func normalizeAnyMap(obj map[string]any) any {
	return map[string]any(obj)
}
