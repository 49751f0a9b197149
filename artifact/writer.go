package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultCatalogExt is the extension of catalog body files.
const DefaultCatalogExt = "cxml"

// aggregateLayout formats the run start in aggregate file names.
const aggregateLayout = "20060102_150405"

// Writer deposits session artifacts into one directory.
type Writer struct {
	dir        string
	catalogExt string
}

// NewWriter creates a Writer targeting dir. The directory is created on
// first write. An empty catalogExt selects DefaultCatalogExt.
func NewWriter(dir, catalogExt string) *Writer {
	if catalogExt == "" {
		catalogExt = DefaultCatalogExt
	}
	return &Writer{dir: dir, catalogExt: catalogExt}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write persists one record: the catalog body and payload body files when
// non-empty, and always the metadata file. A body file left by an earlier
// write of the same session is removed when its slot is now empty. It
// returns the written paths.
func (w *Writer) Write(r SessionRecord) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: mkdir %s: %w", w.dir, err)
	}
	name := NameOf(r)
	var written []string
	if r.CatalogBody != "" {
		p, err := w.put(name.InputFile(w.catalogExt), []byte(r.CatalogBody))
		if err != nil {
			return written, err
		}
		written = append(written, p)
	} else if err := w.drop(name.InputFile(w.catalogExt)); err != nil {
		return written, err
	}
	if r.PayloadBody != "" {
		p, err := w.put(name.OutputFile(), []byte(r.PayloadBody))
		if err != nil {
			return written, err
		}
		written = append(written, p)
	} else if err := w.drop(name.OutputFile()); err != nil {
		return written, err
	}
	meta, err := json.MarshalIndent(MetadataOf(r), "", "  ")
	if err != nil {
		return written, fmt.Errorf("artifact: marshal metadata: %w", err)
	}
	p, err := w.put(name.MetadataFile(), meta)
	if err != nil {
		return written, err
	}
	return append(written, p), nil
}

// WriteAggregate writes every record of a run into one file named after
// the run start. An empty slice still produces a file holding [].
func (w *Writer) WriteAggregate(records []SessionRecord, runStart time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: mkdir %s: %w", w.dir, err)
	}
	if records == nil {
		records = []SessionRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifact: marshal aggregate: %w", err)
	}
	return w.put(AggregateName(runStart), data)
}

// AggregateName returns the aggregate file name for a run start.
func AggregateName(runStart time.Time) string {
	return "tradecentric_data_" + runStart.Format(aggregateLayout) + ".json"
}

// put writes data to dir/name through a .tmp file and a rename, so a
// reader never observes a partial file.
func (w *Writer) put(name string, data []byte) (string, error) {
	target := filepath.Join(w.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write tmp: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("artifact: rename: %w", err)
	}
	return target, nil
}

// drop removes dir/name if present.
func (w *Writer) drop(name string) error {
	if err := os.Remove(filepath.Join(w.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("artifact: remove stale %s: %w", name, err)
	}
	return nil
}
