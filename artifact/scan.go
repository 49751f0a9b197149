package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one metadata file found by Scan. Err is set (wrapping
// ErrMalformedName) when the file name cannot be decoded.
type Entry struct {
	Path string
	Name Name
	Err  error
}

// Contents is a metadata file together with its companion bodies.
// A missing companion leaves its body empty.
type Contents struct {
	Metadata    Metadata
	CatalogBody string
	PayloadBody string
}

// Scan lists the session metadata files of dir in lexical order.
// A missing directory yields an error wrapping fs.ErrNotExist.
func Scan(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact: scan %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact: scan %s: not a directory: %w", dir, fs.ErrNotExist)
	}
	matches, err := filepath.Glob(filepath.Join(dir, namePrefix+"_*"+metadataSuffix))
	if err != nil {
		return nil, fmt.Errorf("artifact: scan %s: %w", dir, err)
	}
	sort.Strings(matches)
	entries := make([]Entry, 0, len(matches))
	for _, p := range matches {
		name, err := ParseName(filepath.Base(p))
		entries = append(entries, Entry{Path: p, Name: name, Err: err})
	}
	return entries, nil
}

// Read loads the entry's metadata and its companion body files.
func (e Entry) Read(catalogExt string) (Contents, error) {
	if e.Err != nil {
		return Contents{}, e.Err
	}
	if catalogExt == "" {
		catalogExt = DefaultCatalogExt
	}
	var c Contents
	raw, err := os.ReadFile(e.Path)
	if err != nil {
		return Contents{}, fmt.Errorf("artifact: read metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &c.Metadata); err != nil {
		return Contents{}, fmt.Errorf("artifact: decode metadata %s: %w", filepath.Base(e.Path), err)
	}
	dir := filepath.Dir(e.Path)
	prefix := strings.TrimSuffix(filepath.Base(e.Path), metadataSuffix)
	if c.CatalogBody, err = readOptional(filepath.Join(dir, prefix+inputInfix+catalogExt)); err != nil {
		return Contents{}, err
	}
	if c.PayloadBody, err = readOptional(filepath.Join(dir, prefix+outputSuffix)); err != nil {
		return Contents{}, err
	}
	return c, nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("artifact: read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}
