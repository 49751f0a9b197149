package artifact

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var extractedAt = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func TestParseName_RoundTrip(t *testing.T) {
	// WHAT: The canonical metadata name decodes to its three parts.
	got, err := ParseName("session_Prod_JJ_abc123_metadata.json")
	if err != nil {
		t.Fatal(err)
	}
	want := Name{Environment: "Prod", Customer: "JJ", SessionID: "abc123"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseName_MultiSegmentCustomer(t *testing.T) {
	got, err := ParseName("session_QA_Acme_Labs_Inc_s-9_metadata.json")
	if err != nil {
		t.Fatal(err)
	}
	if got.Customer != "Acme_Labs_Inc" || got.SessionID != "s-9" || got.Environment != "QA" {
		t.Errorf("got %+v", got)
	}
}

func TestParseName_TooFewSegments(t *testing.T) {
	// WHAT: Fewer than four segments is rejected with ErrMalformedName.
	// WHY: The loader counts it as an error instead of aborting.
	for _, name := range []string{"session_Prod_abc_metadata.json", "session_metadata.json", "other_Prod_JJ_x_metadata.json"} {
		if _, err := ParseName(name); !errors.Is(err, ErrMalformedName) {
			t.Errorf("%s: err = %v, want ErrMalformedName", name, err)
		}
	}
}

func TestNameOf(t *testing.T) {
	tests := []struct {
		name string
		rec  SessionRecord
		want Name
	}{
		{"bracket tag wins", SessionRecord{RouteName: "[Prod] J&J", Environment: "Production", SessionID: "abc123"},
			Name{"Prod", "JJ", "abc123"}},
		{"no tag uses record env", SessionRecord{RouteName: "Acme Labs, Inc.", Environment: "QA", SessionID: "k1"},
			Name{"QA", "Acme_Labs_Inc", "k1"}},
		{"empty customer", SessionRecord{RouteName: "[Dev] &&", Environment: "Dev", SessionID: "k2"},
			Name{"Dev", "Unknown", "k2"}},
		{"underscores in single segments", SessionRecord{RouteName: "[s4_dev] X", SessionID: "row_12"},
			Name{"s4-dev", "X", "row-12"}},
		{"empty environment", SessionRecord{RouteName: "X", SessionID: "k3"},
			Name{"Unknown", "X", "k3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameOf(tt.rec)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			back, err := ParseName(got.MetadataFile())
			if err != nil || back != got {
				t.Errorf("round trip: got %+v %v", back, err)
			}
		})
	}
}

func TestWriter_WritesOnlyNonEmptyBodies(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	rec := SessionRecord{RouteName: "[Prod] J&J", Environment: "Prod", SessionID: "abc123",
		CatalogBody: "<?xml version=\"1.0\"?><cXML/>", ExtractedAt: extractedAt}
	paths, err := w.Write(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "session_Prod_JJ_abc123_input.cxml"),
		filepath.Join(dir, "session_Prod_JJ_abc123_metadata.json"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "session_Prod_JJ_abc123_output.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("payload file must not exist, stat err = %v", err)
	}

	raw, _ := os.ReadFile(want[1])
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	wantMeta := Metadata{RouteName: "[Prod] J&J", Environment: "Prod", SessionID: "abc123", ExtractedAt: "2026-03-04T10:30:00Z"}
	if meta != wantMeta {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestWriter_OverwritesSameSession(t *testing.T) {
	// WHAT: Re-extracting a session replaces its files instead of adding new ones.
	dir := t.TempDir()
	w := NewWriter(dir, "xml")
	rec := SessionRecord{RouteName: "[QA] Acme", SessionID: "s1", PayloadBody: `{"v":1}`, ExtractedAt: extractedAt}
	if _, err := w.Write(rec); err != nil {
		t.Fatal(err)
	}
	rec.PayloadBody = `{"v":2}`
	if _, err := w.Write(rec); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("files = %d, want 2 (output + metadata)", len(entries))
	}
	got, _ := os.ReadFile(filepath.Join(dir, "session_QA_Acme_s1_output.json"))
	if string(got) != `{"v":2}` {
		t.Errorf("payload = %s", got)
	}
}

func TestWriter_EmptySlotRemovesStaleBody(t *testing.T) {
	// WHAT: Rewriting a session with an empty payload removes the old output file.
	// WHY: the importer pairs metadata with whatever body file is present;
	// a leftover body would be imported under the new extraction time.
	dir := t.TempDir()
	w := NewWriter(dir, "")
	rec := SessionRecord{RouteName: "[Prod] JJ", SessionID: "s1", CatalogBody: "<cXML/>", PayloadBody: `{"old":1}`, ExtractedAt: extractedAt}
	if _, err := w.Write(rec); err != nil {
		t.Fatal(err)
	}
	rec.PayloadBody = ""
	rec.ExtractedAt = extractedAt.Add(time.Hour)
	if _, err := w.Write(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session_Prod_JJ_s1_output.json")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("stale output file: stat err = %v", err)
	}

	entries, err := Scan(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("scan = %v, %v", entries, err)
	}
	c, err := entries[0].Read("")
	if err != nil {
		t.Fatal(err)
	}
	if c.PayloadBody != "" || c.CatalogBody != "<cXML/>" {
		t.Errorf("contents = %+v", c)
	}

	// Same the other way round: dropping the catalog removes its file.
	rec.CatalogBody, rec.PayloadBody = "", `{"new":1}`
	if _, err := w.Write(rec); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session_Prod_JJ_s1_input.cxml")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("stale catalog file: stat err = %v", err)
	}
}

func TestWriteAggregate(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	recs := []SessionRecord{{RouteName: "[Prod] A", SessionID: "1", CatalogBody: "cXML", ExtractedAt: extractedAt}}
	p, err := w.WriteAggregate(recs, start)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != "tradecentric_data_20260102_030405.json" {
		t.Errorf("aggregate name = %s", filepath.Base(p))
	}
	raw, _ := os.ReadFile(p)
	var back []SessionRecord
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(recs, back); diff != "" {
		t.Errorf("aggregate (-want +got):\n%s", diff)
	}

	p, err = w.WriteAggregate(nil, start.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if raw, _ := os.ReadFile(p); string(raw) != "[]" {
		t.Errorf("empty aggregate = %s", raw)
	}
}

func TestScan_SortedWithMalformed(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	for _, id := range []string{"b2", "a1"} {
		if _, err := w.Write(SessionRecord{RouteName: "[Prod] JJ", SessionID: id, PayloadBody: "{}", ExtractedAt: extractedAt}); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "session_bad_metadata.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(dir, "tradecentric_data_20260101_000000.json"), []byte("[]"), 0o644)

	entries, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if ids := []string{entries[0].Name.SessionID, entries[1].Name.SessionID}; ids[0] != "a1" || ids[1] != "b2" {
		t.Errorf("order = %v", ids)
	}
	if !errors.Is(entries[2].Err, ErrMalformedName) {
		t.Errorf("malformed entry err = %v", entries[2].Err)
	}
	if _, err := entries[2].Read(""); !errors.Is(err, ErrMalformedName) {
		t.Errorf("Read on malformed = %v", err)
	}

	c, err := entries[0].Read("")
	if err != nil {
		t.Fatal(err)
	}
	if c.PayloadBody != "{}" || c.CatalogBody != "" || c.Metadata.SessionID != "a1" {
		t.Errorf("contents = %+v", c)
	}
}

func TestScan_MissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}
