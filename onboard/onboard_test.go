package onboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/punchsync/artifact"
	"github.com/hazyhaar/punchsync/dbopen"
	"github.com/hazyhaar/punchsync/onboard/internal/docstore"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *docstore.SQLStore {
	t.Helper()
	s, err := docstore.NewSQL(context.Background(), dbopen.OpenMemory(t), dbopen.DriverSQLite)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeArtifacts(t *testing.T, dir string, recs ...artifact.SessionRecord) {
	t.Helper()
	w := artifact.NewWriter(dir, "")
	for _, r := range recs {
		if _, err := w.Write(r); err != nil {
			t.Fatal(err)
		}
	}
}

// memRecorder collects events.
type memRecorder struct{ events []Event }

func (m *memRecorder) Record(ctx context.Context, ev Event) error {
	m.events = append(m.events, ev)
	return nil
}

func TestNormalizeEnvironment(t *testing.T) {
	tests := map[string]string{
		"Prod": "prod", "Production": "prod", "PreProd": "preprod", "Pre-Prod": "preprod",
		"Staging": "stage", "Stage": "stage", "Dev": "dev", "Development": "dev",
		"s4-dev": "s4-dev", "S4-Dev": "s4-dev", "QA": "qa", "Sandbox": "sandbox",
	}
	for in, want := range tests {
		if got := NormalizeEnvironment(in); got != want {
			t.Errorf("NormalizeEnvironment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildDocument(t *testing.T) {
	name := artifact.Name{Environment: "Prod", Customer: "Acme_Labs", SessionID: "abc123"}
	c := artifact.Contents{
		Metadata:    artifact.Metadata{RouteName: "[Prod] Acme Labs", Environment: "Production", SessionID: "abc123", ExtractedAt: "2026-05-01T10:00:00Z"},
		CatalogBody: "<cXML/>",
	}
	got := BuildDocument(name, c, now)
	want := Document{
		ID:             "tradecentric_prod_abc123",
		CustomerName:   "Acme Labs",
		CustomerType:   "CUSTOM",
		Network:        "acme_labs.tradecentric.com",
		Environment:    "prod",
		SampleCatalog:  "<cXML/>",
		FieldMappings:  map[string]string{},
		Notes:          "Imported from TradeCentric: [Prod] Acme Labs. Extracted at: 2026-05-01T10:00:00Z",
		ConverterClass: "AcmeLabsCUSTOMConverter",
		Status:         "DEPLOYED",
		Deployed:       true,
		DeployedAt:     "2026-05-01T10:00:00Z",
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      Source,
		UpdatedBy:      Source,
		Source:         Source,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document (-want +got):\n%s", diff)
	}

	c.Metadata.ExtractedAt = ""
	if got := BuildDocument(name, c, now); got.DeployedAt != "2026-06-01T12:00:00Z" {
		t.Errorf("deployedAt fallback = %q", got.DeployedAt)
	}
}

func TestLoad_Idempotent(t *testing.T) {
	// WHAT: A second load over the same directory imports nothing and skips everything.
	dir := t.TempDir()
	writeArtifacts(t, dir,
		artifact.SessionRecord{RouteName: "[Prod] J&J", SessionID: "abc123", CatalogBody: "<cXML/>", ExtractedAt: now},
		artifact.SessionRecord{RouteName: "[QA] Acme", SessionID: "q1", PayloadBody: `{"a":1}`, ExtractedAt: now},
		artifact.SessionRecord{RouteName: "[Production] Beta", SessionID: "p2", PayloadBody: `[]`, ExtractedAt: now},
	)
	store := newStore(t)
	l := NewLoader(store, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	first, err := l.Load(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := Result{Scanned: 3, Processed: 3, Imported: 3, ByEnvironment: map[string]int{"prod": 2, "qa": 1}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("first load (-want +got):\n%s", diff)
	}

	second, err := l.Load(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	want = Result{Scanned: 3, Processed: 3, Skipped: 3, ByEnvironment: map[string]int{}}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("second load (-want +got):\n%s", diff)
	}
}

func TestLoad_ExistingDocumentUnchanged(t *testing.T) {
	// WHAT: A pre-existing tradecentric_prod_abc123 is skipped and left untouched.
	dir := t.TempDir()
	writeArtifacts(t, dir, artifact.SessionRecord{RouteName: "[Prod] JJ", SessionID: "abc123", CatalogBody: "<cXML>new</cXML>", ExtractedAt: now})
	store := newStore(t)
	ctx := context.Background()
	existing := Document{ID: "tradecentric_prod_abc123", CustomerName: "Original", Environment: "prod",
		FieldMappings: map[string]string{"a": "b"}, Status: "DRAFT", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)}
	if err := store.Insert(ctx, existing); err != nil {
		t.Fatal(err)
	}

	res, err := NewLoader(store, Options{}).Load(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Imported != 0 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
	got, err := store.Get(ctx, existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(existing, got); diff != "" {
		t.Errorf("existing document changed (-want +got):\n%s", diff)
	}
}

// racingStore reports absence but then refuses the insert as a duplicate.
type racingStore struct{ docstore.Store }

func (racingStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (racingStore) Insert(ctx context.Context, d Document) error {
	return docstore.ErrDuplicate
}

func TestLoad_DuplicateOnInsertIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, artifact.SessionRecord{RouteName: "[Dev] X", SessionID: "d1", PayloadBody: "{}", ExtractedAt: now})
	rec := &memRecorder{}
	res, err := NewLoader(racingStore{}, Options{Recorder: rec}).Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(rec.events) != 1 || rec.events[0].Outcome != OutcomeSkipped || rec.events[0].Reason != "duplicate key" {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestLoad_MalformedNamesCounted(t *testing.T) {
	// WHAT: Malformed names and unreadable metadata are counted as errors, the batch continues.
	dir := t.TempDir()
	writeArtifacts(t, dir, artifact.SessionRecord{RouteName: "[Prod] JJ", SessionID: "ok1", CatalogBody: "<cXML/>", ExtractedAt: now})
	os.WriteFile(filepath.Join(dir, "session_Prod_x_metadata.json"), []byte(`{}`), 0o644)
	os.WriteFile(filepath.Join(dir, "session_Prod_JJ_bad_metadata.json"), []byte(`not json`), 0o644)

	rec := &memRecorder{}
	res, err := NewLoader(newStore(t), Options{Recorder: rec}).Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scanned != 3 || res.Imported != 1 || res.Errors != 2 {
		t.Errorf("result = %+v", res)
	}
	errorsSeen := 0
	for _, ev := range rec.events {
		if ev.Outcome == OutcomeError {
			errorsSeen++
		}
	}
	if errorsSeen != 2 {
		t.Errorf("error events = %d, want 2", errorsSeen)
	}
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := NewLoader(newStore(t), Options{}).Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, ErrNoArtifactDir) {
		t.Fatalf("err = %v, want ErrNoArtifactDir", err)
	}
}

func TestLoad_ResultMapIsCopied(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, artifact.SessionRecord{RouteName: "[Prod] JJ", SessionID: "m1", CatalogBody: "<cXML/>", ExtractedAt: now})
	l := NewLoader(newStore(t), Options{})
	res, _ := l.Load(context.Background(), dir)
	res.ByEnvironment["prod"] = 99
	again, _ := l.Load(context.Background(), dir)
	if again.ByEnvironment["prod"] != 0 {
		t.Errorf("second result shares state: %+v", again.ByEnvironment)
	}
}

func TestOpenStore_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(ctx, StoreConfig{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "db", "onboarding.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Insert(ctx, Document{ID: "k", FieldMappings: map[string]string{}, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, Document{ID: "k", CreatedAt: now}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := OpenStore(context.Background(), StoreConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error")
	}
}
