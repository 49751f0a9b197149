package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hazyhaar/punchsync/dbopen"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s, err := NewSQL(context.Background(), db, dbopen.DriverSQLite)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleDoc(id string) Document {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	return Document{
		ID: id, CustomerName: "J J", CustomerType: "CUSTOM", Network: "j_j.tradecentric.com",
		Environment: "prod", SampleCatalog: "<cXML/>", TargetPayload: "{}",
		FieldMappings: map[string]string{}, Status: "DEPLOYED", Deployed: true,
		DeployedAt: "2026-02-03T04:05:06Z", CreatedAt: at, UpdatedAt: at,
		CreatedBy: "tradecentric_import", UpdatedBy: "tradecentric_import", Source: "tradecentric_import",
	}
}

func TestSQLStore_InsertGetExists(t *testing.T) {
	s := newSQLStore(t)
	ctx := context.Background()
	doc := sampleDoc("tradecentric_prod_abc123")

	if ok, err := s.Exists(ctx, doc.ID); err != nil || ok {
		t.Fatalf("Exists before insert = %v, %v", ok, err)
	}
	if err := s.Insert(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Exists(ctx, doc.ID); err != nil || !ok {
		t.Fatalf("Exists after insert = %v, %v", ok, err)
	}
	got, err := s.Get(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("document (-want +got):\n%s", diff)
	}
}

func TestSQLStore_DuplicateNeverOverwrites(t *testing.T) {
	// WHAT: A second insert of the same key fails with ErrDuplicate.
	// WHY: The stored document must stay exactly as first written.
	s := newSQLStore(t)
	ctx := context.Background()
	first := sampleDoc("tradecentric_prod_abc123")
	if err := s.Insert(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.CustomerName = "Changed"
	if err := s.Insert(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	got, _ := s.Get(ctx, first.ID)
	if got.CustomerName != "J J" {
		t.Errorf("stored document was modified: %q", got.CustomerName)
	}
}

func TestSQLStore_GetMissing(t *testing.T) {
	s := newSQLStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &SQLStore{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"pg unique", fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"}), ErrDuplicate},
		{"pg other", &pgconn.PgError{Code: "23502"}, nil},
		{"mongo duplicate", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}, ErrDuplicate},
		{"mongo no documents", mongo.ErrNoDocuments, ErrNotFound},
		{"sqlite text", errors.New("UNIQUE constraint failed: customer_onboarding.id"), ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.want == nil {
				if tt.err != nil && (errors.Is(got, ErrDuplicate) || errors.Is(got, ErrNotFound)) {
					t.Errorf("MapError(%v) = %v, want unchanged", tt.err, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("MapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
