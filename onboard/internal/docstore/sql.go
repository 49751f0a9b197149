package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/punchsync/dbopen"
)

// Schema is the customer_onboarding table shared by SQLite and PostgreSQL.
// The full document is kept as JSON; the other columns are for querying.
const Schema = `
CREATE TABLE IF NOT EXISTS customer_onboarding (
	id            TEXT PRIMARY KEY,
	environment   TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	status        TEXT NOT NULL,
	source        TEXT NOT NULL,
	document      TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_onboarding_env ON customer_onboarding(environment);
`

// SQLStore keeps documents in a customer_onboarding table.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQL wraps db, whose driver is one of dbopen's, and creates the
// table when missing.
func NewSQL(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{db: db, postgres: !dbopen.IsSQLite(driver)}
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("docstore: schema: %w", err)
		}
	}
	return s, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Exists reports whether id is stored.
func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM customer_onboarding WHERE id = ?`), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("docstore: exists %s: %w", id, err)
	}
	return true, nil
}

// Insert stores doc. An existing id yields ErrDuplicate.
func (s *SQLStore) Insert(ctx context.Context, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: marshal %s: %w", doc.ID, err)
	}
	q := s.rebind(`INSERT INTO customer_onboarding (id, environment, customer_name, status, source, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	args := []any{doc.ID, doc.Environment, doc.CustomerName, doc.Status, doc.Source, string(raw), doc.CreatedAt.UTC().Format(time.RFC3339)}
	if s.postgres {
		_, err = s.db.ExecContext(ctx, q, args...)
	} else {
		_, err = dbopen.Exec(ctx, s.db, q, args...)
	}
	if err != nil {
		if mapped := MapError(err); mapped == ErrDuplicate {
			return fmt.Errorf("%w: %s", ErrDuplicate, doc.ID)
		}
		return fmt.Errorf("docstore: insert %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the stored document.
func (s *SQLStore) Get(ctx context.Context, id string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT document FROM customer_onboarding WHERE id = ?`), id).Scan(&raw)
	if err != nil {
		if MapError(err) == ErrNotFound {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Document{}, fmt.Errorf("docstore: get %s: %w", id, err)
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Document{}, fmt.Errorf("docstore: decode %s: %w", id, err)
	}
	return doc, nil
}

// Close closes the underlying handle.
func (s *SQLStore) Close() error { return s.db.Close() }

var _ Store = (*SQLStore)(nil)
