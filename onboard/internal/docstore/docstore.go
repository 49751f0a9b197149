// CLAUDE:SUMMARY Keyed onboarding-document store: Document shape, Store interface, duplicate/not-found error mapping for SQLite, PostgreSQL and MongoDB.
// Package docstore persists onboarding documents keyed by id. A key is
// written at most once: inserting an existing key fails with ErrDuplicate
// and never modifies the stored document.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicate is returned by Insert when the key already exists.
	ErrDuplicate = errors.New("docstore: duplicate key")
	// ErrNotFound is returned by Get for an unknown key.
	ErrNotFound = errors.New("docstore: not found")
)

// Document is one customer onboarding entry, in the shape the onboarding
// UI reads from its customer_onboarding collection.
type Document struct {
	ID             string            `bson:"_id" json:"id"`
	CustomerName   string            `bson:"customerName" json:"customerName"`
	CustomerType   string            `bson:"customerType" json:"customerType"`
	Network        string            `bson:"network" json:"network"`
	Environment    string            `bson:"environment" json:"environment"`
	SampleCatalog  string            `bson:"sampleCatalog" json:"sampleCatalog"`
	TargetPayload  string            `bson:"targetPayload" json:"targetPayload"`
	FieldMappings  map[string]string `bson:"fieldMappings" json:"fieldMappings"`
	Notes          string            `bson:"notes" json:"notes"`
	ConverterClass string            `bson:"converterClass" json:"converterClass"`
	Status         string            `bson:"status" json:"status"`
	Deployed       bool              `bson:"deployed" json:"deployed"`
	DeployedAt     string            `bson:"deployedAt" json:"deployedAt"`
	CreatedAt      time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time         `bson:"updatedAt" json:"updatedAt"`
	CreatedBy      string            `bson:"createdBy" json:"createdBy"`
	UpdatedBy      string            `bson:"updatedBy" json:"updatedBy"`
	Source         string            `bson:"source" json:"source"`
}

// Store is a keyed document store.
type Store interface {
	// Exists reports whether a document with id is stored.
	Exists(ctx context.Context, id string) (bool, error)
	// Insert stores doc under doc.ID, or fails with ErrDuplicate.
	Insert(ctx context.Context, doc Document) error
	// Get returns the document stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	Close() error
}

const pgDuplicateKeyCode = "23505"

// MapError translates driver errors to ErrNotFound and ErrDuplicate.
// Other errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateKeyCode {
		return ErrDuplicate
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrDuplicate
		}
	}

	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}
