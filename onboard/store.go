package onboard

import (
	"context"
	"fmt"

	"github.com/hazyhaar/punchsync/dbopen"
	"github.com/hazyhaar/punchsync/onboard/internal/docstore"
)

// Store drivers accepted by OpenStore.
const (
	DriverSQLite   = dbopen.DriverSQLite
	DriverPostgres = dbopen.DriverPostgres
	DriverMongo    = "mongo"
)

// ErrDuplicate is returned by Store.Insert for an existing key.
var ErrDuplicate = docstore.ErrDuplicate

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	Driver     string // sqlite | pgx | mongo
	DSN        string // file path, postgres URL or mongodb URI
	Database   string // mongo only
	Collection string // mongo only, default customer_onboarding
}

// OpenStore opens the configured store.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		db, err := dbopen.Open(cfg.DSN, dbopen.WithMkdirAll())
		if err != nil {
			return nil, fmt.Errorf("onboard: open store: %w", err)
		}
		if cfg.DSN == ":memory:" {
			db.SetMaxOpenConns(1)
		}
		s, err := docstore.NewSQL(ctx, db, DriverSQLite)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		db, err := dbopen.Open(cfg.DSN, dbopen.WithDriver(DriverPostgres))
		if err != nil {
			return nil, fmt.Errorf("onboard: open store: %w", err)
		}
		s, err := docstore.NewSQL(ctx, db, DriverPostgres)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case DriverMongo:
		if cfg.Database == "" {
			return nil, fmt.Errorf("onboard: mongo store needs a database name")
		}
		return docstore.NewMongo(ctx, cfg.DSN, cfg.Database, cfg.Collection)
	}
	return nil, fmt.Errorf("onboard: unknown store driver %q", cfg.Driver)
}
