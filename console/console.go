// CLAUDE:SUMMARY Shared vendor-console types and the Source/Authenticator capabilities implemented by both collection substrates.
// Package console holds the types exchanged between the extraction
// pipeline and the two collection substrates (paginated HTTP API and
// rendered web console). It has no dependencies on either substrate.
package console

import (
	"context"
	"errors"
)

// SessionSummary is one session discovered by a Source. Immutable.
type SessionSummary struct {
	// Position is the ordinal in the listing, used by the rendered
	// substrate to find the row again after navigation.
	Position          int
	SessionKey        string
	DisplayRouteLabel string // e.g. "[Prod] Customer"
	Environment       string
	// ID is the opaque console identifier used to open the session detail.
	ID string
}

// Transaction is one recorded network exchange belonging to a session.
type Transaction struct {
	ID        string
	TargetURI string
}

// Bodies holds the raw request and response text of one transaction.
// An empty string means the body could not be recovered.
type Bodies struct {
	Request  string
	Response string
}

// Empty reports whether neither body was recovered.
func (b Bodies) Empty() bool {
	return b.Request == "" && b.Response == ""
}

// Credentials is the username/password pair handed to an Authenticator.
type Credentials struct {
	Username string
	Password string
}

// ErrNotAuthenticated is returned by an Authenticator when the console
// refused the credentials.
var ErrNotAuthenticated = errors.New("console: not authenticated")

// Authenticator establishes an authenticated console session.
// Failure is binary: nil means authenticated.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) error
}

// Source is the collection capability shared by both substrates.
// Calls are made sequentially by a single pipeline run.
type Source interface {
	// ListSessions returns at most limit sessions in console order.
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	// Resolve returns the session's transactions in console order.
	Resolve(ctx context.Context, s SessionSummary) ([]Transaction, error)
	// Extract returns the request/response bodies of one transaction.
	Extract(ctx context.Context, s SessionSummary, tx Transaction) (Bodies, error)
	// Recover brings the source back to a known-good state after a
	// session failed. An error here is fatal to the run.
	Recover(ctx context.Context) error
	// Close releases every resource held by the source.
	Close() error
}
