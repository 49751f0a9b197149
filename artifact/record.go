// CLAUDE:SUMMARY Session records, deterministic artifact naming, atomic file writer and directory scan.
// Package artifact persists correlated session records as files and reads
// them back for import.
//
// Per session the writer produces up to three files sharing one prefix:
//
//	session_<env>_<customer>_<sessionId>_input.cxml     catalog body
//	session_<env>_<customer>_<sessionId>_output.json    payload body
//	session_<env>_<customer>_<sessionId>_metadata.json  record metadata
//
// The prefix depends only on the record, so re-extracting a session
// overwrites its own files. Each run also writes one aggregate file,
// tradecentric_data_<YYYYmmdd_HHMMSS>.json, holding every record.
package artifact

import "time"

// SessionRecord is the correlated output for one session. Immutable once
// assembled. At least one of CatalogBody and PayloadBody is non-empty.
type SessionRecord struct {
	RouteName   string    `json:"routeName"`
	Environment string    `json:"environment"`
	SessionID   string    `json:"sessionId"`
	SessionKey  string    `json:"sessionKey,omitempty"`
	ConsoleID   string    `json:"consoleId,omitempty"`
	CatalogBody string    `json:"catalogBody"`
	PayloadBody string    `json:"payloadBody"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// Metadata is the content of a *_metadata.json file.
type Metadata struct {
	RouteName   string `json:"routeName"`
	Environment string `json:"environment"`
	SessionID   string `json:"sessionId"`
	ExtractedAt string `json:"extractedAt"`
}

// MetadataOf returns the metadata written alongside r.
func MetadataOf(r SessionRecord) Metadata {
	return Metadata{
		RouteName:   r.RouteName,
		Environment: r.Environment,
		SessionID:   r.SessionID,
		ExtractedAt: r.ExtractedAt.UTC().Format(time.RFC3339),
	}
}
