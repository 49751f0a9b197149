package harvest

import (
	"time"

	"github.com/hazyhaar/punchsync/artifact"
	"github.com/hazyhaar/punchsync/console"
)

// Assemble merges a session with its accepted bodies. ok is false when
// both bodies are empty: such a session is dropped, never persisted.
// The bracket tag of the display label wins over the listed environment.
func Assemble(s console.SessionSummary, catalog, payload string, now time.Time) (artifact.SessionRecord, bool) {
	if catalog == "" && payload == "" {
		return artifact.SessionRecord{}, false
	}
	sessionID := s.SessionKey
	if sessionID == "" {
		sessionID = s.ID
	}
	return artifact.SessionRecord{
		RouteName:   s.DisplayRouteLabel,
		Environment: console.EnvironmentOf(s.DisplayRouteLabel, s.Environment),
		SessionID:   sessionID,
		SessionKey:  s.SessionKey,
		ConsoleID:   s.ID,
		CatalogBody: catalog,
		PayloadBody: payload,
		ExtractedAt: now.UTC(),
	}, true
}
