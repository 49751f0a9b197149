// CLAUDE:SUMMARY Import loader: scans persisted session artifacts, derives onboarding documents, inserts them idempotently by identity key.
// Package onboard loads persisted session artifacts into the onboarding
// document store.
//
// Each *_metadata.json file becomes one Document whose id is
// "tradecentric_<normalizedEnv>_<sessionId>". That id is the only
// idempotency boundary: a stored id is never overwritten, so running the
// loader twice over the same directory imports nothing the second time.
package onboard

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/hazyhaar/punchsync/artifact"
	"github.com/hazyhaar/punchsync/onboard/internal/docstore"
)

// Document is an onboarding entry. Re-exported from internal.
type Document = docstore.Document

// Store is the keyed document store. Re-exported from internal.
type Store = docstore.Store

// ErrNoArtifactDir is returned by Load when the artifact directory is missing.
var ErrNoArtifactDir = errors.New("onboard: artifact directory not found")

// Source marks every document created by the loader.
const Source = "tradecentric_import"

// environments maps console environment labels to store environments.
var environments = map[string]string{
	"Prod":        "prod",
	"Production":  "prod",
	"PreProd":     "preprod",
	"Pre-Prod":    "preprod",
	"Staging":     "stage",
	"Stage":       "stage",
	"Dev":         "dev",
	"Development": "dev",
	"s4-dev":      "s4-dev",
	"S4-Dev":      "s4-dev",
}

// NormalizeEnvironment maps a console label through the fixed table;
// unknown labels pass through lower-cased.
func NormalizeEnvironment(label string) string {
	if env, ok := environments[label]; ok {
		return env
	}
	return strings.ToLower(label)
}

// DocumentID returns the identity key of a session.
func DocumentID(normalizedEnv, sessionID string) string {
	return "tradecentric_" + normalizedEnv + "_" + sessionID
}

// BuildDocument derives the document for one artifact set. The customer
// segment of the file name supplies the display name ("_" read as space),
// the network host and the converter class.
func BuildDocument(name artifact.Name, c artifact.Contents, now time.Time) Document {
	env := NormalizeEnvironment(name.Environment)
	display := strings.ReplaceAll(name.Customer, "_", " ")
	deployedAt := c.Metadata.ExtractedAt
	if deployedAt == "" {
		deployedAt = now.UTC().Format(time.RFC3339)
	}
	return Document{
		ID:             DocumentID(env, name.SessionID),
		CustomerName:   display,
		CustomerType:   "CUSTOM",
		Network:        strings.ToLower(name.Customer) + ".tradecentric.com",
		Environment:    env,
		SampleCatalog:  c.CatalogBody,
		TargetPayload:  c.PayloadBody,
		FieldMappings:  map[string]string{},
		Notes:          "Imported from TradeCentric: " + c.Metadata.RouteName + ". Extracted at: " + c.Metadata.ExtractedAt,
		ConverterClass: strings.Map(dropSpace, display) + "CUSTOMConverter",
		Status:         "DEPLOYED",
		Deployed:       true,
		DeployedAt:     deployedAt,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
		CreatedBy:      Source,
		UpdatedBy:      Source,
		Source:         Source,
	}
}

func dropSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return -1
	}
	return r
}
