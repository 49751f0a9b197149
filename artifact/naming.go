package artifact

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/hazyhaar/punchsync/console"
)

// ErrMalformedName is returned by ParseName for a file name with fewer
// than four underscore-delimited segments.
var ErrMalformedName = errors.New("artifact: malformed name")

const (
	namePrefix     = "session"
	metadataSuffix = "_metadata.json"
	outputSuffix   = "_output.json"
	inputInfix     = "_input."
	unknown        = "Unknown"
)

// Name is the decoded identity of a session's artifact files.
type Name struct {
	Environment string // as written, before normalization
	Customer    string // sanitized customer/route name, "_" for spaces
	SessionID   string
}

// Prefix returns "session_<env>_<customer>_<sessionId>".
func (n Name) Prefix() string {
	return strings.Join([]string{namePrefix, n.Environment, n.Customer, n.SessionID}, "_")
}

// MetadataFile returns the metadata file name.
func (n Name) MetadataFile() string { return n.Prefix() + metadataSuffix }

// OutputFile returns the payload body file name.
func (n Name) OutputFile() string { return n.Prefix() + outputSuffix }

// InputFile returns the catalog body file name with the given extension.
func (n Name) InputFile(ext string) string { return n.Prefix() + inputInfix + ext }

// NameOf derives the file naming of r. The environment is the bracket tag
// of the route label when present, else the record environment; the
// customer is the rest of the label.
func NameOf(r SessionRecord) Name {
	env, customer, ok := console.ParseRouteLabel(r.RouteName)
	if !ok || env == "" {
		env = r.Environment
	}
	return Name{
		Environment: segment(env),
		Customer:    orUnknown(SanitizeCustomer(customer)),
		SessionID:   segment(r.SessionID),
	}
}

// ParseName decodes a metadata file name such as
// "session_Prod_JJ_abc123_metadata.json". Everything between the
// environment and the last segment is the customer.
func ParseName(filename string) (Name, error) {
	base := strings.TrimSuffix(filename, metadataSuffix)
	parts := strings.Split(base, "_")
	if len(parts) < 4 || parts[0] != namePrefix {
		return Name{}, fmt.Errorf("%w: %q", ErrMalformedName, filename)
	}
	return Name{
		Environment: parts[1],
		Customer:    strings.Join(parts[2:len(parts)-1], "_"),
		SessionID:   parts[len(parts)-1],
	}, nil
}

// SanitizeCustomer keeps letters, digits, underscores, whitespace and
// hyphens, trims the ends, then turns each remaining whitespace rune
// into an underscore.
func SanitizeCustomer(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(sb.String()))
}

// segment sanitizes a single-segment value: underscores would split it on
// decode, so they become hyphens.
func segment(s string) string {
	return orUnknown(strings.ReplaceAll(SanitizeCustomer(s), "_", "-"))
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
