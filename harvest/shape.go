package harvest

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hazyhaar/punchsync/console"
)

// Slot selects one side of a transaction.
type Slot int

const (
	SlotRequest Slot = iota
	SlotResponse
)

func (s Slot) of(b console.Bodies) string {
	if s == SlotResponse {
		return b.Response
	}
	return b.Request
}

// ShapeRule validates candidate bodies for one role, trying the slots in
// Order and keeping the first accepted text.
type ShapeRule struct {
	Role   Role
	Order  []Slot
	Accept func(body string) bool
}

// DefaultShapes: catalogs are read from the request first, payloads from
// the response first.
var DefaultShapes = []ShapeRule{
	{Role: RoleCatalog, Order: []Slot{SlotRequest, SlotResponse}, Accept: LooksLikeCatalog},
	{Role: RolePayload, Order: []Slot{SlotResponse, SlotRequest}, Accept: LooksLikePayload},
}

// Pick returns the first body of b that rule accepts.
func (rule ShapeRule) Pick(b console.Bodies) (string, bool) {
	for _, s := range rule.Order {
		body := s.of(b)
		if body != "" && rule.Accept(body) {
			return body, true
		}
	}
	return "", false
}

// LooksLikeCatalog accepts text carrying an XML declaration or a cXML marker.
func LooksLikeCatalog(body string) bool {
	return strings.Contains(body, "<?xml") || strings.Contains(body, "cXML")
}

// LooksLikePayload accepts valid JSON whose top level is an object or an
// array. Bare scalars are rejected.
func LooksLikePayload(body string) bool {
	if !gjson.Valid(body) {
		return false
	}
	v := gjson.Parse(body)
	return v.IsObject() || v.IsArray()
}

// payloadKeys returns up to n top-level keys of a JSON object payload.
func payloadKeys(body string, n int) []string {
	v := gjson.Parse(body)
	if !v.IsObject() {
		return nil
	}
	var keys []string
	v.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return len(keys) < n
	})
	return keys
}
