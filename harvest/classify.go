package harvest

import (
	"strings"
)

// Role is the set of artifact roles a transaction may carry.
// The zero value means the transaction is irrelevant.
type Role uint8

const (
	RoleCatalog Role = 1 << iota // request-side cXML
	RolePayload                  // integration JSON
)

// Has reports whether r includes every role of o.
func (r Role) Has(o Role) bool { return o != 0 && r&o == o }

func (r Role) String() string {
	switch r {
	case 0:
		return "none"
	case RoleCatalog:
		return "catalog"
	case RolePayload:
		return "payload"
	case RoleCatalog | RolePayload:
		return "catalog+payload"
	}
	return "unknown"
}

// Rule assigns Role to any target URI containing Contains.
type Rule struct {
	Role     Role
	Contains string
}

// DefaultRules is the classifier table for the Waters punch-out routes.
var DefaultRules = []Rule{
	{RoleCatalog, "gateway/punchout/request"},
	{RoleCatalog, "punchout/supplier"},
	{RoleCatalog, "punchout/start"},
	{RoleCatalog, "gateway/punchout/request/catalog"},
	{RolePayload, "ext-waters-punchout"},
	{RolePayload, "api.waters.com"},
	{RolePayload, "punchout/setup"},
	{RolePayload, "ext-waters-punchout-exp-api"},
	{RolePayload, "api.waters.com:443/p2/ext-waters"},
}

// Classifier maps a target URI to its role set. Pure; safe for reuse.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a Classifier over rules (DefaultRules when nil).
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Classify returns the union of roles whose rules match uri. A URI may
// match both roles; the shape check later decides which body fits.
func (c *Classifier) Classify(uri string) Role {
	var r Role
	for _, rule := range c.rules {
		if rule.Contains != "" && strings.Contains(uri, rule.Contains) {
			r |= rule.Role
		}
	}
	return r
}

// RulesFromConfig builds a rule table from configuration. A role left
// empty in cfg keeps its default rules.
func RulesFromConfig(cfg RulesConfig) []Rule {
	var out []Rule
	add := func(role Role, custom []string) {
		if len(custom) == 0 {
			for _, r := range DefaultRules {
				if r.Role == role {
					out = append(out, r)
				}
			}
			return
		}
		for _, s := range custom {
			out = append(out, Rule{Role: role, Contains: s})
		}
	}
	add(RoleCatalog, cfg.Catalog)
	add(RolePayload, cfg.Payload)
	return out
}
