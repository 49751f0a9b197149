package console

import "strings"

// ParseRouteLabel splits a display label such as "[Prod] J&J" into its
// bracketed environment tag and the remaining customer/route name.
// ok is false when the label carries no bracketed tag; name is then the
// trimmed label.
func ParseRouteLabel(label string) (env, name string, ok bool) {
	open := strings.IndexByte(label, '[')
	if open < 0 {
		return "", strings.TrimSpace(label), false
	}
	end := strings.IndexByte(label[open:], ']')
	if end < 0 {
		return "", strings.TrimSpace(label), false
	}
	end += open
	env = strings.TrimSpace(label[open+1 : end])
	name = strings.TrimSpace(label[end+1:])
	return env, name, true
}

// EnvironmentOf returns the bracketed tag of label, or fallback when the
// label has none (or an empty one).
func EnvironmentOf(label, fallback string) string {
	if env, _, ok := ParseRouteLabel(label); ok && env != "" {
		return env
	}
	return fallback
}
