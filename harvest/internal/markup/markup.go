// CLAUDE:SUMMARY Parses vendor-console HTML fragments: transaction links, body containers, code blocks, login forms.
// Package markup reads the server-rendered fragments of the vendor console
// with golang.org/x/net/html. It is shared by both collection substrates:
// the API substrate feeds it HTTP responses, the rendered substrate feeds
// it the outer HTML of an opened dialog.
package markup

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses an HTML document or fragment.
func Parse(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("markup: parse: %w", err)
	}
	return doc, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

// walk visits n and its descendants in document order. Returning false
// from fn skips the node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// findAll returns every element for which match is true, in document order.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ancestor returns the closest ancestor element with the given atom.
func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return p
		}
	}
	return nil
}

// rawText concatenates every text node under n unchanged, then trims the
// ends. Bodies keep their inner whitespace.
func rawText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return strings.TrimSpace(sb.String())
}

// cellText is rawText with runs of whitespace collapsed, for table cells.
func cellText(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

// labelText returns the text of n excluding subtrees for which skip is true.
func labelText(n *html.Node, skip func(*html.Node) bool) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c != n && c.Type == html.ElementNode && skip(c) {
			return false
		}
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
		return true
	})
	return sb.String()
}
