// CLAUDE:SUMMARY Ordered body-extraction strategies (data-body containers, positional code blocks) filled per slot.
package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/punchsync/console"
)

// DataBodyAttr marks the element whose attribute value holds a raw body.
const DataBodyAttr = "data-data_body"

// Strategy extracts candidate bodies from a parsed page. A strategy may
// fill zero, one or both slots.
type Strategy struct {
	Name  string
	Apply func(doc *html.Node) console.Bodies
}

// Provenance names the strategy that filled each slot ("" = none).
type Provenance struct {
	Request  string
	Response string
}

// DefaultStrategies is the fixed fallback order: body containers first,
// positional code blocks second.
var DefaultStrategies = []Strategy{
	{Name: "data_body", Apply: DataBodies},
	{Name: "code_blocks", Apply: CodeBlocks},
}

// ExtractBodies runs strategies in order. The first strategy to produce a
// slot wins it; later strategies only fill slots still empty.
func ExtractBodies(doc *html.Node, strategies []Strategy) (console.Bodies, Provenance) {
	var out console.Bodies
	var prov Provenance
	for _, s := range strategies {
		if out.Request != "" && out.Response != "" {
			break
		}
		got := s.Apply(doc)
		if out.Request == "" && got.Request != "" {
			out.Request = got.Request
			prov.Request = s.Name
		}
		if out.Response == "" && got.Response != "" {
			out.Response = got.Response
			prov.Response = s.Name
		}
	}
	return out, prov
}

// DataBodies reads every element carrying DataBodyAttr. The nearest
// enclosing <li> decides the slot: its label mentioning "request" fills
// the request slot, "response" the response slot. A container outside
// any <li> fills the request slot if still empty.
func DataBodies(doc *html.Node) console.Bodies {
	var out console.Bodies
	nodes := findAll(doc, func(n *html.Node) bool {
		_, ok := getAttr(n, DataBodyAttr)
		return ok
	})
	for _, n := range nodes {
		data, _ := getAttr(n, DataBodyAttr)
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		section := ancestor(n, atom.Li)
		if section == nil {
			if out.Request == "" {
				out.Request = data
			}
			continue
		}
		label := strings.ToLower(labelText(section, isBodyContent))
		switch {
		case strings.Contains(label, "request") && out.Request == "":
			out.Request = data
		case strings.Contains(label, "response") && out.Response == "":
			out.Response = data
		}
	}
	return out
}

// CodeBlocks assumes the first <code> block holds the request and the
// second the response.
func CodeBlocks(doc *html.Node) console.Bodies {
	var out console.Bodies
	codes := findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.Code })
	if len(codes) > 0 {
		out.Request = rawText(codes[0])
	}
	if len(codes) > 1 {
		out.Response = rawText(codes[1])
	}
	return out
}

// isBodyContent excludes the body payload itself from a section label so
// that words inside the document do not decide its slot.
func isBodyContent(n *html.Node) bool {
	if _, ok := getAttr(n, DataBodyAttr); ok {
		return true
	}
	return n.DataAtom == atom.Pre || n.DataAtom == atom.Code
}
