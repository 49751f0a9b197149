package markup

import (
	"regexp"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/punchsync/console"
)

// transactionRef matches the transaction identifier embedded in a link
// target such as Basic.BSModal.open("/waters/console/manage/http_request/open/id/7223851").
var transactionRef = regexp.MustCompile(`http_request/open/id/(\d+)`)

// TransactionID extracts the numeric transaction id from a link target.
func TransactionID(target string) (string, bool) {
	m := transactionRef.FindStringSubmatch(target)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Transactions scans a session detail page for transaction links and
// returns them in document order. The target URI is read from the third
// cell of the link's row, or the whole row text when the row is narrower.
// Links without a numeric id are dropped.
func Transactions(doc *html.Node) []console.Transaction {
	var out []console.Transaction
	links := findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.A })
	for _, a := range links {
		id, ok := linkID(a)
		if !ok {
			continue
		}
		row := ancestor(a, atom.Tr)
		if row == nil {
			continue
		}
		uri := rowCell(row, 2)
		if uri == "" {
			uri = cellText(row)
		}
		out = append(out, console.Transaction{ID: id, TargetURI: uri})
	}
	return out
}

// linkID looks for the transaction reference in href, then onclick.
func linkID(a *html.Node) (string, bool) {
	for _, key := range []string{"href", "onclick"} {
		if v, ok := getAttr(a, key); ok {
			if id, ok := TransactionID(v); ok {
				return id, true
			}
		}
	}
	return "", false
}

// rowCell returns the collapsed text of the i-th <td> of row, or "".
func rowCell(row *html.Node, i int) string {
	idx := 0
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Td {
			continue
		}
		if idx == i {
			return cellText(c)
		}
		idx++
	}
	return ""
}
