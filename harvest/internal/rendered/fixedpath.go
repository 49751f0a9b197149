package rendered

import (
	"github.com/go-rod/rod"

	"github.com/hazyhaar/punchsync/console"
)

// minBodyLen is the length a candidate must exceed to count as a body.
const minBodyLen = 10

// locator is one candidate position of a body inside the open modal.
type locator struct {
	xpath    bool
	selector string
}

// Candidate positions per slot, most specific first. The absolute paths
// match the console's modal layout where the request body is the tenth
// field and the response body the eleventh. Every other locator is
// relative to the modal element.
var (
	requestLocators = []locator{
		{true, "/html/body/div[5]/div/div/div[2]/div/div/div[1]/form/ul/li[10]/div/div[4]/div/div/pre/code"},
		{true, ".//li[10]//pre//code"},
		{true, ".//*[self::div or self::label][contains(text(), 'Request')]/following::pre[1]//code"},
		{false, "pre code"},
	}
	responseLocators = []locator{
		{true, "/html/body/div[5]/div/div/div[2]/div/div/div[1]/form/ul/li[11]/div/div[4]/div/div/pre/code"},
		{true, ".//li[11]//pre//code"},
		{true, ".//*[self::div or self::label][contains(text(), 'Response')]/following::pre[1]//code"},
	}
)

// scope is where locators are evaluated; *rod.Element keeps them inside
// the modal.
type scope interface {
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

// modalBodies reads the bodies from the open modal by position.
func modalBodies(p scope) console.Bodies {
	return console.Bodies{
		Request:  firstText(p, requestLocators),
		Response: firstText(p, responseLocators),
	}
}

// firstText returns the text of the first locator yielding more than
// minBodyLen characters.
func firstText(p scope, locs []locator) string {
	for _, l := range locs {
		var (
			els rod.Elements
			err error
		)
		if l.xpath {
			els, err = p.ElementsX(l.selector)
		} else {
			els, err = p.Elements(l.selector)
		}
		if err != nil || len(els) == 0 {
			continue
		}
		if t := text(els[0]); len(t) > minBodyLen {
			return t
		}
	}
	return ""
}
