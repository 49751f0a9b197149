package markup

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoLoginForm is returned when a page carries no password form.
var ErrNoLoginForm = errors.New("markup: no login form")

// LoginForm is the console's sign-in form as served.
type LoginForm struct {
	Action        string     // raw action attribute, may be relative or empty
	Method        string     // upper-cased, defaults to POST
	UsernameField string     // name of the text/email input
	PasswordField string     // name of the password input
	Fields        url.Values // hidden inputs and the submit control
}

// Values returns the form fields with credentials filled in.
func (f LoginForm) Values(username, password string) url.Values {
	v := url.Values{}
	for k, vals := range f.Fields {
		v[k] = append([]string(nil), vals...)
	}
	v.Set(f.UsernameField, username)
	v.Set(f.PasswordField, password)
	return v
}

// FindLoginForm returns the first form holding a password input.
func FindLoginForm(doc *html.Node) (LoginForm, error) {
	for _, form := range findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.Form }) {
		lf, ok := readLoginForm(form)
		if ok {
			return lf, nil
		}
	}
	return LoginForm{}, ErrNoLoginForm
}

func readLoginForm(form *html.Node) (LoginForm, bool) {
	lf := LoginForm{Method: "POST", Fields: url.Values{}}
	lf.Action, _ = getAttr(form, "action")
	if m, ok := getAttr(form, "method"); ok && m != "" {
		lf.Method = strings.ToUpper(m)
	}
	submitSeen := false
	for _, in := range findAll(form, func(n *html.Node) bool {
		return n.DataAtom == atom.Input || n.DataAtom == atom.Button
	}) {
		name, _ := getAttr(in, "name")
		value, _ := getAttr(in, "value")
		typ, _ := getAttr(in, "type")
		typ = strings.ToLower(typ)
		if in.DataAtom == atom.Button && typ == "" {
			typ = "submit"
		}
		switch typ {
		case "password":
			if lf.PasswordField == "" {
				lf.PasswordField = name
			}
		case "", "text", "email":
			if lf.UsernameField == "" && in.DataAtom == atom.Input {
				lf.UsernameField = name
			}
		case "hidden":
			if name != "" {
				lf.Fields.Add(name, value)
			}
		case "submit":
			if name != "" && !submitSeen {
				lf.Fields.Add(name, value)
				submitSeen = true
			}
		}
	}
	if lf.PasswordField == "" || lf.UsernameField == "" {
		return LoginForm{}, false
	}
	return lf, true
}

// CSRFToken returns the anti-forgery token published by a page, from a
// csrf_token input or a csrf-token meta tag.
func CSRFToken(doc *html.Node) string {
	var token string
	walk(doc, func(n *html.Node) bool {
		if token != "" {
			return false
		}
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Input:
			if name, _ := getAttr(n, "name"); name == "csrf_token" {
				token, _ = getAttr(n, "value")
			}
		case atom.Meta:
			if name, _ := getAttr(n, "name"); name == "csrf-token" {
				token, _ = getAttr(n, "content")
			}
		}
		return true
	})
	return token
}
