package browser

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// HTML element name constants for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
	htmlElementButton   = "button"
)

// Form is an HTML form and the values it would submit as-is.
type Form struct {
	// ID and Name are the form's id and name attributes.
	ID   string
	Name string

	// Action is the absolute URL the form posts to.
	Action string

	// Method is the upper-cased HTTP method, GET when unset.
	Method string

	// Fields are the successful controls in document order.
	// Submit buttons are never included; callers add the button they press.
	Fields []Field
}

// Field is one named form control.
type Field struct {
	Name  string
	Type  string
	Value string
}

// Values returns the form's current values merged with overrides.
// An override replaces every value of its field name.
func (f *Form) Values(overrides map[string]string) url.Values {
	values := make(url.Values, len(f.Fields)+len(overrides))
	for _, field := range f.Fields {
		if _, ok := overrides[field.Name]; ok {
			continue
		}
		values.Add(field.Name, field.Value)
	}
	for name, value := range overrides {
		values.Set(name, value)
	}
	return values
}

// Value returns the first value of the named field.
func (f *Form) Value(name string) (string, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// matches reports whether selector selects f.
// "#x" matches the id, anything else the name; "" matches every form.
func (f *Form) matches(selector string) bool {
	if selector == "" {
		return true
	}
	if id, ok := strings.CutPrefix(selector, "#"); ok {
		return f.ID == id
	}
	return f.Name == selector
}

// parseDocument extracts the title and forms of an HTML document.
// base resolves relative form actions.
func parseDocument(doc *html.Node, base *url.URL) (title string, forms []Form) {
	forms = make([]Form, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "form":
				form := Form{
					ID:     getAttr(n, "id"),
					Name:   getAttr(n, "name"),
					Action: resolveAction(base, getAttr(n, "action")),
					Method: strings.ToUpper(getAttr(n, "method")),
					Fields: make([]Field, 0),
				}
				if form.Method == "" {
					form.Method = "GET"
				}
				extractFormFields(n, &form)
				forms = append(forms, form)
				// Nested forms are invalid HTML; the parser never produces them.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, forms
}

// extractFormFields recursively collects the successful controls of a form.
func extractFormFields(n *html.Node, form *Form) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case htmlElementInput:
			if field, ok := inputField(n); ok {
				form.Fields = append(form.Fields, field)
			}
			return
		case htmlElementSelect:
			if name := getAttr(n, "name"); name != "" && !hasAttr(n, "disabled") {
				form.Fields = append(form.Fields, Field{Name: name, Type: htmlElementSelect, Value: selectedOption(n)})
			}
			return
		case htmlElementTextarea:
			if name := getAttr(n, "name"); name != "" && !hasAttr(n, "disabled") {
				form.Fields = append(form.Fields, Field{Name: name, Type: htmlElementTextarea, Value: textContent(n)})
			}
			return
		case htmlElementButton:
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractFormFields(c, form)
	}
}

func inputField(n *html.Node) (Field, bool) {
	name := getAttr(n, "name")
	if name == "" || hasAttr(n, "disabled") {
		return Field{}, false
	}
	typ := strings.ToLower(getAttr(n, "type"))
	if typ == "" {
		typ = "text"
	}

	switch typ {
	case "submit", "image", "reset", "button", "file":
		return Field{}, false
	case "checkbox", "radio":
		if !hasAttr(n, "checked") {
			return Field{}, false
		}
		value := getAttr(n, "value")
		if !hasAttr(n, "value") {
			value = "on"
		}
		return Field{Name: name, Type: typ, Value: value}, true
	}
	return Field{Name: name, Type: typ, Value: getAttr(n, "value")}, true
}

// selectedOption returns the value of the selected option, or of the first
// option when none is selected.
func selectedOption(sel *html.Node) string {
	var first, selected *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "option" {
			if first == nil {
				first = n
			}
			if selected == nil && hasAttr(n, "selected") {
				selected = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel)

	opt := selected
	if opt == nil {
		opt = first
	}
	if opt == nil {
		return ""
	}
	if hasAttr(opt, "value") {
		return getAttr(opt, "value")
	}
	return strings.TrimSpace(textContent(opt))
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// resolveAction resolves a form action against the page URL.
// An empty action submits to the page itself.
func resolveAction(base *url.URL, action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return base.String()
	}
	u, err := url.Parse(action)
	if err != nil {
		return base.String()
	}
	return base.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
