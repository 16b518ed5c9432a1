package autoescape

import "github.com/ctxtpl/ctxtpl/data"

// HTML wraps a string for use where a template parameter of content kind
// html is expected. Escaping decisions are made from the surrounding
// template context, not from this marker, but callers (and tests) use it
// to document that the value is believed to already be well-formed markup.
func HTML(s string) data.Value {
	return data.String(s)
}
