// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ctxtpl/ctxtpl/data"
)

// jsStrEscaper escapes a value substituted inside a JS string literal.
// '/' and the angle brackets are escaped defensively so that a value
// cannot close the enclosing <script> element even from within a quoted
// string.
func jsStrEscaper(v data.Value, args []data.Value) data.Value {
	s := valueToText(v)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\x27`)
		case '"':
			b.WriteString(`\x22`)
		case '/':
			b.WriteString(`\/`)
		case '<':
			b.WriteString(`\x3c`)
		case '>':
			b.WriteString(`\x3e`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return data.String(b.String())
}

const jsRegexpSpecial = "\\.*+?()[]{}^$|/"

// jsRegexpEscaper escapes a value substituted inside a JS regular
// expression literal so that it matches as literal text.
func jsRegexpEscaper(v data.Value, args []data.Value) data.Value {
	s := valueToText(v)
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if strings.ContainsRune(jsRegexpSpecial, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return data.String(b.String())
}

// jsValEscaper renders a value (of any kind) as a JS expression, suitable
// for substitution outside of a quoted string or regex literal, e.g.
// alert({$x}). Strings are JSON-quoted; numbers and booleans are padded
// with a leading and trailing space so that a negative number cannot glue
// onto an adjacent '-' and form a decrement operator.
func jsValEscaper(v data.Value, args []data.Value) data.Value {
	return data.String(jsValEncode(v, true))
}

func jsValEncode(v data.Value, topLevel bool) string {
	switch v := v.(type) {
	case data.String:
		return jsonQuote(string(v))
	case data.Int:
		if topLevel {
			return " " + v.String() + " "
		}
		return v.String()
	case data.Float:
		if topLevel {
			return " " + v.String() + " "
		}
		return v.String()
	case data.Bool:
		if topLevel {
			return " " + v.String() + " "
		}
		return v.String()
	case data.List:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = jsValEncode(item, false)
		}
		return "[" + strings.Join(items, ",") + "]"
	case data.Map:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = jsonQuote(k) + ":" + jsValEncode(v[k], false)
		}
		return "{" + strings.Join(items, ",") + "}"
	default:
		return "null"
	}
}

func jsonQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '<':
			b.WriteString(`\u003c`)
		case '>':
			b.WriteString(`\u003e`)
		case '&':
			b.WriteString(`\u0026`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				b.WriteString(`\u` + pad4(strconv.FormatInt(int64(r), 16)))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func pad4(s string) string {
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
