// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"strings"

	"github.com/ctxtpl/ctxtpl/data"
)

// valueToText extracts the plain text a dynamic value renders as, without
// the quoting data.String.String applies for debug display.
func valueToText(v data.Value) string {
	if s, ok := v.(data.String); ok {
		return string(s)
	}
	if _, ok := v.(data.Undefined); ok {
		return ""
	}
	return v.String()
}

// htmlTextTable escapes characters with special meaning in PCDATA/RCDATA.
var htmlTextTable = map[byte]string{
	'\000': "�",
	'"':    "&#34;",
	'&':    "&amp;",
	'\'':   "&#39;",
	'<':    "&lt;",
	'>':    "&gt;",
}

// htmlAttrTable escapes characters with special meaning in a quoted
// attribute value. Both quote characters map to the same entity, &#34;, in
// double- and single-quoted attribute values alike.
var htmlAttrTable = map[byte]string{
	'\000': "�",
	'"':    "&#34;",
	'&':    "&amp;",
	'\'':   "&#34;",
	'<':    "&lt;",
	'>':    "&gt;",
}

func replaceByTable(s string, table map[byte]string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if esc, ok := table[s[i]]; ok {
			b.WriteString(esc)
		} else {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func htmlEscaper(v data.Value, args []data.Value) data.Value {
	return data.String(replaceByTable(valueToText(v), htmlTextTable))
}

func rcdataEscaper(v data.Value, args []data.Value) data.Value {
	return data.String(replaceByTable(valueToText(v), htmlTextTable))
}

func attrEscaper(v data.Value, args []data.Value) data.Value {
	return data.String(replaceByTable(valueToText(v), htmlAttrTable))
}

// htmlNospaceEscaper escapes a value bound for an unquoted attribute value,
// where whitespace, '=', and backtick additionally need escaping since they
// would otherwise end the value or be misread by some browsers.
func htmlNospaceEscaper(v data.Value, args []data.Value) data.Value {
	s := replaceByTable(valueToText(v), htmlAttrTable)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\t':
			b.WriteString("&#9;")
		case '\n':
			b.WriteString("&#10;")
		case '\v':
			b.WriteString("&#11;")
		case '\f':
			b.WriteString("&#12;")
		case '\r':
			b.WriteString("&#13;")
		case ' ':
			b.WriteString("&#32;")
		case '=':
			b.WriteString("&#61;")
		case '`':
			b.WriteString("&#96;")
		default:
			b.WriteByte(c)
		}
	}
	return data.String(b.String())
}

// htmlNameFilter restricts a dynamic element or attribute name to a safe
// identifier pattern, replacing anything else with the failsafe.
func htmlNameFilter(v data.Value, args []data.Value) data.Value {
	s := valueToText(v)
	if s == "" {
		return data.String(filterFailsafe)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		case c == '-' || c == ':' || c == '_':
		default:
			return data.String(filterFailsafe)
		}
	}
	return data.String(s)
}
