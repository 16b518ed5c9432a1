// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ctxtpl/ctxtpl/data"
)

// cssEscaper escapes a value substituted inside a quoted CSS string,
// hex-escaping characters that could let the value break out of the
// string or be misread as a tag close by a browser's HTML detector.
func cssEscaper(v data.Value, args []data.Value) data.Value {
	s := valueToText(v)
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isCSSStringSafe(c) {
			b.WriteByte(c)
			escaped = false
		} else {
			b.WriteByte('\\')
			b.WriteString(strconv.FormatInt(int64(c), 16))
			escaped = true
		}
	}
	if escaped {
		// Terminate the last hex escape so a subsequent static character
		// cannot be read as additional hex digits.
		b.WriteByte(' ')
	}
	return data.String(b.String())
}

func isCSSStringSafe(c byte) bool {
	switch c {
	case '<', '>', '&', '\'', '"', '\\', '/':
		return false
	}
	return c >= 0x20 && c < 0x7f
}

// cssValuePattern matches identifiers, hex colors, dimensioned numbers,
// and percentages: the shapes a bare (unquoted) CSS value commonly takes.
var cssValuePattern = regexp.MustCompile(`^(?:[.#]?-?[_a-zA-Z][_a-zA-Z0-9-]*|-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[a-zA-Z]{1,4}|%)?)$`)

// cssValueFilter restricts a bare CSS value to the above safe grammar,
// replacing anything else with the failsafe placeholder.
func cssValueFilter(v data.Value, args []data.Value) data.Value {
	s := valueToText(v)
	if !cssValuePattern.MatchString(s) {
		return data.String(filterFailsafe)
	}
	return data.String(s)
}
