// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import (
	"fmt"
	"strings"

	"github.com/ctxtpl/ctxtpl/data"
)

// allowedURISchemes lists the URI schemes that filterNormalizeUri accepts
// as the start of a dynamic URL. Anything else (most notably javascript:
// and data:) is replaced wholesale by the failsafe.
var allowedURISchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
}

// urlFilter implements the "filterNormalizeUri" print directive: it
// rejects a value that begins with a disallowed URI scheme, and otherwise
// passes it through for further escaping.
func urlFilter(v data.Value, args []data.Value) data.Value {
	s := valueToText(v)
	if uriHasDisallowedScheme(s) {
		return data.String("#" + string(filterFailsafe))
	}
	return data.String(s)
}

func uriHasDisallowedScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ':':
			return !allowedURISchemes[strings.ToLower(s[:i])]
		case '/', '?', '#':
			return false
		}
	}
	return false
}

func percentEncode(s string, unsafe func(byte) bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unsafe(c) {
			fmt.Fprintf(&b, "%%%02x", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// urlNormalizer implements "normalizeUri": a gentle percent-encoder that
// preserves URI structural characters (: / ? # & = etc.) but escapes
// characters that could let the value break out of its surrounding
// quotes or be misread by a buggy URI consumer.
func urlNormalizer(v data.Value, args []data.Value) data.Value {
	return data.String(percentEncode(valueToText(v), normalizeURIUnsafe))
}

func normalizeURIUnsafe(c byte) bool {
	switch c {
	case '"', '\'', '(', ')', '<', '>', '`':
		return true
	}
	return c <= 0x20 || c >= 0x7f
}

// urlEscaper implements "escapeUri": a full percent-encoder for a value
// substituted into the query or fragment portion of a URL, where every
// character but the unreserved set must be escaped.
func urlEscaper(v data.Value, args []data.Value) data.Value {
	return data.String(percentEncode(valueToText(v), escapeURIUnsafe))
}

func escapeURIUnsafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '_', '.', '~':
		return false
	}
	return true
}
