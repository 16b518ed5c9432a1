// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// transition.go implements the per-state token scanners that rawtext.go's
// contextAfterText drives. Adapted (see context.go) from html/template's
// transition table, condensed to the states this package actually reaches.
package autoescape

import (
	"bytes"
)

// transitionFunc is keyed by state and, given a context and a chunk of
// text known to contain no tag/attribute/string boundary that the caller
// hasn't already split on, returns the context after consuming some
// prefix of the chunk and how many bytes were consumed.
var transitionFunc = [stateError + 1]func(context, []byte) (context, int){
	stateText:         tText,
	stateTag:          tTag,
	stateAttrName:     tAttrName,
	stateAfterName:    tAfterName,
	stateBeforeValue:  tBeforeValue,
	stateHTMLCmt:      tHTMLCmt,
	stateRCDATA:       tRCDATA,
	stateAttr:         tAttr,
	stateURL:          tURL,
	stateJS:           tJS,
	stateJSDqStr:      tJSDelimited('"', stateJSDqStr),
	stateJSSqStr:      tJSDelimited('\'', stateJSSqStr),
	stateJSRegexp:     tJSRegexp,
	stateJSBlockCmt:   tBlockCmt(stateJS),
	stateJSLineCmt:    tLineCmt(stateJS),
	stateCSS:          tCSS,
	stateCSSDqStr:     tCSSDelimited('"', stateCSSDqStr, stateCSS),
	stateCSSSqStr:     tCSSDelimited('\'', stateCSSSqStr, stateCSS),
	stateCSSDqURL:     tCSSDelimited('"', stateCSSDqURL, stateCSSURL),
	stateCSSSqURL:     tCSSDelimited('\'', stateCSSSqURL, stateCSSURL),
	stateCSSURL:       tCSSURL,
	stateCSSBlockCmt:  tBlockCmt(stateCSS),
	stateCSSLineCmt:   tLineCmt(stateCSS),
}

// tSpecialTagEnd looks for the closing tag of a special RCDATA/script/style
// element (</script>, </style>, </textarea>, </title>) when we are
// currently inside its body. It returns the context to use with i==0
// bytes consumed from the outer caller if the closing tag begins at
// position 0 of s; otherwise it reports the unmodified context and the
// number of bytes up to (but not including) the closing tag, or len(s) if
// none is found in this chunk.
func tSpecialTagEnd(c context, s []byte) (context, int) {
	if c.element == elementNone {
		return c, len(s)
	}
	end := closeTagOf(c.element)
	i := caseInsensitiveIndex(s, end)
	if i == -1 {
		return c, len(s)
	}
	if i == 0 {
		return context{state: stateTag}, 0
	}
	return c, i
}

func closeTagOf(e element) []byte {
	switch e {
	case elementScript:
		return []byte("</script")
	case elementStyle:
		return []byte("</style")
	case elementTextarea:
		return []byte("</textarea")
	case elementTitle:
		return []byte("</title")
	}
	return nil
}

func caseInsensitiveIndex(s, sep []byte) int {
	return bytes.Index(bytes.ToLower(s), bytes.ToLower(sep))
}

// tText scans PCDATA for the start of a tag or comment.
func tText(c context, s []byte) (context, int) {
	i := bytes.IndexByte(s, '<')
	if i == -1 {
		return c, len(s)
	}
	if bytes.HasPrefix(s[i:], []byte("<!--")) {
		return context{state: stateHTMLCmt}, i + 4
	}
	if i+1 < len(s) && s[i+1] == '/' {
		// A close tag; consume up to and including the tag name so the
		// caller lands back in stateTag to parse any remaining attrs
		// (there won't be any on a well-formed close tag, but this keeps
		// the state machine uniform).
		j := i + 2
		for j < len(s) && isTagNameByte(s[j]) {
			j++
		}
		return context{state: stateTag}, j
	}
	if i+1 < len(s) && isTagNameByte(s[i+1]) {
		j := i + 1
		start := j
		for j < len(s) && isTagNameByte(s[j]) {
			j++
		}
		return context{state: stateTag, element: elementForTag(s[start:j])}, j
	}
	// '<' not followed by a tag name or '/': not a tag, keep scanning.
	return c, i + 1
}

func isTagNameByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-'
}

func elementForTag(name []byte) element {
	switch string(bytes.ToLower(name)) {
	case "script":
		return elementScript
	case "style":
		return elementStyle
	case "textarea":
		return elementTextarea
	case "title":
		return elementTitle
	}
	return elementNone
}

func tHTMLCmt(c context, s []byte) (context, int) {
	if i := bytes.Index(s, []byte("-->")); i != -1 {
		return context{state: stateText}, i + 3
	}
	return c, len(s)
}

func tRCDATA(c context, s []byte) (context, int) {
	// RCDATA (title/textarea) bodies are never re-parsed as markup, but a
	// dynamic value printed there still needs HTML entity escaping; the
	// state stays stateRCDATA until tSpecialTagEnd sees the close tag.
	return c, len(s)
}

// tTag scans inside a start tag, before/between/after attribute names.
func tTag(c context, s []byte) (context, int) {
	i := 0
	for i < len(s) && isHTMLSpace(s[i]) {
		i++
	}
	if i == len(s) {
		return c, i
	}
	if s[i] == '>' {
		// The body of a <script>, <style>, <textarea> or <title> element is
		// not PCDATA: enter the state its content is scanned in.
		switch c.element {
		case elementScript:
			return context{state: stateJS, element: c.element}, i + 1
		case elementStyle:
			return context{state: stateCSS, element: c.element}, i + 1
		case elementTextarea, elementTitle:
			return context{state: stateRCDATA, element: c.element}, i + 1
		}
		return context{state: stateText}, i + 1
	}
	if s[i] == '/' {
		// Self-closing slash; keep scanning for '>'.
		return c, i + 1
	}
	j := i
	for j < len(s) && isTagNameByte(s[j]) {
		j++
	}
	if j == i {
		// Unrecognized punctuation inside the tag; skip it rather than
		// looping forever.
		return c, i + 1
	}
	return context{state: stateAttrName, element: c.element, attr: attrForName(c.element, s[i:j])}, j
}

// attrForName classifies an attribute by name, additionally consulting the
// enclosing element for "src": a <script src>, unlike an <a href> or <img
// src>, loads and executes its fetched content as code, so it is treated as
// a trusted-resource-uri slot rather than a plain URL slot.
func attrForName(el element, name []byte) attr {
	switch string(bytes.ToLower(name)) {
	case "src":
		if el == elementScript {
			return attrTrustedResourceURL
		}
		return attrURL
	case "href", "action", "formaction", "cite", "longdesc", "profile", "usemap":
		return attrURL
	case "srcdoc":
		return attrNone
	case "style":
		return attrStyle
	default:
		lower := string(bytes.ToLower(name))
		if len(lower) > 2 && lower[:2] == "on" {
			return attrScript
		}
	}
	return attrNone
}

func tAttrName(c context, s []byte) (context, int) {
	i := 0
	for i < len(s) && isTagNameByte(s[i]) {
		i++
	}
	if i < len(s) {
		return context{state: stateAfterName, element: c.element, attr: c.attr}, i
	}
	return c, i
}

func tAfterName(c context, s []byte) (context, int) {
	i := 0
	for i < len(s) && isHTMLSpace(s[i]) {
		i++
	}
	if i == len(s) {
		return c, i
	}
	if s[i] == '=' {
		return context{state: stateBeforeValue, element: c.element, attr: c.attr}, i + 1
	}
	// Boolean attribute with no value; back to tag state to find the next
	// attribute or the tag end.
	return context{state: stateTag, element: c.element}, i
}

func tBeforeValue(c context, s []byte) (context, int) {
	i := 0
	for i < len(s) && isHTMLSpace(s[i]) {
		i++
	}
	if i == len(s) {
		return c, i
	}
	switch s[i] {
	case '"':
		return context{state: attrStartStates[c.attr], delim: delimDoubleQuote, element: c.element, attr: c.attr, urlPart: startURLPart(c.attr)}, i + 1
	case '\'':
		return context{state: attrStartStates[c.attr], delim: delimSingleQuote, element: c.element, attr: c.attr, urlPart: startURLPart(c.attr)}, i + 1
	default:
		return context{state: attrStartStates[c.attr], delim: delimSpaceOrTagEnd, element: c.element, attr: c.attr, urlPart: startURLPart(c.attr)}, i
	}
}

func startURLPart(a attr) urlPart {
	if a == attrURL || a == attrTrustedResourceURL {
		return urlPartNone
	}
	return urlPartNone
}

func tAttr(c context, s []byte) (context, int) {
	return c, len(s)
}

// tURL advances the urlPart classification as '?' / '#' are seen, mirroring
// html/template's distinction between the pre-query and query/fragment
// portions of a URL (different escaping rules apply to each).
func tURL(c context, s []byte) (context, int) {
	if c.urlPart == urlPartNone && len(s) > 0 {
		c.urlPart = urlPartPreQuery
	}
	for i, b := range s {
		if b == '?' || b == '#' {
			c.urlPart = urlPartQueryOrFrag
			return c, i + 1
		}
	}
	return c, len(s)
}

func tJS(c context, s []byte) (context, int) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			return context{state: stateJSDqStr, element: c.element, attr: c.attr}, i + 1
		case '\'':
			return context{state: stateJSSqStr, element: c.element, attr: c.attr}, i + 1
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				return context{state: stateJSLineCmt, element: c.element, attr: c.attr}, i + 2
			}
			if i+1 < len(s) && s[i+1] == '*' {
				return context{state: stateJSBlockCmt, element: c.element, attr: c.attr}, i + 2
			}
			if c.jsCtx == jsCtxRegexp {
				return context{state: stateJSRegexp, element: c.element, attr: c.attr}, i + 1
			}
		}
	}
	return c, len(s)
}

func tJSDelimited(quote byte, selfState state) func(context, []byte) (context, int) {
	return func(c context, s []byte) (context, int) {
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case quote:
				return context{state: stateJS, element: c.element, attr: c.attr, jsCtx: jsCtxDivOp}, i + 1
			}
		}
		return c, len(s)
	}
}

func tJSRegexp(c context, s []byte) (context, int) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '/':
			return context{state: stateJS, element: c.element, attr: c.attr, jsCtx: jsCtxDivOp}, i + 1
		case '\n', '\r':
			return context{state: stateJS, element: c.element, attr: c.attr, jsCtx: jsCtxRegexp}, i
		}
	}
	return c, len(s)
}

func tCSS(c context, s []byte) (context, int) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			return context{state: stateCSSDqStr, element: c.element, attr: c.attr}, i + 1
		case '\'':
			return context{state: stateCSSSqStr, element: c.element, attr: c.attr}, i + 1
		case '/':
			if i+1 < len(s) && s[i+1] == '*' {
				return context{state: stateCSSBlockCmt, element: c.element, attr: c.attr}, i + 2
			}
			if i+1 < len(s) && s[i+1] == '/' {
				return context{state: stateCSSLineCmt, element: c.element, attr: c.attr}, i + 2
			}
		case '(':
			if bytes.HasPrefix(bytes.ToLower(s[max0(i-3):i]), []byte("url")) {
				return context{state: stateCSSURL, element: c.element, attr: c.attr}, i + 1
			}
		}
	}
	return c, len(s)
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

func tCSSDelimited(quote byte, selfState, exitState state) func(context, []byte) (context, int) {
	return func(c context, s []byte) (context, int) {
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case quote:
				return context{state: exitState, element: c.element, attr: c.attr}, i + 1
			}
		}
		return c, len(s)
	}
}

func tCSSURL(c context, s []byte) (context, int) {
	i := 0
	if c.urlPart == urlPartNone {
		for i < len(s) && isHTMLSpace(s[i]) {
			i++
		}
		if i == len(s) {
			return c, i
		}
		switch s[i] {
		case '"':
			return context{state: stateCSSDqURL, element: c.element, attr: c.attr}, i + 1
		case '\'':
			return context{state: stateCSSSqURL, element: c.element, attr: c.attr}, i + 1
		}
	}
	for j := i; j < len(s); j++ {
		switch s[j] {
		case ')':
			return context{state: stateCSS, element: c.element, attr: c.attr}, j + 1
		case '?', '#':
			c.urlPart = urlPartQueryOrFrag
		default:
			if c.urlPart == urlPartNone {
				c.urlPart = urlPartPreQuery
			}
		}
	}
	return c, len(s)
}

func tBlockCmt(exitState state) func(context, []byte) (context, int) {
	return func(c context, s []byte) (context, int) {
		if i := bytes.Index(s, []byte("*/")); i != -1 {
			return context{state: exitState, element: c.element, attr: c.attr}, i + 2
		}
		return c, len(s)
	}
}

func tLineCmt(exitState state) func(context, []byte) (context, int) {
	return func(c context, s []byte) (context, int) {
		if i := bytes.IndexAny(s, "\n\r"); i != -1 {
			return context{state: exitState, element: c.element, attr: c.attr}, i
		}
		return c, len(s)
	}
}

func isHTMLSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
