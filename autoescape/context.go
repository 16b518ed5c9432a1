// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// context.go defines the HTML-tokenizer state that the rest of this package
// (rawtext.go, transition.go, strict.go) was written against but which the
// retrieved snapshot never carried its own copy of. The state set mirrors
// the "context alphabet" named by spec §... (PCDATA, TAG_NAME,
// BEFORE_ATTR_NAME, ATTR_NAME, BEFORE_ATTR_VALUE, ATTR_VALUE(family,
// quote), RCDATA(tag), SCRIPT(subkind), STYLE, COMMENT), adapted (per the
// BSD header already present in rawtext.go) from the html/template state
// machine that the original Closure escaper's port was itself modeled on.
package autoescape

// state describes a low-level HTML/CSS/JS parser state.
type state uint8

const (
	// stateText is parsed character data. An HTML parser is in
	// this state when parsing text outside a tag.
	stateText state = iota
	// stateTag occurs before an attribute name.
	stateTag
	// stateAttrName occurs inside an attribute name.
	stateAttrName
	// stateAfterName occurs after an attribute name ends but before an
	// equal sign.
	stateAfterName
	// stateBeforeValue occurs after the equal sign but before the value.
	stateBeforeValue
	// stateHTMLCmt occurs inside an <!-- HTML comment -->.
	stateHTMLCmt
	// stateRCDATA occurs inside an RCDATA element (<title> or <textarea>)
	// after stateText transitions because of a start tag.
	stateRCDATA
	// stateAttr occurs inside an attribute value delimited by a quote and
	// containing non-URL, non-script, non-style content.
	stateAttr
	// stateURL occurs inside a URL attribute value.
	stateURL
	// stateJS occurs inside a <script> tag.
	stateJS
	stateJSDqStr
	stateJSSqStr
	stateJSRegexp
	stateJSBlockCmt
	stateJSLineCmt
	// stateCSS occurs inside a <style> tag or style attribute.
	stateCSS
	stateCSSDqStr
	stateCSSSqStr
	stateCSSDqURL
	stateCSSSqURL
	stateCSSURL
	stateCSSBlockCmt
	stateCSSLineCmt
	// stateError is a degenerate state used to indicate that the
	// autoescaper can't figure out how to escape correctly.
	stateError
)

// String renders a state the way it would be named under the spec's
// PCDATA/TAG_NAME/ATTR_VALUE vocabulary.
func (s state) String() string {
	switch s {
	case stateText:
		return "PCDATA"
	case stateTag:
		return "TAG_NAME"
	case stateAttrName:
		return "ATTR_NAME"
	case stateAfterName:
		return "AFTER_ATTR_NAME"
	case stateBeforeValue:
		return "BEFORE_ATTR_VALUE"
	case stateHTMLCmt:
		return "COMMENT"
	case stateRCDATA:
		return "RCDATA"
	case stateAttr:
		return "ATTR_VALUE(normal)"
	case stateURL:
		return "ATTR_VALUE(uri)"
	case stateJS, stateJSDqStr, stateJSSqStr, stateJSRegexp, stateJSBlockCmt, stateJSLineCmt:
		return "SCRIPT"
	case stateCSS, stateCSSDqStr, stateCSSSqStr, stateCSSDqURL, stateCSSSqURL, stateCSSURL, stateCSSBlockCmt, stateCSSLineCmt:
		return "STYLE"
	case stateError:
		return "ERROR"
	}
	return "UNKNOWN_STATE"
}

func isComment(s state) bool {
	switch s {
	case stateHTMLCmt, stateJSBlockCmt, stateJSLineCmt, stateCSSBlockCmt, stateCSSLineCmt:
		return true
	}
	return false
}

// delim is the type of quote used to delimit an attribute value.
type delim uint8

const (
	delimNone delim = iota
	delimDoubleQuote
	delimSingleQuote
	// delimSpaceOrTagEnd is used for unquoted attribute values, which end
	// at whitespace or the tag-closing '>'.
	delimSpaceOrTagEnd
)

// urlPart identifies the portion of a URL being written, since escaping
// differs before vs. after the query/fragment delimiter.
type urlPart uint8

const (
	urlPartNone urlPart = iota
	urlPartPreQuery
	urlPartQueryOrFrag
	// urlPartUnknown occurs when a URL's prefix was itself dynamic, so
	// the autoescaper cannot tell which part of the URL a further
	// dynamic value lands in.
	urlPartUnknown
)

func (u urlPart) String() string {
	switch u {
	case urlPartNone:
		return "urlPartNone"
	case urlPartPreQuery:
		return "urlPartPreQuery"
	case urlPartQueryOrFrag:
		return "urlPartQueryOrFrag"
	default:
		return "urlPartUnknown"
	}
}

// jsCtx distinguishes "/" as a division operator from "/" as the start of
// a regular expression literal.
type jsCtx uint8

const (
	jsCtxRegexp jsCtx = iota
	jsCtxDivOp
)

// attr identifies what an attribute's value holds, so attribute-specific
// transition functions kick in (e.g. a URL vs. an event handler vs. a
// style property list).
type attr uint8

const (
	attrNone attr = iota
	attrURL
	attrTrustedResourceURL
	attrScript
	attrStyle
)

// attrStartStates maps an attr family to the state a value enters on its
// first character (used by nudge, below, and by attribute-value lookahead).
var attrStartStates = [...]state{
	attrNone:               stateAttr,
	attrURL:                stateURL,
	attrTrustedResourceURL: stateURL,
	attrScript:             stateJS,
	attrStyle:              stateCSS,
}

// element records which RCDATA/special element's content we're inside, so
// the closing tag can be detected (</script>, </style>, </title>,
// </textarea>).
type element uint8

const (
	elementNone element = iota
	elementScript
	elementStyle
	elementTextarea
	elementTitle
)

// context is the full escaping state threaded through the autoescaper's
// walk of a template body.
type context struct {
	state   state
	delim   delim
	urlPart urlPart
	jsCtx   jsCtx
	attr    attr
	element element
	err     *Error
}

func (c context) String() string {
	if c.err != nil {
		return "error: " + c.err.Error()
	}
	return c.state.String()
}

// beforeDynamicValue returns the context just before a {print} or {call}
// is substituted in, nudging past any empty-string transitions the way
// nudge does for raw text.
func (c context) beforeDynamicValue() context {
	return nudge(c)
}
