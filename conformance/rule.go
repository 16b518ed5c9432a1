// Package conformance implements the conformance engine: a single
// post-type-check AST traversal that dispatches each node to the subset of
// configured rules applicable to its kind, aggregating diagnostics. Rules
// never mutate the AST. Grounded on the single-pass node-kind dispatch in
// autoescape/strict.go's escape() switch and the accumulate-across-the-
// whole-registry shape of parsepasses/datarefcheck.go's CheckDataRefs.
package conformance

import "strings"

// Kind names a conformance requirement variant, exactly matching the rule
// set named in the conformance engine's public contract.
type Kind string

const (
	BannedFunction                     Kind = "banned_function"
	BannedDirective                     Kind = "banned_directive"
	BannedRawText                       Kind = "banned_raw_text"
	BannedTextEverywhereExceptComments  Kind = "banned_text_everywhere_except_comments"
	BannedHTMLTag                       Kind = "banned_html_tag"
	BannedCSSSelector                   Kind = "banned_css_selector"
	Custom                              Kind = "custom"
)

// Rule is one conformance requirement: a variant, the name/substring/tag it
// bans (or, for Custom, the plugin identifier to invoke), an error-message
// template, and an optional whitelist.
type Rule struct {
	Kind    Kind
	Name    string
	Message string

	// Whitelist is a list of path substrings; if any is a contiguous
	// substring of the file identity being checked, this rule is
	// suppressed for that file.
	Whitelist []string
}

// whitelisted reports whether path matches any of the rule's whitelist
// entries. Matching is substring-of-path with contiguous match, not a
// glob or regex: "foo/bar/baz.soy" matches ".../foo/bar/baz.soy" but not
// ".../foo/c/bar/baz.soy", since the latter doesn't contain the whitelist
// string as a contiguous run of characters.
func (r Rule) whitelisted(path string) bool {
	for _, pattern := range r.Whitelist {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

func (r Rule) message(matched string) string {
	if r.Message != "" {
		return r.Message
	}
	return string(r.Kind) + ": " + matched
}
