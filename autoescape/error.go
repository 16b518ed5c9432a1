// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package autoescape

import "fmt"

// ErrorCode classifies the reason a contextual escaping pass failed.
type ErrorCode int

const (
	// ErrAmbigContext: "in tag", "in attribute value", etc.
	ErrAmbigContext ErrorCode = iota
	// ErrBadHTML: "expected attribute value", "unclosed tag", etc.
	ErrBadHTML
	// ErrBranchEnd: branches of an {if} or {switch} end in different contexts.
	ErrBranchEnd
	// ErrEndContext: the template ends in a context other than the one
	// its kind requires (e.g. inside a tag, inside a comment).
	ErrEndContext
	// ErrNoSuchTemplate: a {call} references a template not in the registry.
	ErrNoSuchTemplate
	// ErrOutputContext: the context after one call to a template differs
	// from the context after another, and no single escaping can satisfy
	// both call sites.
	ErrOutputContext
	// ErrRangeLoopReentry: a loop body does not end in the same context it
	// started in, so a second iteration would be escaped differently than
	// the first.
	ErrRangeLoopReentry
	// ErrSlashAmbig: a '/' cannot be disambiguated between the division
	// operator and the start of a regular expression literal.
	ErrSlashAmbig
	// ErrStrictEscapeRequired: a value of unknown content kind lands in a
	// trusted-resource-uri slot, where no escaping directive is trusted to
	// make an arbitrary string safe.
	ErrStrictEscapeRequired
)

// Error describes the problem and the template name and line number where
// it occurred.
type Error struct {
	Code ErrorCode
	Name string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%d: %s", e.Name, e.Line, e.Msg)
	}
	return e.Msg
}

func errorf(code ErrorCode, line int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Line: line, Msg: fmt.Sprintf(format, args...)}
}
