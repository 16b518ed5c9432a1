// Package diag provides the shared diagnostic reporter used by the type
// checker and the conformance engine. It generalizes the teacher's
// errortypes.ErrFilePos into a structured, de-duplicating accumulator so a
// single compile can surface diagnostics from more than one pass instead of
// aborting at the first panic/recover boundary.
package diag

import (
	"fmt"
	"sort"

	"github.com/ctxtpl/ctxtpl/errortypes"
)

// Severity classifies a diagnostic.
type Severity int

const (
	// Warning diagnostics do not prevent code generation.
	Warning Severity = iota
	// Error diagnostics abort compilation before code generation, once all
	// passes for the current best-effort AST have run.
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Code is a machine-readable diagnostic identifier, e.g. "TypeMismatch",
// "ContextDivergence". The taxonomy is fixed by spec §7; passes should use
// the Code constants declared alongside them (see check, autoescape,
// conformance, render) rather than ad-hoc strings.
type Code string

// Location is a source span: a file identity plus start/end byte offsets
// and line/column, following the (file identity, byte offset, line/column)
// triple required by §3 "Source location."
type Location struct {
	File             string
	StartOffset, EndOffset int
	StartLine, StartCol    int
	EndLine, EndCol        int
}

func (l Location) String() string {
	if l.StartLine == 0 {
		return l.File
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Diagnostic is one reported compile-time issue.
type Diagnostic struct {
	Location Location
	Severity Severity
	Code     Code
	Message  string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", d.Location, d.Severity, d.Code, d.Message)
}

// AsErrFilePos adapts a Diagnostic to the teacher's errortypes.ErrFilePos
// interface, so code written against that older contract keeps working.
func (d Diagnostic) AsErrFilePos() error {
	return errortypes.NewErrFilePosf(d.Location.File, d.Location.StartLine, d.Location.StartCol, "%s", d.Message)
}

// Reporter accumulates diagnostics across passes and de-duplicates entries
// that share a (location, code) pair, per §7 "Duplicate diagnostics at the
// same location with the same code are coalesced."
type Reporter struct {
	diags []Diagnostic
	seen  map[seenKey]bool
}

type seenKey struct {
	loc  Location
	code Code
}

// NewReporter returns an empty diagnostic reporter.
func NewReporter() *Reporter {
	return &Reporter{seen: make(map[seenKey]bool)}
}

// Add records a diagnostic, coalescing duplicates.
func (r *Reporter) Add(d Diagnostic) {
	key := seenKey{d.Location, d.Code}
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.diags = append(r.diags, d)
}

// Errorf is a convenience wrapper that appends an Error-severity diagnostic.
func (r *Reporter) Errorf(loc Location, code Code, format string, args ...interface{}) {
	r.Add(Diagnostic{Location: loc, Severity: Error, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Warnf is a convenience wrapper that appends a Warning-severity diagnostic.
func (r *Reporter) Warnf(loc Location, code Code, format string, args ...interface{}) {
	r.Add(Diagnostic{Location: loc, Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Diagnostics returns all recorded diagnostics, sorted by location then
// code for deterministic output.
func (r *Reporter) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.File != out[j].Location.File {
			return out[i].Location.File < out[j].Location.File
		}
		if out[i].Location.StartOffset != out[j].Location.StartOffset {
			return out[i].Location.StartOffset < out[j].Location.StartOffset
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Err returns a single aggregate error summarizing every Error-severity
// diagnostic, or nil if there are none.
func (r *Reporter) Err() error {
	if !r.HasErrors() {
		return nil
	}
	var msg string
	for _, d := range r.Diagnostics() {
		if d.Severity != Error {
			continue
		}
		if msg != "" {
			msg += "\n"
		}
		msg += d.Error()
	}
	return fmt.Errorf("%s", msg)
}
