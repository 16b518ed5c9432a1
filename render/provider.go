// Package render implements the detachable rendering runtime described in
// the rendering-runtime design: a template activation runs on its own
// goroutine and blocks on a channel rendezvous at every suspension point
// (value-provider await, appendable back-pressure, cancellation check, call
// boundary) instead of writing straight through the way soyhtml/exec.go's
// plain recursive walker does. Frame exposes a state-number/dependency-token
// pair so a future bytecode or JS backend could implement the same resume
// contract with an explicit dispatch table instead of goroutine parking.
package render

import "github.com/ctxtpl/ctxtpl/data"

// RenderResultKind is the tag of the RenderResult sum type.
type RenderResultKind int

const (
	// ResultDone means the render (or provider) ran to completion.
	ResultDone RenderResultKind = iota
	// ResultLimited means the render stopped short of completion for a
	// reason that isn't a dependency (back-pressure, cancellation, or a
	// provider failure); see LimitedReason.
	ResultLimited
	// ResultContinueAfter means the render is waiting on a Provider; the
	// caller must wait for it to become ready before resuming.
	ResultContinueAfter
)

// LimitedReason distinguishes the non-dependency reasons a render can stop.
type LimitedReason int

const (
	// ReasonSoftLimitReached means the appendable reported back-pressure.
	ReasonSoftLimitReached LimitedReason = iota
	// ReasonCancelled means the render's context was cancelled.
	ReasonCancelled
	// ReasonFailed means a provider's computation errored; Err holds why.
	ReasonFailed
)

func (r LimitedReason) String() string {
	switch r {
	case ReasonSoftLimitReached:
		return "softLimitReached"
	case ReasonCancelled:
		return "cancelled"
	case ReasonFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RenderResult is the sum type a render (or a Provider's status) produces:
// done, limited(reason), or continueAfter(provider).
type RenderResult struct {
	Kind     RenderResultKind
	Reason   LimitedReason
	Err      error
	Provider Provider
}

// Done builds a done RenderResult.
func Done() RenderResult { return RenderResult{Kind: ResultDone} }

// Limited builds a limited(reason) RenderResult.
func Limited(reason LimitedReason) RenderResult {
	return RenderResult{Kind: ResultLimited, Reason: reason}
}

// Failed builds a limited(failed) RenderResult carrying the cause, the
// provider-status analog of "failed(e)" from the testable-properties
// invariant ("once status() returns failed(e), subsequent status() returns
// failed(e)").
func Failed(err error) RenderResult {
	return RenderResult{Kind: ResultLimited, Reason: ReasonFailed, Err: err}
}

// ContinueAfter builds a continueAfter(provider) RenderResult.
func ContinueAfter(p Provider) RenderResult {
	return RenderResult{Kind: ResultContinueAfter, Provider: p}
}

// Done reports whether r is the done result.
func (r RenderResult) Done() bool { return r.Kind == ResultDone }

// Provider is the capability shared by ValueProvider and ContentProvider:
// reporting readiness without necessarily producing a value yet.
type Provider interface {
	Status() RenderResult
}

// ValueProvider encapsulates a computation that may require awaiting a
// dependency before it can resolve a scalar value. Resolve must not be
// called while Status() is not done.
type ValueProvider interface {
	Provider
	Resolve() (data.Value, error)
}

// ContentProvider encapsulates a computation that streams typed content.
// The runtime contract requires passing the same Appendable on every
// resumption of one logical render; the implementation buffers already
// produced output internally so it can (a) finalize a value for Resolve
// and (b) replay output into a fresh appendable, subject to that same rule.
type ContentProvider interface {
	Provider
	RenderAndResolve(a Appendable) RenderResult
	Resolve() (data.Value, error)
}
