package render

import (
	"sync"

	"github.com/ctxtpl/ctxtpl/data"
)

// ManualValueProvider is a ValueProvider whose resolution is driven
// explicitly by host code calling Fulfill/Fail, rather than by some
// background computation. It is the provider boundary scenario 5 (the
// detachable-resume test) drives by hand, standing in for a real
// asynchronous dependency (a backend RPC, a database lookup, ...).
type ManualValueProvider struct {
	mu    sync.Mutex
	done  bool
	value data.Value
	err   error
}

// Status implements Provider. Once Fulfill or Fail has been called, Status
// keeps returning the same outcome, per the provider invariant ("once
// status() returns done, it continues to return done; once it returns
// failed(e), subsequent status() returns failed(e)").
func (p *ManualValueProvider) Status() RenderResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.err != nil:
		return Failed(p.err)
	case p.done:
		return Done()
	default:
		return ContinueAfter(p)
	}
}

// Resolve implements ValueProvider. It must not be called before Status()
// reports done; doing so is a programming error, matching the spec's "must
// not be called while status() != done".
func (p *ManualValueProvider) Resolve() (data.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done && p.err == nil {
		panic("render: Resolve called before ManualValueProvider was fulfilled")
	}
	return p.value, p.err
}

// Fulfill resolves the provider to v. Fulfilling an already-fulfilled or
// failed provider is a no-op, matching the at-most-once resolution
// invariant.
func (p *ManualValueProvider) Fulfill(v data.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done || p.err != nil {
		return
	}
	p.value, p.done = v, true
}

// Fail fails the provider with err. Failing an already-resolved provider is
// a no-op.
func (p *ManualValueProvider) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done || p.err != nil {
		return
	}
	p.err = err
}
