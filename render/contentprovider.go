package render

import (
	"context"

	"github.com/ctxtpl/ctxtpl/data"
)

// FuncContentProvider turns a TemplateFunc into a ContentProvider, running
// it on its own suspend/resume activation the same way Engine.Render does
// for a top-level render. This is how {call} boundaries and {let}
// content blocks become independently resumable content providers: each
// gets its own FuncContentProvider, buffering its own output until done.
type FuncContentProvider struct {
	engine *Engine
	ctx    context.Context
	fn     TemplateFunc

	buf    BufferAppendable
	frame  *Frame
	done   bool
	err    error
	result RenderResult
}

// NewContentProvider builds a ContentProvider around fn, to be driven by
// repeated calls to RenderAndResolve.
func NewContentProvider(ctx context.Context, engine *Engine, fn TemplateFunc) *FuncContentProvider {
	return &FuncContentProvider{engine: engine, ctx: ctx, fn: fn}
}

// Status reports the provider's last-known RenderResult without making
// progress; call RenderAndResolve to actually advance it.
func (p *FuncContentProvider) Status() RenderResult {
	if p.done {
		if p.err != nil {
			return Failed(p.err)
		}
		return Done()
	}
	if p.frame == nil {
		return ContinueAfter(p)
	}
	return p.result
}

// RenderAndResolve advances the underlying TemplateFunc, writing into its
// own internal buffer, then copies whatever that run produced into a. Per
// the same-appendable contract, a caller resuming one logical render must
// keep passing the same a; RenderAndResolve itself tolerates a varying
// because it replays from its own buffer rather than writing through.
func (p *FuncContentProvider) RenderAndResolve(a Appendable) RenderResult {
	if p.done {
		a.Write(p.buf.Bytes())
		if p.err != nil {
			return Failed(p.err)
		}
		return Done()
	}

	var before = p.buf.Len()
	var frame, err = p.advance()
	if _, werr := a.Write(p.buf.Bytes()[before:]); werr != nil {
		p.done, p.err = true, werr
		return Failed(werr)
	}

	if frame == nil {
		p.done, p.err = true, err
		if err != nil {
			return Failed(err)
		}
		return Done()
	}

	p.frame = frame
	p.result = frame.Result
	return frame.Result
}

func (p *FuncContentProvider) advance() (*Frame, error) {
	if p.frame == nil {
		return p.engine.Render(p.ctx, p.fn, &p.buf)
	}
	return p.engine.Resume(p.frame)
}

// Resolve returns the fully-rendered content as a data.String. It must not
// be called until RenderAndResolve has reported done.
func (p *FuncContentProvider) Resolve() (data.Value, error) {
	if !p.done {
		panic("render: Resolve called before ContentProvider reported done")
	}
	if p.err != nil {
		return nil, p.err
	}
	return data.String(p.buf.String()), nil
}
