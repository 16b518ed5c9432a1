package render

import (
	"context"

	"github.com/google/uuid"

	"github.com/ctxtpl/ctxtpl/data"
)

// TemplateFunc is a compiled template body, grounded on soyhtml/exec.go's
// state.walk but restructured to suspend via Exec's Await*/checkCancel
// helpers instead of writing straight through. fn runs on its own goroutine
// for the lifetime of one logical render.
type TemplateFunc func(e *Exec) error

// Engine drives TemplateFuncs through the suspend/resume protocol. The zero
// Engine is ready to use; set Metrics to enable optional instrumentation.
type Engine struct {
	Metrics *Metrics
}

// Exec carries the per-activation execution state a running TemplateFunc
// uses: where to write, the logging-suppression stack, and the channel
// rendezvous used to suspend. One Exec exists per template activation's
// goroutine; nested calls get their own Exec via engine.Render/NewContentProvider.
type Exec struct {
	Context context.Context

	logging *loggingStack
	act     *activation
	metrics *Metrics
	seq     int64
}

// Write implements io.Writer, funneling through the log-only suppression
// stack before reaching the underlying Appendable.
func (e *Exec) Write(p []byte) (int, error) { return e.logging.Write(p) }

// EnterLog pushes a logging-command scope (ast.LogNode in soyhtml's tree),
// logOnly true for a block whose text must be suppressed from output.
func (e *Exec) EnterLog(logOnly bool) { e.logging.Enter(logOnly) }

// ExitLog pops the innermost logging-command scope pushed by EnterLog.
func (e *Exec) ExitLog(logOnly bool) { e.logging.Exit(logOnly) }

func (e *Exec) nextState() int64 {
	e.seq++
	return e.seq
}

// checkCancel suspends once, reporting limited(cancelled) or
// limited(softLimitReached), if either condition currently holds. It is
// called at the suspension points named in the concurrency model: before
// awaiting a provider, and at call boundaries.
func (e *Exec) checkCancel() {
	select {
	case <-e.Context.Done():
		e.park(Limited(ReasonCancelled))
		return
	default:
	}
	if e.logging.SoftLimitReached() {
		e.park(Limited(ReasonSoftLimitReached))
	}
}

// AwaitValue suspends until vp's Status() is done, then resolves it. A
// provider that fails returns the failure as a Go error, matching
// PluginFailure's propagation as a runtime error.
func (e *Exec) AwaitValue(vp ValueProvider) (data.Value, error) {
	for {
		e.checkCancel()
		var status = vp.Status()
		switch {
		case status.Kind == ResultDone:
			return vp.Resolve()
		case status.Reason == ReasonFailed:
			return nil, status.Err
		}
		e.park(ContinueAfter(vp))
	}
}

// AwaitContent drains a ContentProvider into e's output, suspending between
// attempts until it reports done. Per the runtime contract, the same
// Appendable (e's own) is used on every resumption of cp within this Exec.
func (e *Exec) AwaitContent(cp ContentProvider) error {
	for {
		e.checkCancel()
		var result = cp.RenderAndResolve(e)
		switch {
		case result.Kind == ResultDone:
			return nil
		case result.Reason == ReasonFailed:
			return result.Err
		}
		e.park(result)
	}
}

// park suspends the current goroutine, handing result to the controller and
// blocking until Resume wakes it back up.
func (e *Exec) park(result RenderResult) {
	e.act.state = e.nextState()
	e.metrics.observeSuspend(result)
	e.act.suspend <- result
	<-e.act.resume
}

// Render starts fn on a new goroutine and runs it until its first
// suspension or completion. A nil Frame and nil error means fn ran to
// completion; a non-nil Frame means the caller must wait on Frame.Result's
// provider (or relieve back-pressure, or retry after the context clears)
// before calling Resume.
func (en *Engine) Render(ctx context.Context, fn TemplateFunc, a Appendable) (*Frame, error) {
	return en.RenderWithSink(ctx, fn, a, nil)
}

// RenderWithSink is Render with an explicit LoggingSink observing {log}
// block enter/exit events.
func (en *Engine) RenderWithSink(ctx context.Context, fn TemplateFunc, a Appendable, sink LoggingSink) (*Frame, error) {
	en.Metrics.observeRenderStart()
	var act = &activation{
		suspend: make(chan RenderResult),
		resume:  make(chan struct{}),
	}
	var e = &Exec{
		Context: ctx,
		logging: newLoggingStack(a, sink),
		act:     act,
		metrics: en.Metrics,
	}
	go func() {
		var err = fn(e)
		act.done = true
		act.err = err
		act.suspend <- Done()
	}()
	return waitForSuspendOrDone(act)
}

// Resume wakes the goroutine parked behind frame and runs it until its next
// suspension or completion.
func (en *Engine) Resume(frame *Frame) (*Frame, error) {
	if frame == nil || frame.act == nil {
		return nil, nil
	}
	frame.act.resume <- struct{}{}
	return waitForSuspendOrDone(frame.act)
}

func waitForSuspendOrDone(act *activation) (*Frame, error) {
	var result = <-act.suspend
	if act.done {
		return nil, act.err
	}
	return &Frame{
		StateNumber:     act.state,
		DependencyToken: uuid.New(),
		Result:          result,
		act:             act,
	}, nil
}
