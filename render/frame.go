package render

import "github.com/google/uuid"

// Frame is the suspension state handed back from Engine.Render/Resume: a
// state number paired with a dependency token, matching the contract named
// for the suspension-implementation design ("the frame carries an explicit
// state number") even though this engine's concrete resume mechanism is
// goroutine parking rather than a generated dispatch-on-state-number. A
// future bytecode or JS backend generator could implement the same Frame
// contract with an explicit table without changing this API.
type Frame struct {
	// StateNumber identifies the suspension point within the template
	// activation that produced this frame, unique within that activation.
	StateNumber int64
	// DependencyToken identifies this particular suspension instance, so a
	// host can correlate a Frame with the specific await it came from.
	DependencyToken uuid.UUID
	// Result is the RenderResult the suspension produced: limited(reason)
	// or continueAfter(provider). It is never Done for a live Frame;
	// completion is instead reported as a nil Frame from Render/Resume.
	Result RenderResult

	act *activation
}

// activation is the internal, per-render-goroutine suspension plumbing.
type activation struct {
	suspend chan RenderResult // goroutine -> controller
	resume  chan struct{}     // controller -> goroutine
	state   int64
	done    bool
	err     error
}
