package simulator

import "context"

// Runner glues command handling and visualization for a simulation main loop.
type Runner[TCommand any, Frame any] struct {
	commandLoop *CommandLoop[TCommand]
	visual      *VisualBridge[Frame]
}

// NewRunner creates a new Runner instance.
func NewRunner[TCommand any, Frame any](loop *CommandLoop[TCommand], visual *VisualBridge[Frame]) *Runner[TCommand, Frame] {
	return &Runner[TCommand, Frame]{
		commandLoop: loop,
		visual:      visual,
	}
}

// WaitForCommand blocks on the command loop until a command arrives or the
// context is cancelled.
func (r *Runner[TCommand, Frame]) WaitForCommand(ctx context.Context) bool {
	if r == nil || r.commandLoop == nil {
		return true
	}
	return r.commandLoop.WaitAndHandle(ctx)
}

// PublishFrame emits a frame through the visual bridge if enabled.
func (r *Runner[TCommand, Frame]) PublishFrame(frame Frame) {
	if r == nil || r.visual == nil {
		return
	}
	r.visual.Publish(frame)
}

// VisualEnabled reports whether the visualization bridge is active.
func (r *Runner[TCommand, Frame]) VisualEnabled() bool {
	if r == nil || r.visual == nil {
		return false
	}
	return !r.visual.IsHeadless()
}
