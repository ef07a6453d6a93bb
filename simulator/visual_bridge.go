package simulator

// VisualBridge decouples frame producers from the rendering backend. In
// headless mode frames are swallowed here, so producers publish
// unconditionally and never branch on mode.
type VisualBridge[Frame any] struct {
	headless bool
	publish  func(Frame)
}

// NewVisualBridge wraps a publish callback. A nil callback behaves like
// headless mode.
func NewVisualBridge[Frame any](headless bool, publish func(Frame)) *VisualBridge[Frame] {
	return &VisualBridge[Frame]{headless: headless, publish: publish}
}

// IsHeadless reports whether frames are currently being swallowed.
func (v *VisualBridge[Frame]) IsHeadless() bool {
	return v == nil || v.headless || v.publish == nil
}

// SetHeadless toggles frame publishing at runtime.
func (v *VisualBridge[Frame]) SetHeadless(headless bool) {
	if v == nil {
		return
	}
	v.headless = headless
}

// Publish forwards the frame to the rendering backend unless headless.
func (v *VisualBridge[Frame]) Publish(frame Frame) {
	if v.IsHeadless() {
		return
	}
	v.publish(frame)
}
