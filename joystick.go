package touchstick

import (
	"image"
	"log/slog"
	"math"
	"sync"
)

// Listener receives the stick vector after every touch. x grows to the right and
// y grows upward, both in [-1, 1]. It runs on the goroutine that delivered the
// touch and should return quickly.
type Listener func(x, y float64)

// Options configures a Joystick.
type Options struct {
	// Surface is where the render loop draws. Without one the joystick still maps
	// touches and publishes vectors but never renders.
	Surface Surface
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// AutoCentering defaults to true.
	AutoCentering *bool
	// Style defaults to DefaultStyle().
	Style *Style
}

// Joystick is an on-screen analog stick.
type Joystick struct {
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	listener Listener

	loop    *RenderLoop
	painter *painter

	// frameHook sees every knob copy the render loop takes.
	frameHook func(Knob)
}

// New returns an unmeasured, hidden joystick.
func New(opts Options) *Joystick {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	style := DefaultStyle()
	if opts.Style != nil {
		style = *opts.Style
	}

	j := &Joystick{
		logger:  logger,
		painter: newPainter(style),
	}
	j.state.AutoCentering = true
	if opts.AutoCentering != nil {
		j.state.AutoCentering = *opts.AutoCentering
	}
	if opts.Surface != nil {
		j.loop = NewRenderLoop(opts.Surface, j.paint, logger)
	}
	return j
}

// SetListener registers the stick listener, replacing any previous one.
// A nil listener stops delivery.
func (j *Joystick) SetListener(l Listener) {
	j.mu.Lock()
	j.listener = l
	j.mu.Unlock()
}

// SetAutoCentering switches between spring-back and sticky release.
func (j *Joystick) SetAutoCentering(on bool) {
	j.mu.Lock()
	j.state.AutoCentering = on
	j.mu.Unlock()
}

// AutoCentering reports the release policy.
func (j *Joystick) AutoCentering() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.AutoCentering
}

// SurfaceChanged takes the control size from the drawing area. Only the first
// non-zero size is used; later calls are ignored.
func (j *Joystick) SurfaceChanged(width, height int) {
	size := min(width, height)

	j.mu.Lock()
	measured := j.state.measure(size)
	bg, knob := j.state.BackgroundSize, j.state.KnobSize
	j.mu.Unlock()

	if measured {
		j.logger.Debug("joystick measured", "background_size", bg, "knob_size", knob)
	}
}

// Measured reports whether touches are being mapped yet.
func (j *Joystick) Measured() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.Measured()
}

// BecameVisible starts the render loop.
func (j *Joystick) BecameVisible() {
	if j.loop != nil {
		j.loop.Start()
	}
}

// BecameHidden stops the render loop and waits for it to exit.
func (j *Joystick) BecameHidden() {
	if j.loop != nil {
		j.loop.Stop()
	}
}

// Visible reports whether the render loop is running.
func (j *Joystick) Visible() bool {
	return j.loop != nil && j.loop.Running()
}

// Close hides the joystick and drops the listener.
func (j *Joystick) Close() {
	j.BecameHidden()
	j.SetListener(nil)
}

// OnTouchDown moves the knob to the touch point.
func (j *Joystick) OnTouchDown(x, y float64) {
	j.touch(x, y)
}

// OnTouchMove follows the pointer.
func (j *Joystick) OnTouchMove(x, y float64) {
	j.touch(x, y)
}

// OnTouchUp re-centers the knob when auto-centering is on.
func (j *Joystick) OnTouchUp() {
	j.mu.Lock()
	if !j.state.Measured() {
		j.mu.Unlock()
		return
	}
	if j.state.AutoCentering {
		j.state.center()
	}
	x, y := j.state.StickVector()
	l := j.listener
	j.mu.Unlock()

	publish(l, x, y)
}

func (j *Joystick) touch(x, y float64) {
	if !finite(x) || !finite(y) {
		return
	}

	j.mu.Lock()
	if !j.state.Measured() {
		j.mu.Unlock()
		return
	}
	j.state.moveTo(x, y)
	sx, sy := j.state.StickVector()
	l := j.listener
	j.mu.Unlock()

	publish(l, sx, sy)
}

func publish(l Listener, x, y float64) {
	if l == nil {
		return
	}
	l(x, y)
}

// StickVector is the vector last published (or that would be).
func (j *Joystick) StickVector() (x, y float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.StickVector()
}

// Knob returns a copy of the knob geometry.
func (j *Joystick) Knob() Knob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state.knob()
}

// State returns a copy of the whole geometry.
func (j *Joystick) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// paint runs on the render goroutine.
func (j *Joystick) paint(frame *image.RGBA) {
	j.mu.Lock()
	k := j.state.knob()
	bg := j.state.BackgroundSize
	j.mu.Unlock()

	if j.frameHook != nil {
		j.frameHook(k)
	}
	j.painter.paint(frame, k, bg)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
