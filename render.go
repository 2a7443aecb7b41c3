package touchstick

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// PaintFunc draws one frame into an already cleared buffer.
type PaintFunc func(frame *image.RGBA)

// RenderLoop redraws a Surface on a dedicated goroutine while running.
//
// The loop is not rate limited; it runs as fast as Surface.Post lets it.
type RenderLoop struct {
	surface Surface
	paint   PaintFunc
	logger  *slog.Logger

	// lifecycle serialises Start and Stop so a new loop never overlaps an exiting one.
	lifecycle sync.Mutex
	running   atomic.Bool
	current   *renderRun

	starts  atomic.Int64
	frames  atomic.Uint64
	dropped atomic.Uint64
}

// renderRun is one incarnation of the render goroutine.
type renderRun struct {
	active atomic.Bool
	done   chan struct{}
}

// NewRenderLoop returns a stopped loop.
func NewRenderLoop(surface Surface, paint PaintFunc, logger *slog.Logger) *RenderLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderLoop{
		surface: surface,
		paint:   paint,
		logger:  logger,
	}
}

// Start launches the render goroutine. It is a no-op while already running.
func (l *RenderLoop) Start() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if !l.running.CompareAndSwap(false, true) {
		return
	}
	l.starts.Add(1)
	r := &renderRun{done: make(chan struct{})}
	r.active.Store(true)
	l.current = r
	go l.run(r)
	l.logger.Debug("render loop started")
}

// Stop signals the render goroutine and waits for it to exit.
// When Stop returns the surface is no longer touched by the loop.
func (l *RenderLoop) Stop() {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if !l.running.CompareAndSwap(true, false) {
		return
	}
	if r := l.current; r != nil {
		r.active.Store(false)
		<-r.done
		l.current = nil
	}
	l.logger.Debug("render loop stopped", "frames", l.frames.Load(), "dropped", l.dropped.Load())
}

// Running reports the lifecycle state.
func (l *RenderLoop) Running() bool {
	return l.running.Load()
}

// Frames is the number of frames posted successfully.
func (l *RenderLoop) Frames() uint64 {
	return l.frames.Load()
}

func (l *RenderLoop) run(r *renderRun) {
	defer close(r.done)

	var lastLockErr error
	for r.active.Load() {
		frame, err := l.lockFrame()
		if errors.Is(err, errLockPanic) {
			l.dropped.Add(1)
			l.logger.Warn("frame dropped", "error", err)
			runtime.Gosched()
			continue
		}
		if err != nil {
			// Surfaces usually fail the same way many times in a row while being reconfigured.
			if err != lastLockErr {
				l.logger.Debug("frame unavailable", "error", err)
				lastLockErr = err
			}
			runtime.Gosched()
			continue
		}
		lastLockErr = nil

		if err := l.drawFrame(frame); err != nil {
			l.dropped.Add(1)
			l.logger.Warn("frame dropped", "error", err)
			continue
		}
		l.frames.Add(1)
	}
}

var errLockPanic = errors.New("lock panic")

// lockFrame locks a frame, turning a panicking surface into an error.
func (l *RenderLoop) lockFrame() (frame *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			frame, err = nil, fmt.Errorf("%w: %v", errLockPanic, r)
		}
	}()
	return l.surface.Lock()
}

// drawFrame clears, paints and posts a locked frame. The frame is posted even
// when painting fails or panics so it is never leaked.
func (l *RenderLoop) drawFrame(frame *image.RGBA) (err error) {
	posted := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("paint panic: %v", r)
		}
		if !posted {
			if perr := l.surface.Post(frame); perr != nil && err == nil {
				err = perr
			}
		}
	}()

	draw.Draw(frame, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
	if l.paint != nil {
		l.paint(frame)
	}

	posted = true
	if err := l.surface.Post(frame); err != nil {
		return fmt.Errorf("post frame: %w", err)
	}
	return nil
}
