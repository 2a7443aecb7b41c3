package touchstick

import (
	"errors"
	"image"
	"sync"
	"time"
)

var (
	// ErrSurfaceReleased is returned once a surface has been torn down.
	ErrSurfaceReleased = errors.New("surface released")
	// ErrFrameLocked is returned when a frame is locked twice without a post.
	ErrFrameLocked = errors.New("frame already locked")
	// ErrNotSized is returned while the surface has no drawable area.
	ErrNotSized = errors.New("surface has no size")
)

// Surface is a double-buffered drawing target.
//
// Lock hands out the back buffer for exclusive drawing; Post presents it and
// gives it back. Every successful Lock must be followed by exactly one Post.
// Post may block until the display is ready for the next frame.
type Surface interface {
	Lock() (*image.RGBA, error)
	Post(frame *image.RGBA) error
	Size() (width, height int)
}

// MemorySurface is a Surface backed by two in-memory RGBA buffers.
type MemorySurface struct {
	// FrameInterval, when non-zero, paces Post to at most one frame per interval.
	FrameInterval time.Duration

	mu       sync.Mutex
	front    *image.RGBA
	back     *image.RGBA
	locked   bool
	released bool
	frames   uint64
	lastPost time.Time
	onPost   func(front *image.RGBA)
}

// NewMemorySurface returns a surface of the given size.
func NewMemorySurface(width, height int) *MemorySurface {
	s := &MemorySurface{}
	s.Resize(width, height)
	return s
}

// Resize reallocates both buffers. It fails while a frame is locked.
func (s *MemorySurface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return ErrFrameLocked
	}
	if width <= 0 || height <= 0 {
		s.front, s.back = nil, nil
		return nil
	}
	r := image.Rect(0, 0, width, height)
	s.front = image.NewRGBA(r)
	s.back = image.NewRGBA(r)
	return nil
}

// OnPost registers a hook called with the freshly presented buffer.
// The hook runs on the render goroutine and must not retain the image.
func (s *MemorySurface) OnPost(fn func(front *image.RGBA)) {
	s.mu.Lock()
	s.onPost = fn
	s.mu.Unlock()
}

func (s *MemorySurface) Lock() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.released:
		return nil, ErrSurfaceReleased
	case s.back == nil:
		return nil, ErrNotSized
	case s.locked:
		return nil, ErrFrameLocked
	}
	s.locked = true
	return s.back, nil
}

func (s *MemorySurface) Post(frame *image.RGBA) error {
	s.mu.Lock()
	if !s.locked || frame != s.back {
		s.mu.Unlock()
		return errors.New("post of a frame that is not locked")
	}
	s.locked = false
	if s.released {
		s.mu.Unlock()
		return ErrSurfaceReleased
	}
	s.front, s.back = s.back, s.front
	s.frames++
	hook := s.onPost
	front := s.front
	wait := time.Duration(0)
	if s.FrameInterval > 0 && !s.lastPost.IsZero() {
		wait = s.FrameInterval - time.Since(s.lastPost)
	}
	// The next frame is paced from when this one is presented, after the wait.
	s.lastPost = time.Now().Add(max(wait, 0))
	s.mu.Unlock()

	if hook != nil {
		hook(front)
	}
	if wait > 0 {
		time.Sleep(wait)
	}
	return nil
}

func (s *MemorySurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil {
		return 0, 0
	}
	b := s.front.Bounds()
	return b.Dx(), b.Dy()
}

// Frames is the number of frames presented so far.
func (s *MemorySurface) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Locked reports whether a frame is currently handed out.
func (s *MemorySurface) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Snapshot returns a copy of the last presented frame, or nil before the first post.
func (s *MemorySurface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil || s.frames == 0 {
		return nil
	}
	cp := image.NewRGBA(s.front.Bounds())
	copy(cp.Pix, s.front.Pix)
	return cp
}

// Release tears the surface down. Later Lock calls fail with ErrSurfaceReleased.
func (s *MemorySurface) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}
