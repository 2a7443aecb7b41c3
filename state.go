package touchstick

import "math"

const (
	// knobRatio is the knob's share of the control's side length.
	knobRatio = 0.4
)

// State is the geometry shared by the touch goroutine and the render goroutine.
// It is not safe for concurrent use on its own; Joystick guards it with a mutex.
type State struct {
	// BackgroundSize is the side of the square control area in pixels. Zero until measured.
	BackgroundSize int
	// KnobSize is round(BackgroundSize * 0.4).
	KnobSize int
	// Radius is BackgroundSize * 0.5.
	Radius float64

	// KnobX, KnobY are the top-left of the knob's box within the control.
	KnobX int
	KnobY int

	// AutoCentering snaps the knob back to center on release.
	AutoCentering bool
}

// Knob is a copy of the knob geometry taken under the lock.
type Knob struct {
	X, Y int
	Size int
}

// Measured reports whether the control has a size to do geometry against.
func (s *State) Measured() bool {
	return s.BackgroundSize > 0
}

// measure sets the control size. Only the first non-zero size is taken.
func (s *State) measure(size int) bool {
	if s.Measured() || size <= 0 {
		return false
	}
	s.BackgroundSize = size
	s.KnobSize = int(math.Round(float64(size) * knobRatio))
	s.Radius = float64(size) * 0.5
	s.center()
	return true
}

// centerOffset is the top-left coordinate that puts the knob in the middle.
func (s *State) centerOffset() int {
	return int(math.Round(float64(s.BackgroundSize-s.KnobSize) * 0.5))
}

func (s *State) center() {
	c := s.centerOffset()
	s.KnobX = c
	s.KnobY = c
}

// travel is the radius the knob's center may move within.
func (s *State) travel() float64 {
	return s.Radius - float64(s.KnobSize)/2
}

// moveTo places the knob center at (x, y), projecting it onto the travel circle
// when the point lies outside it.
func (s *State) moveTo(x, y float64) {
	limit := s.travel()
	dx := x - s.Radius
	dy := y - s.Radius

	cx, cy := x, y
	if dx*dx+dy*dy > limit*limit {
		angle := math.Atan2(dy, dx)
		cx = s.Radius + limit*math.Cos(angle)
		cy = s.Radius + limit*math.Sin(angle)
	}

	half := float64(s.KnobSize) / 2
	s.KnobX = s.clampOffset(int(math.Round(cx - half)))
	s.KnobY = s.clampOffset(int(math.Round(cy - half)))
}

// clampOffset keeps a rounded coordinate inside [0, BackgroundSize-KnobSize].
// Only float noise from the projection can push it out.
func (s *State) clampOffset(v int) int {
	maxOffset := s.BackgroundSize - s.KnobSize
	if v < 0 {
		return 0
	}
	if v > maxOffset {
		return maxOffset
	}
	return v
}

func (s *State) knob() Knob {
	return Knob{X: s.KnobX, Y: s.KnobY, Size: s.KnobSize}
}

// StickVector converts the knob position into the published vector.
// X grows to the right, Y grows upward. An axis sitting on the centered
// coordinate reports exactly zero.
func (s *State) StickVector() (x, y float64) {
	span := float64(s.BackgroundSize - s.KnobSize)
	if !s.Measured() || span <= 0 {
		return 0, 0
	}
	c := s.centerOffset()
	if s.KnobX != c {
		x = (0.5 - float64(s.KnobX)/span) * -2
	}
	if s.KnobY != c {
		y = (0.5 - float64(s.KnobY)/span) * 2
	}
	return x, y
}
