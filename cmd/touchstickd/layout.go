package main

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// Role says which pair of drone axes a stick drives (Mode 2).
type Role string

const (
	// RoleThrottleYaw is the left stick: X yaws, Y climbs.
	RoleThrottleYaw Role = "throttle_yaw"
	// RolePitchRoll is the right stick: X rolls, Y pitches.
	RolePitchRoll Role = "pitch_roll"
)

func (r Role) valid() bool {
	return r == RoleThrottleYaw || r == RolePitchRoll
}

// Region is a stick's square area on the screen.
type Region struct {
	Name string
	Role Role
	Rect r2.Rect
}

// Size is the side of the square in pixels.
func (r Region) Size() int {
	return int(r.Rect.Size().X)
}

// Local translates a screen point into the stick's own coordinates.
func (r Region) Local(x, y float64) (float64, float64) {
	p := r2.Point{X: x, Y: y}.Sub(r.Rect.Lo())
	return p.X, p.Y
}

// Layout is the immutable set of stick regions on the screen.
type Layout struct {
	regions []Region
}

// NewLayout builds the regions for the configured sticks. Regions must not overlap.
func NewLayout(sticks []StickConfig) (Layout, error) {
	var l Layout
	for _, s := range sticks {
		rect := r2.RectFromPoints(
			r2.Point{X: float64(s.X), Y: float64(s.Y)},
			r2.Point{X: float64(s.X + s.Size), Y: float64(s.Y + s.Size)},
		)
		for _, other := range l.regions {
			if rect.InteriorIntersects(other.Rect) {
				return Layout{}, fmt.Errorf("stick %q overlaps stick %q", s.Name, other.Name)
			}
		}
		l.regions = append(l.regions, Region{Name: s.Name, Role: s.Role, Rect: rect})
	}
	return l, nil
}

// Hit returns the region under a screen point. Edges shared with the outside count as inside.
func (l Layout) Hit(x, y float64) (Region, bool) {
	p := r2.Point{X: x, Y: y}
	for _, r := range l.regions {
		if r.Rect.ContainsPoint(p) {
			return r, true
		}
	}
	return Region{}, false
}

// Region looks a region up by stick name.
func (l Layout) Region(name string) (Region, bool) {
	for _, r := range l.regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns the regions in configuration order.
func (l Layout) Regions() []Region {
	out := make([]Region, len(l.regions))
	copy(out, l.regions)
	return out
}
