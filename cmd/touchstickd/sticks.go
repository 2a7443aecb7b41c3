package main

import (
	"fmt"
	"log/slog"
	"time"

	"touchstick"
)

// stick is one configured joystick.
type stick struct {
	name string
	role Role
	js   *touchstick.Joystick
}

// stickSet owns the daemon's joysticks. Its input side (touches, visibility,
// auto-centering) is only used from the daemon goroutine; the joysticks'
// render loops run on their own goroutines.
type stickSet struct {
	logger *slog.Logger

	order  []*stick
	byName map[string]*stick

	drone      Drone
	broadcasts chan<- StateBroadcast

	vectors map[Role]Vector
}

// newStickSet builds a joystick per configured stick, sized to its surface.
func newStickSet(cfgs []StickConfig, surfaces *surfaceSet, drone Drone, broadcasts chan<- StateBroadcast, logger *slog.Logger) (*stickSet, error) {
	s := &stickSet{
		logger:     logger,
		byName:     make(map[string]*stick, len(cfgs)),
		drone:      drone,
		broadcasts: broadcasts,
		vectors:    make(map[Role]Vector, 2),
	}

	for _, c := range cfgs {
		style, err := styleFor(c)
		if err != nil {
			return nil, fmt.Errorf("stick %s: %w", c.Name, err)
		}

		opts := touchstick.Options{
			Logger:        logger.With("stick", c.Name),
			AutoCentering: c.AutoCentering,
			Style:         &style,
		}
		width, height := c.Size, c.Size
		if surfaces != nil {
			if surf := surfaces.Get(c.Name); surf != nil {
				opts.Surface = surf
				width, height = surf.Size()
			}
		}

		st := &stick{name: c.Name, role: c.Role, js: touchstick.New(opts)}
		st.js.SetListener(s.listener(st))
		st.js.SurfaceChanged(width, height)

		s.order = append(s.order, st)
		s.byName[c.Name] = st
	}
	return s, nil
}

func styleFor(c StickConfig) (touchstick.Style, error) {
	style := touchstick.DefaultStyle()
	if c.KnobColor != "" {
		col, err := parseHexColor(c.KnobColor)
		if err != nil {
			return style, err
		}
		style.KnobColor = col
	}
	if c.BaseColor != "" {
		col, err := parseHexColor(c.BaseColor)
		if err != nil {
			return style, err
		}
		style.BaseColor = col
	}
	if c.KnobImage != "" {
		img, err := touchstick.LoadKnobImage(ExpandPath(c.KnobImage))
		if err != nil {
			return style, err
		}
		style.KnobImage = img
	}
	return style, nil
}

// listener forwards a stick's vector to the drone and queues a broadcast.
// It runs on the daemon goroutine, inside the touch that moved the stick.
func (s *stickSet) listener(st *stick) touchstick.Listener {
	return func(x, y float64) {
		s.vectors[st.role] = Vector{X: x, Y: y}
		if s.drone != nil {
			s.drone.SetSticks(s.vectors[RoleThrottleYaw], s.vectors[RolePitchRoll])
		}

		b := BroadcastStickChanged{Stick: st.name, Role: st.role, X: x, Y: y, At: time.Now()}
		select {
		case s.broadcasts <- b:
		default:
			s.logger.Debug("broadcast queue full, dropping stick update", "stick", st.name)
		}
	}
}

// Touch delivers a routed touch to its stick.
func (s *stickSet) Touch(cmd CmdStickTouch) error {
	st, ok := s.byName[cmd.Stick]
	if !ok {
		return fmt.Errorf("unknown stick %q", cmd.Stick)
	}
	switch cmd.Phase {
	case phaseDown:
		st.js.OnTouchDown(cmd.X, cmd.Y)
	case phaseMove:
		st.js.OnTouchMove(cmd.X, cmd.Y)
	case phaseUp:
		st.js.OnTouchUp()
	}
	return nil
}

// SetVisible starts or stops every render loop. Hiding blocks until each
// render goroutine has exited.
func (s *stickSet) SetVisible(visible bool) {
	for _, st := range s.order {
		if visible {
			st.js.BecameVisible()
		} else {
			st.js.BecameHidden()
		}
	}
}

func (s *stickSet) SetAutoCentering(name string, on bool) error {
	st, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("unknown stick %q", name)
	}
	st.js.SetAutoCentering(on)
	return nil
}

// Fill adds the live stick vectors to a snapshot.
func (s *stickSet) Fill(snap *StateSnapshot) {
	snap.Sticks = snap.Sticks[:0]
	for _, st := range s.order {
		x, y := st.js.StickVector()
		snap.Sticks = append(snap.Sticks, StickSnapshot{
			Name:          st.name,
			Role:          st.role,
			X:             x,
			Y:             y,
			AutoCentering: st.js.AutoCentering(),
		})
	}
}

// Close hides and detaches every joystick.
func (s *stickSet) Close() {
	for _, st := range s.order {
		st.js.Close()
	}
}
