package main

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	smtello "github.com/SMerrony/tello"
	gobottello "gobot.io/x/gobot/platforms/dji/tello"
)

// Vector is a stick deflection, each axis in [-1, 1]; +Y is up.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Drone receives stick vectors and discrete flight commands.
//
// SetSticks is called on every touch and must only buffer the values; the
// driver sends them on its own cadence.
type Drone interface {
	SetSticks(throttleYaw, pitchRoll Vector)
	TakeOff() error
	Land() error
	Hover() error
	Close() error
}

// newDrone connects the configured driver.
func newDrone(cfg DroneConfig, logger *slog.Logger) (Drone, error) {
	switch cfg.Driver {
	case "", "none":
		return &noopDrone{}, nil

	case "tello":
		t := new(smtello.Tello)
		if err := t.ControlConnect(cfg.Address, cfg.ControlPort, cfg.LocalPort); err != nil {
			return nil, fmt.Errorf("tello connect %s:%d: %w", cfg.Address, cfg.ControlPort, err)
		}
		logger.Info("tello connected", "address", cfg.Address, "control_port", cfg.ControlPort, "local_port", cfg.LocalPort)
		return &telloDrone{t: t}, nil

	case "gobot":
		d := gobottello.NewDriver(strconv.Itoa(cfg.LocalPort))
		if err := d.Start(); err != nil {
			return nil, fmt.Errorf("gobot tello start: %w", err)
		}
		logger.Info("gobot tello driver started", "local_port", cfg.LocalPort)
		return &gobotDrone{d: d, logger: logger}, nil

	default:
		return nil, fmt.Errorf("unknown drone driver %q", cfg.Driver)
	}
}

// ============================================================================
// none
// ============================================================================

// noopDrone accepts everything and flies nothing.
type noopDrone struct{}

func (*noopDrone) SetSticks(Vector, Vector) {}
func (*noopDrone) TakeOff() error           { return nil }
func (*noopDrone) Land() error              { return nil }
func (*noopDrone) Hover() error             { return nil }
func (*noopDrone) Close() error             { return nil }

// ============================================================================
// tello (github.com/SMerrony/tello)
// ============================================================================

// telloDrone writes into the library's stick buffer, which its control loop
// sends to the drone periodically.
type telloDrone struct {
	t *smtello.Tello
}

func (d *telloDrone) SetSticks(throttleYaw, pitchRoll Vector) {
	d.t.UpdateSticks(telloSticks(throttleYaw, pitchRoll))
}

func (d *telloDrone) TakeOff() error {
	d.t.TakeOff()
	return nil
}

func (d *telloDrone) Land() error {
	d.t.Land()
	return nil
}

func (d *telloDrone) Hover() error {
	d.t.Hover()
	return nil
}

func (d *telloDrone) Close() error {
	d.t.ControlDisconnect()
	return nil
}

// telloSticks maps Mode-2 sticks onto the Tello stick message:
// left stick Lx=yaw Ly=throttle, right stick Rx=roll Ry=pitch.
func telloSticks(throttleYaw, pitchRoll Vector) smtello.StickMessage {
	return smtello.StickMessage{
		Lx: axisToInt16(throttleYaw.X),
		Ly: axisToInt16(throttleYaw.Y),
		Rx: axisToInt16(pitchRoll.X),
		Ry: axisToInt16(pitchRoll.Y),
	}
}

func axisToInt16(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int16(v * math.MaxInt16)
}

// ============================================================================
// gobot (gobot.io/x/gobot/platforms/dji/tello)
// ============================================================================

// gobotDrone drives gobot's Tello driver through its per-direction speed
// setters, which take a 0-100 percentage.
type gobotDrone struct {
	mu     sync.Mutex
	d      *gobottello.Driver
	logger *slog.Logger
}

func (g *gobotDrone) SetSticks(throttleYaw, pitchRoll Vector) {
	g.mu.Lock()
	defer g.mu.Unlock()

	axes := []struct {
		name     string
		v        float64
		pos, neg func(int) error
	}{
		{"pitch", pitchRoll.Y, g.d.Forward, g.d.Backward},
		{"roll", pitchRoll.X, g.d.Right, g.d.Left},
		{"throttle", throttleYaw.Y, g.d.Up, g.d.Down},
		{"yaw", throttleYaw.X, g.d.Clockwise, g.d.CounterClockwise},
	}
	for _, a := range axes {
		if err := setAxis(a.v, a.pos, a.neg); err != nil {
			g.logger.Debug("gobot stick update failed", "axis", a.name, "error", err)
		}
	}
}

// setAxis sends one signed axis to the setter for its direction. The driver
// keeps a single value per axis, so the positive setter with 0 centers it.
func setAxis(v float64, pos, neg func(int) error) error {
	pct, positive := gobotAxis(v)
	if positive {
		return pos(pct)
	}
	return neg(pct)
}

// gobotAxis converts a vector component to gobot's percentage and direction.
// Small deflections fall inside the driver's dead zone and come out as 0.
func gobotAxis(v float64) (pct int, positive bool) {
	if math.IsNaN(v) {
		return 0, true
	}
	return gobottello.ValidatePitch(v, 1), v >= 0
}

func (g *gobotDrone) TakeOff() error {
	return g.d.TakeOff()
}

func (g *gobotDrone) Land() error {
	return g.d.Land()
}

func (g *gobotDrone) Hover() error {
	g.d.Hover()
	return nil
}

func (g *gobotDrone) Close() error {
	return g.d.Halt()
}
