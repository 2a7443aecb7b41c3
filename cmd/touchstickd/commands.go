package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents a side effect to be executed by the daemon loop:
// driving a joystick, showing or hiding the sticks, or talking to the drone.
type Command interface {
	commandMarker()
	String() string
}

// touchPhase says which joystick input call a CmdStickTouch maps to.
type touchPhase int

const (
	phaseDown touchPhase = iota
	phaseMove
	phaseUp
)

func (p touchPhase) String() string {
	switch p {
	case phaseDown:
		return "down"
	case phaseMove:
		return "move"
	case phaseUp:
		return "up"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// CmdStickTouch forwards a touch to one stick, in the stick's local coordinates.
type CmdStickTouch struct {
	Stick string
	Phase touchPhase
	X, Y  float64
}

func (CmdStickTouch) commandMarker() {}
func (c CmdStickTouch) String() string {
	return fmt.Sprintf("CmdStickTouch(stick=%s phase=%s x=%.1f y=%.1f)", c.Stick, c.Phase, c.X, c.Y)
}

// CmdSetVisible shows or hides every stick.
type CmdSetVisible struct {
	Visible bool
}

func (CmdSetVisible) commandMarker()   {}
func (c CmdSetVisible) String() string { return fmt.Sprintf("CmdSetVisible(visible=%v)", c.Visible) }

// CmdSetAutoCentering updates one stick's release behavior.
type CmdSetAutoCentering struct {
	Stick   string
	Enabled bool
}

func (CmdSetAutoCentering) commandMarker() {}
func (c CmdSetAutoCentering) String() string {
	return fmt.Sprintf("CmdSetAutoCentering(stick=%s enabled=%v)", c.Stick, c.Enabled)
}

// DroneOp is a discrete drone command.
type DroneOp string

const (
	DroneOpTakeOff DroneOp = "takeoff"
	DroneOpLand    DroneOp = "land"
	DroneOpHover   DroneOp = "hover"
)

// CmdDrone sends a discrete command to the drone.
type CmdDrone struct {
	Op DroneOp
}

func (CmdDrone) commandMarker()   {}
func (c CmdDrone) String() string { return fmt.Sprintf("CmdDrone(op=%s)", c.Op) }

// CmdPublishStateSnapshot delivers a snapshot to a requester. The effects
// layer fills in the live stick vectors before sending.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
