package main

import "time"

// DaemonState is the daemon-owned state container. Only the daemon goroutine
// reads or writes it; other goroutines get StateSnapshot copies.
//
// Stick positions are not kept here. They live in the joysticks themselves and
// are read by the effects layer when a snapshot is published.
type DaemonState struct {
	// Visible is whether the sticks are shown (and their render loops running).
	Visible bool

	// Capture is the stick that owns the current touch, "" when none does.
	Capture string

	// Drone is the last observed outcome of discrete drone commands.
	Drone DroneState
}

// DroneState is the daemon's view of the drone.
type DroneState struct {
	Driver      string    `json:"driver"`
	Flying      bool      `json:"flying"`
	LastCommand DroneOp   `json:"last_command,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	At          time.Time `json:"at,omitzero"`
}

// StickSnapshot is one stick's externally visible state.
type StickSnapshot struct {
	Name          string
	Role          Role
	X, Y          float64
	AutoCentering bool
}

// StateSnapshot is a coherent copy of the daemon state plus the live stick vectors.
type StateSnapshot struct {
	Visible bool
	Sticks  []StickSnapshot
	Drone   DroneState
}

// Snapshot copies the reducer-owned part of the state.
func (s *DaemonState) Snapshot() StateSnapshot {
	return StateSnapshot{
		Visible: s.Visible,
		Drone:   s.Drone,
	}
}

// SetObservedDroneCommand records a drone command that went through.
func (s *DaemonState) SetObservedDroneCommand(op DroneOp, now time.Time) {
	switch op {
	case DroneOpTakeOff:
		s.Drone.Flying = true
	case DroneOpLand:
		s.Drone.Flying = false
	}
	s.Drone.LastCommand = op
	s.Drone.LastError = ""
	s.Drone.At = now
}

// SetDroneCommandError records a drone command that failed. Flying is left as it was.
func (s *DaemonState) SetDroneCommandError(op DroneOp, err error, now time.Time) {
	s.Drone.LastCommand = op
	s.Drone.LastError = err.Error()
	s.Drone.At = now
}
