package main

import "time"

// The reducer turns one Event into the next DaemonState plus the Commands and
// StateBroadcasts it implies. It performs no I/O; the daemon loop executes the
// commands and feeds their observations back in.

// ==============================
// Broadcasts (externally observable state changes)
// ==============================

// StateBroadcast is a state change pushed to websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastStickChanged carries a stick's new vector. It is produced by the
// stick listener, not the reducer.
type BroadcastStickChanged struct {
	Stick string
	Role  Role
	X, Y  float64
	At    time.Time
}

func (BroadcastStickChanged) broadcastMarker() {}

// BroadcastVisibilityChanged reports the sticks being shown or hidden.
type BroadcastVisibilityChanged struct {
	Visible bool
	At      time.Time
}

func (BroadcastVisibilityChanged) broadcastMarker() {}

// BroadcastDroneState reports the drone state after a command.
type BroadcastDroneState struct {
	Drone DroneState
	At    time.Time
}

func (BroadcastDroneState) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce: next state, commands to execute and
// broadcasts to publish, in order.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer. It must not perform I/O or block, and it only
// mutates the state it returns.
func Reduce(s *DaemonState, e Event, layout Layout) ReduceResult {
	if s == nil {
		s = &DaemonState{}
	}

	var (
		cmds       []Command
		broadcasts []StateBroadcast
	)

	// release ends the current capture, if any.
	release := func() {
		if s.Capture == "" {
			return
		}
		cmds = append(cmds, CmdStickTouch{Stick: s.Capture, Phase: phaseUp})
		s.Capture = ""
	}

	switch ev := e.(type) {
	case TouchDown:
		// A down without an up (lost events) releases the old stick first.
		release()
		if !s.Visible {
			break
		}
		r, ok := layout.Hit(ev.X, ev.Y)
		if !ok {
			break
		}
		s.Capture = r.Name
		x, y := r.Local(ev.X, ev.Y)
		cmds = append(cmds, CmdStickTouch{Stick: r.Name, Phase: phaseDown, X: x, Y: y})

	case TouchMove:
		if s.Capture == "" {
			break
		}
		r, ok := layout.Region(s.Capture)
		if !ok {
			s.Capture = ""
			break
		}
		x, y := r.Local(ev.X, ev.Y)
		cmds = append(cmds, CmdStickTouch{Stick: r.Name, Phase: phaseMove, X: x, Y: y})

	case TouchUp:
		release()

	case SetVisible:
		if ev.Visible == s.Visible {
			break
		}
		if !ev.Visible {
			release()
		}
		s.Visible = ev.Visible
		cmds = append(cmds, CmdSetVisible{Visible: ev.Visible})
		broadcasts = append(broadcasts, BroadcastVisibilityChanged{Visible: ev.Visible, At: time.Now()})

	case SetAutoCentering:
		if _, ok := layout.Region(ev.Stick); !ok {
			break
		}
		cmds = append(cmds, CmdSetAutoCentering{Stick: ev.Stick, Enabled: ev.Enabled})

	case DroneTakeOff:
		cmds = append(cmds, CmdDrone{Op: DroneOpTakeOff})
	case DroneLand:
		cmds = append(cmds, CmdDrone{Op: DroneOpLand})
	case DroneHover:
		cmds = append(cmds, CmdDrone{Op: DroneOpHover})

	case DroneCommandDone:
		s.SetObservedDroneCommand(ev.Op, ev.At)
		broadcasts = append(broadcasts, BroadcastDroneState{Drone: s.Drone, At: ev.At})

	case DroneCommandFailed:
		s.SetDroneCommandError(ev.Op, ev.Err, ev.At)
		broadcasts = append(broadcasts, BroadcastDroneState{Drone: s.Drone, At: ev.At})

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot()})
	}

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: broadcasts,
	}
}
