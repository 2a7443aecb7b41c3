package main

import (
	"log/slog"
	"time"
)

// runEffect executes a single reducer-emitted Command and reports drone
// outcomes through onEvent.
//
// It is the only place allowed to touch the joysticks and the drone. It never
// calls Reduce itself; observations go back through the daemon loop.
func runEffect(
	sticks *stickSet,
	drone Drone,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	switch c := cmd.(type) {
	case CmdStickTouch:
		if sticks == nil {
			return
		}
		if err := sticks.Touch(c); err != nil {
			logger.Warn("stick touch dropped", "error", err)
		}

	case CmdSetVisible:
		if sticks == nil {
			return
		}
		sticks.SetVisible(c.Visible)
		logger.Info("sticks visibility changed", "visible", c.Visible)

	case CmdSetAutoCentering:
		if sticks == nil {
			return
		}
		if err := sticks.SetAutoCentering(c.Stick, c.Enabled); err != nil {
			logger.Warn("set auto-centering failed", "error", err)
			return
		}
		logger.Info("auto-centering changed", "stick", c.Stick, "enabled", c.Enabled)

	case CmdDrone:
		now := time.Now()
		err := droneOp(drone, c.Op)
		if err != nil {
			logger.Error("drone command failed", "op", c.Op, "error", err)
			onEvent(DroneCommandFailed{Op: c.Op, Err: err, At: now})
			return
		}
		logger.Info("drone command sent", "op", c.Op)
		onEvent(DroneCommandDone{Op: c.Op, At: now})

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		snap := c.Snapshot
		if sticks != nil {
			sticks.Fill(&snap)
		}

		// Never block the daemon loop on a requester.
		select {
		case c.Reply <- snap:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}

func droneOp(drone Drone, op DroneOp) error {
	if drone == nil {
		return errNoDrone{}
	}
	switch op {
	case DroneOpTakeOff:
		return drone.TakeOff()
	case DroneOpLand:
		return drone.Land()
	case DroneOpHover:
		return drone.Hover()
	default:
		return errUnknownDroneOp{op: op}
	}
}

// errNoDrone indicates a drone command without a drone to send it to.
type errNoDrone struct{}

func (errNoDrone) Error() string { return "no drone configured" }

type errUnknownDroneOp struct {
	op DroneOp
}

func (e errUnknownDroneOp) Error() string { return "unknown drone op: " + string(e.op) }
