package main

import (
	"context"
	"log/slog"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The daemon goroutine is the joysticks' "UI thread": every touch, visibility
// change and drone command is reduced and executed here, one event at a time.
//
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - runEffect is the only place that drives joysticks and the drone.
//   - Drone outcomes come back as events and are reduced like any other input.
//
// ============================================================================

// runDaemon reduces events and executes the resulting commands until ctx is
// canceled or events is closed.
//
// It does not tear anything down on exit; the caller hides the sticks and
// releases surfaces once it returns, when nothing else touches them.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	layout Layout,
	sticks *stickSet,
	drone Drone,
	broadcasts chan<- StateBroadcast,
	state *DaemonState,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}

	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bs []StateBroadcast) {
		for _, b := range bs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping state broadcast")
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, layout)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			if broadcasts != nil {
				publish(rr.Broadcasts)
			}
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			logger.Debug("executing command", "command", cmd.String())
			runEffect(sticks, drone, cmd, logger, enqueueEvent)

			// Reduce observations right away so follow-up commands keep their order.
			flushEvents()
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			enqueueEvent(ev)
			flushEvents()
			flushCommands()
		}
	}
}
