package main

import (
	"errors"
	"testing"
	"time"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout(DefaultConfig().Sticks)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	return l
}

func onlyTouch(t *testing.T, rr ReduceResult) CmdStickTouch {
	t.Helper()
	if len(rr.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d: %v", len(rr.Commands), rr.Commands)
	}
	c, ok := rr.Commands[0].(CmdStickTouch)
	if !ok {
		t.Fatalf("expected CmdStickTouch, got %T", rr.Commands[0])
	}
	return c
}

func TestReduce_TouchDownCapturesHitStick(t *testing.T) {
	layout := testLayout(t)
	s := &DaemonState{Visible: true}

	rr := Reduce(s, TouchDown{X: 500, Y: 200}, layout)
	c := onlyTouch(t, rr)

	if c.Stick != "right" || c.Phase != phaseDown {
		t.Fatalf("got %s", c)
	}
	if c.X != 20 || c.Y != 40 {
		t.Fatalf("local = (%v, %v), want (20, 40)", c.X, c.Y)
	}
	if rr.State.Capture != "right" {
		t.Fatalf("capture = %q, want right", rr.State.Capture)
	}
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("touches must not broadcast from the reducer, got %v", rr.Broadcasts)
	}
}

func TestReduce_TouchDownMissesAndHidden(t *testing.T) {
	layout := testLayout(t)

	rr := Reduce(&DaemonState{Visible: true}, TouchDown{X: 400, Y: 10}, layout)
	if len(rr.Commands) != 0 || rr.State.Capture != "" {
		t.Fatalf("miss: commands=%v capture=%q", rr.Commands, rr.State.Capture)
	}

	rr = Reduce(&DaemonState{}, TouchDown{X: 100, Y: 200}, layout)
	if len(rr.Commands) != 0 || rr.State.Capture != "" {
		t.Fatalf("hidden: commands=%v capture=%q", rr.Commands, rr.State.Capture)
	}
}

func TestReduce_RepeatedDownReleasesPreviousStick(t *testing.T) {
	layout := testLayout(t)
	s := &DaemonState{Visible: true, Capture: "left"}

	rr := Reduce(s, TouchDown{X: 500, Y: 200}, layout)
	if len(rr.Commands) != 2 {
		t.Fatalf("expected up+down, got %v", rr.Commands)
	}
	up := rr.Commands[0].(CmdStickTouch)
	down := rr.Commands[1].(CmdStickTouch)
	if up.Stick != "left" || up.Phase != phaseUp {
		t.Fatalf("first = %s, want left up", up)
	}
	if down.Stick != "right" || down.Phase != phaseDown {
		t.Fatalf("second = %s, want right down", down)
	}
}

func TestReduce_MoveAndUpFollowCapture(t *testing.T) {
	layout := testLayout(t)
	s := &DaemonState{Visible: true, Capture: "left"}

	// Outside the left stick's region on screen; still routed to it.
	rr := Reduce(s, TouchMove{X: 700, Y: 100}, layout)
	c := onlyTouch(t, rr)
	if c.Stick != "left" || c.Phase != phaseMove || c.X != 660 || c.Y != -60 {
		t.Fatalf("got %s", c)
	}

	rr = Reduce(rr.State, TouchUp{}, layout)
	c = onlyTouch(t, rr)
	if c.Stick != "left" || c.Phase != phaseUp {
		t.Fatalf("got %s", c)
	}
	if rr.State.Capture != "" {
		t.Fatalf("capture = %q after up", rr.State.Capture)
	}

	// Nothing captured: move and up are no-ops.
	rr = Reduce(rr.State, TouchMove{X: 100, Y: 200}, layout)
	rr = Reduce(rr.State, TouchUp{}, layout)
	if len(rr.Commands) != 0 {
		t.Fatalf("expected no commands, got %v", rr.Commands)
	}
}

func TestReduce_SetVisible(t *testing.T) {
	layout := testLayout(t)

	rr := Reduce(&DaemonState{}, SetVisible{Visible: true}, layout)
	if !rr.State.Visible {
		t.Fatalf("not visible")
	}
	if len(rr.Commands) != 1 || rr.Commands[0] != (CmdSetVisible{Visible: true}) {
		t.Fatalf("commands = %v", rr.Commands)
	}
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("broadcasts = %v", rr.Broadcasts)
	}
	if b, ok := rr.Broadcasts[0].(BroadcastVisibilityChanged); !ok || !b.Visible {
		t.Fatalf("broadcast = %#v", rr.Broadcasts[0])
	}

	// Unchanged: nothing happens.
	rr = Reduce(rr.State, SetVisible{Visible: true}, layout)
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("repeat: commands=%v broadcasts=%v", rr.Commands, rr.Broadcasts)
	}
}

func TestReduce_HideReleasesBeforeStopping(t *testing.T) {
	layout := testLayout(t)
	s := &DaemonState{Visible: true, Capture: "right"}

	rr := Reduce(s, SetVisible{Visible: false}, layout)
	if len(rr.Commands) != 2 {
		t.Fatalf("commands = %v", rr.Commands)
	}
	if up, ok := rr.Commands[0].(CmdStickTouch); !ok || up.Stick != "right" || up.Phase != phaseUp {
		t.Fatalf("first = %v, want right up", rr.Commands[0])
	}
	if rr.Commands[1] != (CmdSetVisible{Visible: false}) {
		t.Fatalf("second = %v", rr.Commands[1])
	}
	if rr.State.Capture != "" || rr.State.Visible {
		t.Fatalf("state = %+v", rr.State)
	}
}

func TestReduce_SetAutoCentering(t *testing.T) {
	layout := testLayout(t)

	rr := Reduce(&DaemonState{}, SetAutoCentering{Stick: "left", Enabled: false}, layout)
	if len(rr.Commands) != 1 || rr.Commands[0] != (CmdSetAutoCentering{Stick: "left", Enabled: false}) {
		t.Fatalf("commands = %v", rr.Commands)
	}

	rr = Reduce(&DaemonState{}, SetAutoCentering{Stick: "middle", Enabled: true}, layout)
	if len(rr.Commands) != 0 {
		t.Fatalf("unknown stick produced %v", rr.Commands)
	}
}

func TestReduce_DroneEvents(t *testing.T) {
	layout := testLayout(t)
	tests := []struct {
		ev Event
		op DroneOp
	}{
		{DroneTakeOff{}, DroneOpTakeOff},
		{DroneLand{}, DroneOpLand},
		{DroneHover{}, DroneOpHover},
	}
	for _, tt := range tests {
		rr := Reduce(&DaemonState{}, tt.ev, layout)
		if len(rr.Commands) != 1 || rr.Commands[0] != (CmdDrone{Op: tt.op}) {
			t.Fatalf("%T: commands = %v", tt.ev, rr.Commands)
		}
	}
}

func TestReduce_DroneObservations(t *testing.T) {
	layout := testLayout(t)
	at := time.Unix(1700000000, 0)
	s := &DaemonState{Drone: DroneState{Driver: "tello"}}

	rr := Reduce(s, DroneCommandDone{Op: DroneOpTakeOff, At: at}, layout)
	if !rr.State.Drone.Flying || !rr.State.Drone.At.Equal(at) {
		t.Fatalf("after takeoff: %+v", rr.State.Drone)
	}
	b, ok := rr.Broadcasts[0].(BroadcastDroneState)
	if !ok || !b.Drone.Flying || b.Drone.Driver != "tello" {
		t.Fatalf("broadcast = %#v", rr.Broadcasts[0])
	}

	rr = Reduce(rr.State, DroneCommandFailed{Op: DroneOpLand, Err: errors.New("timeout"), At: at}, layout)
	if !rr.State.Drone.Flying {
		t.Fatalf("failed land must not clear flying")
	}
	if rr.State.Drone.LastError != "timeout" || rr.State.Drone.LastCommand != DroneOpLand {
		t.Fatalf("after failed land: %+v", rr.State.Drone)
	}

	rr = Reduce(rr.State, DroneCommandDone{Op: DroneOpLand, At: at}, layout)
	if rr.State.Drone.Flying || rr.State.Drone.LastError != "" {
		t.Fatalf("after land: %+v", rr.State.Drone)
	}
}

func TestReduce_RequestStateSnapshot(t *testing.T) {
	layout := testLayout(t)
	reply := make(chan StateSnapshot, 1)
	s := &DaemonState{Visible: true, Drone: DroneState{Driver: "gobot", Flying: true}}

	rr := Reduce(s, RequestStateSnapshot{Reply: reply}, layout)
	if len(rr.Commands) != 1 {
		t.Fatalf("commands = %v", rr.Commands)
	}
	c, ok := rr.Commands[0].(CmdPublishStateSnapshot)
	if !ok {
		t.Fatalf("got %T", rr.Commands[0])
	}
	if !c.Snapshot.Visible || !c.Snapshot.Drone.Flying || c.Snapshot.Drone.Driver != "gobot" {
		t.Fatalf("snapshot = %+v", c.Snapshot)
	}
}

func TestReduce_NilStateIsZero(t *testing.T) {
	rr := Reduce(nil, TouchDown{X: 100, Y: 200}, testLayout(t))
	if rr.State == nil || rr.State.Visible || len(rr.Commands) != 0 {
		t.Fatalf("rr = %+v", rr)
	}
}
