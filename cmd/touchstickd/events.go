package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - inputs to the daemon loop
// ============================================================================
// Events come from the touchscreen, IPC, the websocket server and from effects
// reporting back what the drone did. The daemon loop reduces them one at a time.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// TouchDown starts a touch at a screen position.
type TouchDown struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TouchMove moves the current touch.
type TouchMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TouchUp ends the current touch.
type TouchUp struct{}

// SetVisible shows or hides every joystick.
type SetVisible struct {
	Visible bool `json:"visible"`
}

// SetAutoCentering turns release-to-center on or off for one stick.
type SetAutoCentering struct {
	Stick   string `json:"stick"`
	Enabled bool   `json:"enabled"`
}

type DroneTakeOff struct{}
type DroneLand struct{}
type DroneHover struct{}

func (TouchDown) eventMarker()        {}
func (TouchMove) eventMarker()        {}
func (TouchUp) eventMarker()          {}
func (SetVisible) eventMarker()       {}
func (SetAutoCentering) eventMarker() {}
func (DroneTakeOff) eventMarker()     {}
func (DroneLand) eventMarker()        {}
func (DroneHover) eventMarker()       {}

// RequestStateSnapshot asks the daemon loop for a coherent snapshot.
// Used by the websocket server for state_init.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// DroneCommandDone is emitted after a drone command was handed to the drone.
type DroneCommandDone struct {
	Op DroneOp
	At time.Time
}

func (DroneCommandDone) eventMarker() {}

// DroneCommandFailed is emitted when a drone command returned an error.
type DroneCommandFailed struct {
	Op  DroneOp
	Err error
	At  time.Time
}

func (DroneCommandFailed) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for the IPC wire format.
// Only externally injectable events have a wire name.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "touch_down":
		var e TouchDown
		if err := unmarshalData(env, &e); err != nil {
			return nil, err
		}
		return e, nil

	case "touch_move":
		var e TouchMove
		if err := unmarshalData(env, &e); err != nil {
			return nil, err
		}
		return e, nil

	case "touch_up":
		return TouchUp{}, nil

	case "set_visible":
		var e SetVisible
		if err := unmarshalData(env, &e); err != nil {
			return nil, err
		}
		return e, nil

	case "set_auto_centering":
		var e SetAutoCentering
		if err := unmarshalData(env, &e); err != nil {
			return nil, err
		}
		if e.Stick == "" {
			return nil, fmt.Errorf("unmarshal %s: stick is required", env.Type)
		}
		return e, nil

	case "drone_takeoff":
		return DroneTakeOff{}, nil
	case "drone_land":
		return DroneLand{}, nil
	case "drone_hover":
		return DroneHover{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

func unmarshalData(env EventEnvelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("unmarshal %s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return nil
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope
	var payload any

	switch e := e.(type) {
	case TouchDown:
		env.Type, payload = "touch_down", e
	case TouchMove:
		env.Type, payload = "touch_move", e
	case TouchUp:
		env.Type = "touch_up"
	case SetVisible:
		env.Type, payload = "set_visible", e
	case SetAutoCentering:
		env.Type, payload = "set_auto_centering", e
	case DroneTakeOff:
		env.Type = "drone_takeoff"
	case DroneLand:
		env.Type = "drone_land"
	case DroneHover:
		env.Type = "drone_hover"
	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
