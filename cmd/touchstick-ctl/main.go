package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// ============================================================================
// touchstick-ctl - Command-line IPC Client
// ============================================================================
// Sends touches, visibility changes and drone commands to touchstickd.
//
// Usage:
//   touchstick-ctl down 320 300
//   touchstick-ctl move 300 280
//   touchstick-ctl up
//   touchstick-ctl hide
//   touchstick-ctl auto-center left off
//   touchstick-ctl takeoff
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/touchstick.sock)
// ============================================================================

// Events (duplicated from the daemon for a standalone binary)
type Event interface{}

type TouchDown struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TouchMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TouchUp struct{}

type SetVisible struct {
	Visible bool `json:"visible"`
}

type SetAutoCentering struct {
	Stick   string `json:"stick"`
	Enabled bool   `json:"enabled"`
}

type DroneTakeOff struct{}
type DroneLand struct{}
type DroneHover struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/touchstick.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		os.Exit(0)
	}

	ev, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := sendEvent(socketPath, ev); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// parseCommand turns command-line arguments into an event.
func parseCommand(args []string) (Event, error) {
	switch args[0] {
	case "down", "touch-down":
		x, y, err := parsePoint(args)
		if err != nil {
			return nil, err
		}
		return TouchDown{X: x, Y: y}, nil

	case "move", "touch-move":
		x, y, err := parsePoint(args)
		if err != nil {
			return nil, err
		}
		return TouchMove{X: x, Y: y}, nil

	case "up", "touch-up":
		return TouchUp{}, nil

	case "show":
		return SetVisible{Visible: true}, nil
	case "hide":
		return SetVisible{Visible: false}, nil

	case "auto-center", "auto-centering":
		if len(args) < 3 {
			return nil, fmt.Errorf("%s requires a stick name and on|off", args[0])
		}
		on, err := parseOnOff(args[2])
		if err != nil {
			return nil, err
		}
		return SetAutoCentering{Stick: args[1], Enabled: on}, nil

	case "takeoff":
		return DroneTakeOff{}, nil
	case "land":
		return DroneLand{}, nil
	case "hover":
		return DroneHover{}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func parsePoint(args []string) (float64, float64, error) {
	if len(args) < 3 {
		return 0, 0, fmt.Errorf("%s requires X and Y screen coordinates", args[0])
	}
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid X: %w", err)
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid Y: %w", err)
	}
	return x, y, nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func sendEvent(socketPath string, ev Event) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope
	var payload any

	switch e := ev.(type) {
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
		return nil, fmt.Errorf("unknown event type: %T", ev)
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

func printUsage() {
	fmt.Fprintf(os.Stderr, `touchstick-ctl - Control the touchstickd daemon via IPC

Usage:
  touchstick-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/touchstick.sock)

Commands:
  down X Y                    Touch the screen at X,Y (pixels)
  move X Y                    Move the current touch to X,Y
  up                          Lift the current touch
  show, hide                  Show or hide the joysticks
  auto-center STICK on|off    Toggle release-to-center for a stick
  takeoff, land, hover        Drone commands
  help, -h, --help            Show this help message

Examples:
  touchstick-ctl down 320 300
  touchstick-ctl auto-center left off
  touchstick-ctl -socket /run/touchstick.sock takeoff
`)
}
