package main

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "touchstick.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.FrameInterval(); got != 16*time.Millisecond {
		t.Fatalf("FrameInterval = %v, want 16ms", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
touch:
  devices: [/dev/input/event3]
  swap_xy: true
screen:
  width: 1024
  height: 600
framebuffer:
  surface: memory
sticks:
  - name: yaw
    role: throttle_yaw
    x: 0
    y: 300
    size: 300
    auto_centering: false
    knob_color: "#f00"
  - name: pitch
    role: pitch_roll
    x: 724
    y: 300
    size: 300
drone:
  driver: tello
logging:
  level: debug
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(cfg.Touch.Devices) != 1 || cfg.Touch.Devices[0] != "/dev/input/event3" || !cfg.Touch.SwapXY {
		t.Fatalf("touch = %+v", cfg.Touch)
	}
	if cfg.Screen.Width != 1024 || cfg.Framebuffer.Surface != "memory" {
		t.Fatalf("screen/framebuffer = %+v / %+v", cfg.Screen, cfg.Framebuffer)
	}
	// Unset fields keep their defaults.
	if cfg.Framebuffer.Device != "/dev/fb0" || cfg.Drone.Address != "192.168.10.1" || cfg.IPC.SocketPath != "/tmp/touchstick.sock" {
		t.Fatalf("defaults lost: fb=%q drone=%q ipc=%q", cfg.Framebuffer.Device, cfg.Drone.Address, cfg.IPC.SocketPath)
	}
	if len(cfg.Sticks) != 2 || cfg.Sticks[0].Name != "yaw" {
		t.Fatalf("sticks = %+v", cfg.Sticks)
	}
	if ac := cfg.Sticks[0].AutoCentering; ac == nil || *ac {
		t.Fatalf("yaw auto_centering = %v, want false", ac)
	}
	if cfg.Sticks[1].AutoCentering != nil {
		t.Fatalf("pitch auto_centering should be unset")
	}
}

func TestLoadConfigFile_Rejects(t *testing.T) {
	tests := map[string]struct {
		body string
		want string
	}{
		"unknown field":     {"logging:\n  level: info\n  colour: true\n", "colour"},
		"trailing document": {"logging:\n  level: info\n---\nlogging:\n  level: debug\n", "trailing document"},
		"trailing scalar":   {"logging:\n  level: info\n---\nhello\n", "trailing document"},
		"bad yaml":          {"sticks: [\n", "decode config yaml"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"overlap", func(c *Config) { c.Sticks[1].X = 200 }, "overlaps"},
		{"duplicate name", func(c *Config) { c.Sticks[1].Name = "left" }, "used twice"},
		{"duplicate role", func(c *Config) { c.Sticks[1].Role = RoleThrottleYaw }, "already taken"},
		{"bad role", func(c *Config) { c.Sticks[0].Role = "camera" }, "role must be"},
		{"off screen", func(c *Config) { c.Sticks[1].X = 600 }, "does not fit"},
		{"zero size", func(c *Config) { c.Sticks[0].Size = 0 }, "size must be > 0"},
		{"no sticks", func(c *Config) { c.Sticks = nil }, "sticks must not be empty"},
		{"bad color", func(c *Config) { c.Sticks[0].BaseColor = "#12" }, "base_color"},
		{"bad surface", func(c *Config) { c.Framebuffer.Surface = "x11" }, "framebuffer.surface"},
		{"bad driver", func(c *Config) { c.Drone.Driver = "mavlink" }, "drone.driver"},
		{"tello port", func(c *Config) { c.Drone.Driver = "tello"; c.Drone.ControlPort = 0 }, "control_port"},
		{"ws port", func(c *Config) { c.WebSocket.Port = 70000 }, "websocket.port"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"touch range", func(c *Config) { c.Touch.MinX = 10 }, "touch.min_x"},
		{"empty device", func(c *Config) { c.Touch.Devices = []string{""} }, "touch.devices[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	devs := "/dev/input/event1,/dev/input/event2"
	surface := "memory"
	port := 0
	FlagOverrides{TouchDevice: &devs, Surface: &surface, WSPort: &port}.Apply(&cfg)

	if len(cfg.Touch.Devices) != 2 || cfg.Touch.Devices[1] != "/dev/input/event2" {
		t.Fatalf("devices = %v", cfg.Touch.Devices)
	}
	if cfg.Framebuffer.Surface != "memory" || cfg.WebSocket.Port != 0 {
		t.Fatalf("surface=%q port=%d", cfg.Framebuffer.Surface, cfg.WebSocket.Port)
	}
	if cfg.Drone.Driver != "none" || cfg.Logging.Level != "info" {
		t.Fatalf("unset overrides changed config: %+v", cfg)
	}

	none := ""
	FlagOverrides{TouchDevice: &none}.Apply(&cfg)
	if cfg.Touch.Devices != nil {
		t.Fatalf("empty -touch-device should disable touch, got %v", cfg.Touch.Devices)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#fff", color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{"#102030", color.NRGBA{0x10, 0x20, 0x30, 0xff}},
		{"10203040", color.NRGBA{0x10, 0x20, 0x30, 0x40}},
	}
	for _, tt := range tests {
		got, err := parseHexColor(tt.in)
		if err != nil {
			t.Fatalf("parseHexColor(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "#12345", "#gggggg"} {
		if _, err := parseHexColor(bad); err == nil {
			t.Fatalf("parseHexColor(%q): expected error", bad)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/knob.png"); got != filepath.Join(home, "knob.png") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/abs/knob.png"); got != "/abs/knob.png" {
		t.Fatalf("ExpandPath = %q", got)
	}
}
