package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the touchstick daemon.
//
// Defaults and validation live here so the rest of the daemon can assume a
// well-formed config. Flags only override a handful of fields.
type Config struct {
	// Touchscreen input
	Touch TouchConfig `yaml:"touch"`

	// Screen geometry that touch coordinates and stick regions are expressed in
	Screen ScreenConfig `yaml:"screen"`

	// Where joysticks are drawn
	Framebuffer FramebufferConfig `yaml:"framebuffer"`

	// On-screen joysticks
	Sticks []StickConfig `yaml:"sticks"`

	// Drone that receives stick vectors
	Drone DroneConfig `yaml:"drone"`

	// IPC configuration (touchstick-ctl)
	IPC IPCConfig `yaml:"ipc"`

	// Websocket state server and debug endpoints
	WebSocket WebSocketConfig `yaml:"websocket"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type TouchConfig struct {
	Devices []string `yaml:"devices,omitempty"` // evdev devices; empty means IPC-only input
	Grab    bool     `yaml:"grab"`              // EVIOCGRAB the devices so the console does not see touches

	SwapXY  bool `yaml:"swap_xy"`
	InvertX bool `yaml:"invert_x"`
	InvertY bool `yaml:"invert_y"`

	// Raw axis range. Zero min and max means "ask the device".
	MinX int32 `yaml:"min_x,omitempty"`
	MaxX int32 `yaml:"max_x,omitempty"`
	MinY int32 `yaml:"min_y,omitempty"`
	MaxY int32 `yaml:"max_y,omitempty"`
}

type ScreenConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type FramebufferConfig struct {
	Surface         string `yaml:"surface"` // "fbdev" or "memory"
	Device          string `yaml:"device"`
	VSync           bool   `yaml:"vsync"`
	FrameIntervalMS int    `yaml:"frame_interval_ms"`
}

type StickConfig struct {
	Name          string `yaml:"name"`
	Role          Role   `yaml:"role"`
	X             int    `yaml:"x"`
	Y             int    `yaml:"y"`
	Size          int    `yaml:"size"`
	AutoCentering *bool  `yaml:"auto_centering,omitempty"`

	KnobImage string `yaml:"knob_image,omitempty"`
	KnobColor string `yaml:"knob_color,omitempty"` // #rrggbb or #rrggbbaa
	BaseColor string `yaml:"base_color,omitempty"`
}

type DroneConfig struct {
	Driver      string `yaml:"driver"` // "none", "tello" or "gobot"
	Address     string `yaml:"address"`
	ControlPort int    `yaml:"control_port"`
	LocalPort   int    `yaml:"local_port"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type WebSocketConfig struct {
	Port int `yaml:"port"` // 0 disables the HTTP server
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults: two Mode-2
// sticks on an 800x480 panel, no drone.
func DefaultConfig() Config {
	return Config{
		Touch: TouchConfig{
			Devices: []string{"/dev/input/event0"},
		},
		Screen: ScreenConfig{
			Width:  defaultScreenWidth,
			Height: defaultScreenHeight,
		},
		Framebuffer: FramebufferConfig{
			Surface:         "fbdev",
			Device:          "/dev/fb0",
			VSync:           true,
			FrameIntervalMS: int(defaultFrameInterval / time.Millisecond),
		},
		Sticks: []StickConfig{
			{Name: "left", Role: RoleThrottleYaw, X: 40, Y: 160, Size: 280},
			{Name: "right", Role: RolePitchRoll, X: 480, Y: 160, Size: 280},
		},
		Drone: DroneConfig{
			Driver:      "none",
			Address:     "192.168.10.1",
			ControlPort: 8889,
			LocalPort:   8800,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/touchstick.sock",
		},
		WebSocket: WebSocketConfig{
			Port: 3001,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields and trailing documents are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Anything but EOF means a second document, whatever it holds.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds flag values that win over the config file.
// A nil pointer means the flag was not given.
type FlagOverrides struct {
	TouchDevice   *string
	FBDevice      *string
	Surface       *string
	DroneDriver   *string
	IPCSocketPath *string
	WSPort        *int
	LogLevel      *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.TouchDevice != nil {
		if *o.TouchDevice == "" {
			cfg.Touch.Devices = nil
		} else {
			cfg.Touch.Devices = strings.Split(*o.TouchDevice, ",")
		}
	}
	if o.FBDevice != nil {
		cfg.Framebuffer.Device = *o.FBDevice
	}
	if o.Surface != nil {
		cfg.Framebuffer.Surface = *o.Surface
	}
	if o.DroneDriver != nil {
		cfg.Drone.Driver = *o.DroneDriver
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.WSPort != nil {
		cfg.WebSocket.Port = *o.WSPort
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides have been applied.
func (c *Config) Validate() error {
	for i, dev := range c.Touch.Devices {
		if dev == "" {
			return fmt.Errorf("touch.devices[%d] is empty", i)
		}
	}
	if c.Touch.MinX > c.Touch.MaxX || c.Touch.MinY > c.Touch.MaxY {
		return errors.New("touch.min_x/min_y must be <= touch.max_x/max_y")
	}

	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return errors.New("screen.width and screen.height must be > 0")
	}

	switch c.Framebuffer.Surface {
	case "fbdev":
		if c.Framebuffer.Device == "" {
			return errors.New("framebuffer.device must not be empty for the fbdev surface")
		}
	case "memory":
	default:
		return fmt.Errorf("framebuffer.surface must be %q or %q", "fbdev", "memory")
	}
	if c.Framebuffer.FrameIntervalMS < 0 {
		return errors.New("framebuffer.frame_interval_ms must be >= 0")
	}

	if len(c.Sticks) == 0 {
		return errors.New("sticks must not be empty")
	}
	names := make(map[string]bool, len(c.Sticks))
	roles := make(map[Role]string, len(c.Sticks))
	for i, s := range c.Sticks {
		if s.Name == "" {
			return fmt.Errorf("sticks[%d].name is empty", i)
		}
		if names[s.Name] {
			return fmt.Errorf("sticks[%d].name %q is used twice", i, s.Name)
		}
		names[s.Name] = true

		if !s.Role.valid() {
			return fmt.Errorf("sticks[%d].role must be %q or %q", i, RoleThrottleYaw, RolePitchRoll)
		}
		if other, ok := roles[s.Role]; ok {
			return fmt.Errorf("sticks[%d].role %q is already taken by stick %q", i, s.Role, other)
		}
		roles[s.Role] = s.Name

		if s.Size <= 0 {
			return fmt.Errorf("sticks[%d].size must be > 0", i)
		}
		if s.X < 0 || s.Y < 0 || s.X+s.Size > c.Screen.Width || s.Y+s.Size > c.Screen.Height {
			return fmt.Errorf("sticks[%d] (%s) does not fit on the %dx%d screen", i, s.Name, c.Screen.Width, c.Screen.Height)
		}
		for field, v := range map[string]string{"knob_color": s.KnobColor, "base_color": s.BaseColor} {
			if v == "" {
				continue
			}
			if _, err := parseHexColor(v); err != nil {
				return fmt.Errorf("sticks[%d].%s: %w", i, field, err)
			}
		}
	}
	if _, err := NewLayout(c.Sticks); err != nil {
		return err
	}

	switch c.Drone.Driver {
	case "none":
	case "tello", "gobot":
		if c.Drone.LocalPort <= 0 || c.Drone.LocalPort > 65535 {
			return errors.New("drone.local_port must be between 1 and 65535")
		}
		if c.Drone.Driver == "tello" {
			if c.Drone.Address == "" {
				return errors.New("drone.address must not be empty for the tello driver")
			}
			if c.Drone.ControlPort <= 0 || c.Drone.ControlPort > 65535 {
				return errors.New("drone.control_port must be between 1 and 65535")
			}
		}
	default:
		return fmt.Errorf("drone.driver must be one of: none, tello, gobot")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.WebSocket.Port < 0 || c.WebSocket.Port > 65535 {
		return errors.New("websocket.port must be between 0 and 65535")
	}

	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// FrameInterval is the render pacing used when vsync is off or unavailable.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Framebuffer.FrameIntervalMS) * time.Millisecond
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
