package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("touchstickd v%s\n", version)
	fmt.Println("On-screen virtual joysticks for touch panels, with drone output")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  touchstickd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Draws one joystick per configured screen region, tracks touches from")
	fmt.Println("  Linux input devices and publishes each stick's vector to a drone driver")
	fmt.Println("  and to websocket clients.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (built-in defaults when omitted)")
	fmt.Println()
	fmt.Println("  -touch-device string")
	fmt.Println("        Comma-separated touch input devices (default \"/dev/input/event0\")")
	fmt.Println("        An empty value disables touch input (IPC only)")
	fmt.Println()
	fmt.Println("  -fb-device string")
	fmt.Println("        Framebuffer device (default \"/dev/fb0\")")
	fmt.Println()
	fmt.Println("  -surface string")
	fmt.Println("        Drawing surface: fbdev|memory (default \"fbdev\")")
	fmt.Println()
	fmt.Println("  -drone string")
	fmt.Println("        Drone driver: none|tello|gobot (default \"none\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/touchstick.sock\")")
	fmt.Println()
	fmt.Println("  -ws-port int")
	fmt.Println("        HTTP/websocket port, 0 disables (default 3001)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with the built-in two-stick layout")
	fmt.Println("  touchstickd")
	fmt.Println()
	fmt.Println("  # Fly a Tello")
	fmt.Println("  touchstickd -config ~/.config/touchstick.yaml -drone tello")
	fmt.Println()
	fmt.Println("  # Headless, driven over IPC, frames served at /sticks/{name}/frame.png")
	fmt.Println("  touchstickd -surface memory -touch-device \"\"")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the touch device (root or the 'input' group)")
	fmt.Println("  - Requires write access to the framebuffer (root or the 'video' group)")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath    = flag.String("config", "", "YAML config file")
		touchDevice   = flag.String("touch-device", "", "Comma-separated touch input devices")
		fbDevice      = flag.String("fb-device", "", "Framebuffer device")
		surface       = flag.String("surface", "", "Drawing surface: fbdev|memory")
		droneDriver   = flag.String("drone", "", "Drone driver: none|tello|gobot")
		ipcSocketPath = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		wsPort        = flag.Int("ws-port", 0, "HTTP/websocket port, 0 disables")
		logLevelStr   = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showHelp      = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}

	// Only flags given on the command line override the config.
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "touch-device":
			overrides.TouchDevice = touchDevice
		case "fb-device":
			overrides.FBDevice = fbDevice
		case "surface":
			overrides.Surface = surface
		case "drone":
			overrides.DroneDriver = droneDriver
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "ws-port":
			overrides.WSPort = wsPort
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("touchstickd failed", "error", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal or a fatal input error.
func run(cfg Config, logger *slog.Logger) error {
	logger.Debug("starting touchstickd", "version", version)

	layout, err := NewLayout(cfg.Sticks)
	if err != nil {
		return err
	}

	// Open touch devices before anything visible happens.
	files, err := openTouchDevices(cfg.Touch, logger)
	if err != nil {
		return fmt.Errorf("%w (tip: run as root or add user to 'input' group)", err)
	}
	defer closeAll(files)

	drone, err := newDrone(cfg.Drone, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := drone.Close(); err != nil {
			logger.Warn("drone close failed", "error", err)
		}
	}()

	surfaces, err := openSurfaces(&cfg, layout, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := surfaces.Close(); err != nil {
			logger.Warn("surface close failed", "error", err)
		}
	}()

	broadcasts := make(chan StateBroadcast, defaultBroadcastQueue)
	events := make(chan Event, defaultEventQueue)

	sticks, err := newStickSet(cfg.Sticks, surfaces, drone, broadcasts, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ------------------------------------------------------------------------
	// IPC
	// ------------------------------------------------------------------------
	go func() {
		if err := runIPCServer(ctx, cfg.IPC.SocketPath, events, logger); err != nil {
			logger.Error("IPC server error", "error", err)
		}
	}()

	// ------------------------------------------------------------------------
	// HTTP: state websocket + frame snapshots
	// ------------------------------------------------------------------------
	if cfg.WebSocket.Port > 0 {
		ws := NewServer(logger, events, ServerConfig{})
		go ws.Hub().Run(ctx)
		go RunBroadcaster(ctx, ws.Hub(), broadcasts, logger)

		mux := newHTTPMux(ws, surfaces, logger)
		go func() {
			if err := runHTTPServer(ctx, cfg.WebSocket.Port, mux, logger); err != nil {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	} else {
		go drainBroadcasts(ctx, broadcasts)
	}

	// ------------------------------------------------------------------------
	// Touch input
	// ------------------------------------------------------------------------
	readErr := make(chan error, len(files))
	if len(files) > 0 {
		raw := make(chan deviceEvent, 64)
		decoders := make([]*touchDecoder, len(files))
		for i, f := range files {
			decoders[i] = newTouchDecoder(calibrationFor(f, cfg.Touch, cfg.Screen, logger))
		}
		if len(files) == 1 {
			go readInputEvents(files[0], 0, raw, readErr)
		} else {
			go readInputEventsEpoll(files, raw, readErr)
		}
		go runTouchInput(ctx, raw, decoders, events)
	}
	go func() {
		select {
		case err := <-readErr:
			logger.Error("input reader stopped", "error", err)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("listening",
		"touch_devices", cfg.Touch.Devices,
		"surface", cfg.Framebuffer.Surface,
		"sticks", len(cfg.Sticks),
		"drone", cfg.Drone.Driver,
		"ipc", cfg.IPC.SocketPath,
		"ws_port", cfg.WebSocket.Port)

	// Show the sticks once the daemon loop is running.
	events <- SetVisible{Visible: true}

	state := &DaemonState{Drone: DroneState{Driver: cfg.Drone.Driver}}
	runDaemon(ctx, events, layout, sticks, drone, broadcasts, state, logger)

	logger.Info("shutting down")

	// A finger still down gets its up, then the render loops stop.
	if state.Capture != "" {
		if err := sticks.Touch(CmdStickTouch{Stick: state.Capture, Phase: phaseUp}); err != nil {
			logger.Warn("release on shutdown failed", "error", err)
		}
	}
	sticks.Close()
	drone.SetSticks(Vector{}, Vector{})
	if err := drone.Hover(); err != nil {
		logger.Warn("drone hover on shutdown failed", "error", err)
	}
	return nil
}

// drainBroadcasts discards broadcasts when no websocket server consumes them.
func drainBroadcasts(ctx context.Context, src <-chan StateBroadcast) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-src:
		}
	}
}
