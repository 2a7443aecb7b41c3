package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Wire types (duplicated from touchstickd for a standalone binary)

type envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data"`
}

type stick struct {
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	AutoCentering *bool   `json:"auto_centering,omitempty"`
}

type droneState struct {
	Driver      string `json:"driver"`
	Flying      bool   `json:"flying"`
	LastCommand string `json:"last_command,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

type stateInit struct {
	Visible bool       `json:"visible"`
	Sticks  []stick    `json:"sticks"`
	Drone   droneState `json:"drone"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3001/ws", "touchstickd state websocket URL")
		raw   = flag.Bool("raw", false, "Print messages as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Pings and the close frame come from different goroutines.
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	// The daemon pings too; answer and extend the deadline.
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}

			switch messageType {
			case websocket.TextMessage:
				if *raw {
					fmt.Printf("%s\n", message)
					continue
				}
				fmt.Print(formatMessage(message))
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// formatMessage renders one state message as human-readable lines.
func formatMessage(message []byte) string {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
		return fmt.Sprintf("[TEXT] %s\n", message)
	}

	switch env.Type {
	case "state_init":
		var s stateInit
		if err := json.Unmarshal(env.Data, &s); err != nil {
			break
		}
		out := fmt.Sprintf("[INIT] visible=%v drone=%s\n", s.Visible, formatDrone(s.Drone))
		for _, st := range s.Sticks {
			out += "  " + formatStick(st) + "\n"
		}
		return out

	case "stick_changed":
		var st stick
		if err := json.Unmarshal(env.Data, &st); err != nil {
			break
		}
		return "[STICK] " + formatStick(st) + "\n"

	case "visibility_changed":
		var v struct {
			Visible bool `json:"visible"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			break
		}
		if v.Visible {
			return "[VISIBLE] shown\n"
		}
		return "[VISIBLE] hidden\n"

	case "drone_state":
		var ds droneState
		if err := json.Unmarshal(env.Data, &ds); err != nil {
			break
		}
		return "[DRONE] " + formatDrone(ds) + "\n"
	}

	return fmt.Sprintf("[%s] %s\n", env.Type, env.Data)
}

func formatStick(st stick) string {
	s := fmt.Sprintf("%-6s %-14s x=%+.3f y=%+.3f", st.Name, st.Role, st.X, st.Y)
	if st.AutoCentering != nil {
		s += fmt.Sprintf(" auto_centering=%v", *st.AutoCentering)
	}
	return s
}

func formatDrone(ds droneState) string {
	s := fmt.Sprintf("%s flying=%v", ds.Driver, ds.Flying)
	if ds.LastCommand != "" {
		s += " last=" + ds.LastCommand
	}
	if ds.LastError != "" {
		s += " error=" + ds.LastError
	}
	return s
}
