package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFrameEndpoint(t *testing.T) {
	d := startTestDaemon(t, testConfig())
	srv := httptest.NewServer(newHTTPMux(nil, d.surfaces, discardLogger()))
	defer srv.Close()

	// Nothing rendered while hidden.
	resp, err := http.Get(srv.URL + "/sticks/left/frame.png")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status before first frame = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/sticks/middle/frame.png")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status for unknown stick = %d, want 404", resp.StatusCode)
	}

	d.events <- SetVisible{Visible: true}
	left := d.memorySurface(t, "left")
	waitUntil(t, time.Second, func() bool { return left.Frames() > 0 }, "no frame rendered")

	resp, err = http.Get(srv.URL + "/sticks/left/frame.png")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d content-type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 280 || b.Dy() != 280 {
		t.Fatalf("frame bounds = %v, want 280x280", b)
	}
}

func TestStateWebSocket_InitThenUpdates(t *testing.T) {
	d := startTestDaemon(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws := NewServer(discardLogger(), d.events, ServerConfig{})
	go ws.Hub().Run(ctx)
	go RunBroadcaster(ctx, ws.Hub(), d.broadcasts, discardLogger())

	srv := httptest.NewServer(newHTTPMux(ws, d.surfaces, discardLogger()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var init struct {
		Type string            `json:"type"`
		Data wsMessageSnapshot `json:"data"`
	}
	if err := conn.ReadJSON(&init); err != nil {
		t.Fatalf("read state_init: %v", err)
	}
	if init.Type != "state_init" {
		t.Fatalf("first message = %q, want state_init", init.Type)
	}
	if init.Data.Visible || len(init.Data.Sticks) != 2 || init.Data.Drone.Driver != "mock" {
		t.Fatalf("state_init = %+v", init.Data)
	}
	if init.Data.Sticks[0].Name != "left" || init.Data.Sticks[0].AutoCentering == nil || !*init.Data.Sticks[0].AutoCentering {
		t.Fatalf("left = %+v", init.Data.Sticks[0])
	}

	d.events <- SetVisible{Visible: true}
	d.events <- TouchDown{X: 320, Y: 300}

	seen := map[string]json.RawMessage{}
	for len(seen) < 2 {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read update (seen %v): %v", seen, err)
		}
		seen[msg.Type] = msg.Data
	}
	if string(seen["visibility_changed"]) != `{"visible":true}` {
		t.Fatalf("visibility_changed = %s", seen["visibility_changed"])
	}
	var st wsStick
	if err := json.Unmarshal(seen["stick_changed"], &st); err != nil {
		t.Fatalf("decode stick_changed %s: %v", seen["stick_changed"], err)
	}
	if st.Name != "left" || st.Role != RoleThrottleYaw || !approx(st.X, 1) {
		t.Fatalf("stick_changed = %+v", st)
	}
}

func TestServeHTTP_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("pong")) })
	go func() { done <- serveHTTP(ctx, ln, mux, discardLogger()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	if body.String() != "pong" {
		t.Fatalf("body = %q", body.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serveHTTP: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}
