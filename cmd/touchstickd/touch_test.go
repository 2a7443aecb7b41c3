package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

func abs(code uint16, v int32) inputEvent { return inputEvent{Type: EV_ABS, Code: code, Value: v} }
func key(code uint16, v int32) inputEvent { return inputEvent{Type: EV_KEY, Code: code, Value: v} }
func syn() inputEvent                     { return inputEvent{Type: EV_SYN, Code: SYN_REPORT} }

// feedAll runs events through the decoder and collects what it emits.
func feedAll(d *touchDecoder, evs ...inputEvent) []Event {
	var out []Event
	for _, ev := range evs {
		if e, ok := d.Feed(ev); ok {
			out = append(out, e)
		}
	}
	return out
}

var panel = calibration{MinX: 0, MaxX: 4000, MinY: 0, MaxY: 2000, Width: 800, Height: 480}

func TestCalibration_Scale(t *testing.T) {
	tests := []struct {
		name       string
		cal        calibration
		rawX, rawY int32
		wantX      float64
		wantY      float64
	}{
		{"plain", panel, 2000, 1000, 400, 240},
		{"invert", calibration{MaxX: 100, MaxY: 100, Width: 800, Height: 480, InvertX: true, InvertY: true}, 25, 75, 600, 120},
		{"swap", calibration{MaxX: 100, MaxY: 200, Width: 800, Height: 480, SwapXY: true}, 50, 100, 400, 240},
		{"unknown range passes raw", calibration{Width: 800, Height: 480}, 123, 45, 123, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.cal.scale(tt.rawX, tt.rawY)
			if x != tt.wantX || y != tt.wantY {
				t.Fatalf("scale(%d, %d) = (%v, %v), want (%v, %v)", tt.rawX, tt.rawY, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestTouchDecoder_SingleTouch(t *testing.T) {
	d := newTouchDecoder(panel)

	got := feedAll(d,
		key(BTN_TOUCH, 1), abs(ABS_X, 2000), abs(ABS_Y, 1000), syn(),
		abs(ABS_X, 4000), syn(),
		syn(), // no change, nothing emitted
		key(BTN_TOUCH, 0), syn(),
	)
	want := []Event{
		TouchDown{X: 400, Y: 240},
		TouchMove{X: 800, Y: 240},
		TouchUp{},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestTouchDecoder_MultitouchProtocol(t *testing.T) {
	d := newTouchDecoder(panel)

	got := feedAll(d,
		abs(ABS_MT_TRACKING_ID, 7), abs(ABS_MT_POSITION_X, 1000), abs(ABS_MT_POSITION_Y, 500), syn(),
		abs(ABS_MT_TRACKING_ID, -1), syn(),
	)
	if len(got) != 2 || got[0] != (TouchDown{X: 200, Y: 120}) || got[1] != (TouchUp{}) {
		t.Fatalf("got %#v", got)
	}
}

func expectEvents(t *testing.T, got, want []Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestTouchDecoder_SecondFingerIgnored(t *testing.T) {
	d := newTouchDecoder(panel)

	// First finger on the left stick.
	got := feedAll(d,
		abs(ABS_MT_SLOT, 0), abs(ABS_MT_TRACKING_ID, 1), abs(ABS_MT_POSITION_X, 400), abs(ABS_MT_POSITION_Y, 1000),
		key(BTN_TOUCH, 1), abs(ABS_X, 400), abs(ABS_Y, 1000), syn(),
	)
	expectEvents(t, got, []Event{TouchDown{X: 80, Y: 240}})

	// Second finger lands and lifts in slot 1.
	got = feedAll(d,
		abs(ABS_MT_SLOT, 1), abs(ABS_MT_TRACKING_ID, 2), abs(ABS_MT_POSITION_X, 3600), abs(ABS_MT_POSITION_Y, 1000), syn(),
		abs(ABS_MT_TRACKING_ID, -1), syn(),
	)
	expectEvents(t, got, nil)

	// The first finger still steers, then lifts.
	got = feedAll(d,
		abs(ABS_MT_SLOT, 0), abs(ABS_MT_POSITION_X, 800), abs(ABS_X, 800), syn(),
		abs(ABS_MT_TRACKING_ID, -1), key(BTN_TOUCH, 0), syn(),
	)
	expectEvents(t, got, []Event{TouchMove{X: 160, Y: 240}, TouchUp{}})
}

func TestTouchDecoder_FirstFingerLiftsWhileSecondHolds(t *testing.T) {
	d := newTouchDecoder(panel)

	got := feedAll(d,
		abs(ABS_MT_SLOT, 0), abs(ABS_MT_TRACKING_ID, 1), abs(ABS_MT_POSITION_X, 400), abs(ABS_MT_POSITION_Y, 1000), syn(),
		abs(ABS_MT_SLOT, 1), abs(ABS_MT_TRACKING_ID, 2), abs(ABS_MT_POSITION_X, 3600), abs(ABS_MT_POSITION_Y, 1000), syn(),
		// BTN_TOUCH stays set while slot 1 is down.
		abs(ABS_MT_SLOT, 0), abs(ABS_MT_TRACKING_ID, -1), syn(),
		abs(ABS_MT_SLOT, 1), abs(ABS_MT_POSITION_X, 3000), syn(),
	)
	expectEvents(t, got, []Event{TouchDown{X: 80, Y: 240}, TouchUp{}})

	// A new contact in slot 0 at the old spot: the kernel sends no position,
	// the slot's last one applies.
	got = feedAll(d,
		abs(ABS_MT_TRACKING_ID, -1), syn(), // slot 1 lifts
		abs(ABS_MT_SLOT, 0), abs(ABS_MT_TRACKING_ID, 3), syn(),
	)
	expectEvents(t, got, []Event{TouchDown{X: 80, Y: 240}})
}

func TestTouchDecoder_DownWaitsForPosition(t *testing.T) {
	d := newTouchDecoder(panel)

	if got := feedAll(d, key(BTN_TOUCH, 1), syn()); len(got) != 0 {
		t.Fatalf("down without position emitted %v", got)
	}
	got := feedAll(d, abs(ABS_X, 0), abs(ABS_Y, 0), syn())
	if len(got) != 1 || got[0] != (TouchDown{}) {
		t.Fatalf("got %#v, want TouchDown at origin", got)
	}
}

func TestTouchDecoder_SynDroppedDiscardsFrame(t *testing.T) {
	d := newTouchDecoder(panel)
	feedAll(d, key(BTN_TOUCH, 1), abs(ABS_X, 2000), abs(ABS_Y, 1000), syn())

	got := feedAll(d,
		abs(ABS_X, 3000),
		inputEvent{Type: EV_SYN, Code: SYN_DROPPED},
		abs(ABS_X, 100), // discarded
		syn(),           // ends the dropped report
		abs(ABS_Y, 2000), syn(),
	)
	if len(got) != 1 {
		t.Fatalf("got %#v, want one move", got)
	}
	mv, ok := got[0].(TouchMove)
	if !ok || mv.Y != 480 {
		t.Fatalf("got %#v", got[0])
	}
}

func TestReadInputEvents(t *testing.T) {
	var buf bytes.Buffer
	for _, ev := range []inputEvent{key(BTN_TOUCH, 1), abs(ABS_X, 42), syn()} {
		if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
			t.Fatalf("binary.Write: %v", err)
		}
	}

	events := make(chan deviceEvent, 8)
	readErr := make(chan error, 1)
	go readInputEvents(&buf, 3, events, readErr)

	for i, want := range []inputEvent{key(BTN_TOUCH, 1), abs(ABS_X, 42), syn()} {
		select {
		case de := <-events:
			if de.Dev != 3 || de.Ev != want {
				t.Fatalf("event %d = %+v, want dev 3 %+v", i, de, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
	select {
	case err := <-readErr:
		if !errors.Is(err, io.EOF) {
			t.Fatalf("readErr = %v, want EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for read error")
	}
}

func TestRunTouchInput_DecodesPerDevice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw := make(chan deviceEvent, 16)
	events := make(chan Event, 16)
	decoders := []*touchDecoder{newTouchDecoder(panel), newTouchDecoder(calibration{MaxX: 100, MaxY: 100, Width: 800, Height: 480})}
	go runTouchInput(ctx, raw, decoders, events)

	for _, ev := range []inputEvent{key(BTN_TOUCH, 1), abs(ABS_X, 50), abs(ABS_Y, 50), syn()} {
		raw <- deviceEvent{Dev: 1, Ev: ev}
	}
	raw <- deviceEvent{Dev: 9, Ev: syn()} // unknown device ignored

	select {
	case ev := <-events:
		if ev != (TouchDown{X: 400, Y: 240}) {
			t.Fatalf("got %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for touch event")
	}
}
