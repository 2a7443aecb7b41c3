package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// deviceEvent tags a raw event with the index of the device it came from.
type deviceEvent struct {
	Dev int
	Ev  inputEvent
}

// readInputEvents reads input events from one device and sends them to a channel.
// It runs in a dedicated goroutine and blocks on read.
func readInputEvents(r io.Reader, dev int, events chan<- deviceEvent, readErr chan<- error) {
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			readErr <- err
			return
		}

		reader.Reset(buf)
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			continue
		}

		events <- deviceEvent{Dev: dev, Ev: ev}
	}
}

// openTouchDevices opens every configured device and, if asked, grabs it
// exclusively. On error the devices opened so far are closed.
func openTouchDevices(cfg TouchConfig, logger *slog.Logger) ([]*os.File, error) {
	files := make([]*os.File, 0, len(cfg.Devices))
	for _, path := range cfg.Devices {
		f, err := os.Open(path)
		if err != nil {
			closeAll(files)
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		files = append(files, f)

		if cfg.Grab {
			if err := grabDevice(f); err != nil {
				closeAll(files)
				return nil, fmt.Errorf("grab %s: %w", path, err)
			}
			logger.Debug("touch device grabbed", "device", path)
		}
	}
	return files, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// runTouchInput feeds raw events through one touchDecoder per device and sends
// the resulting touch events to the daemon loop. It returns when ctx is done
// or the raw channel closes.
func runTouchInput(ctx context.Context, raw <-chan deviceEvent, decoders []*touchDecoder, events chan<- Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case de, ok := <-raw:
			if !ok {
				return
			}
			if de.Dev < 0 || de.Dev >= len(decoders) {
				continue
			}
			ev, ok := decoders[de.Dev].Feed(de.Ev)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
