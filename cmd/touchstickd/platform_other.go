//go:build !linux

package main

import (
	"errors"
	"log/slog"
	"os"
	"time"
)

// Touch devices and framebuffers are Linux-only; elsewhere the daemon runs
// with memory surfaces and IPC input.
var errLinuxOnly = errors.New("not supported on this platform")

func readInputEventsEpoll(files []*os.File, events chan<- deviceEvent, readErr chan<- error) {
	readErr <- errLinuxOnly
}

func grabDevice(f *os.File) error {
	return errLinuxOnly
}

func queryAbsRange(f *os.File, code uint16) (min, max int32, err error) {
	return 0, 0, errLinuxOnly
}

func openFramebufferSurfaces(cfg FramebufferConfig, layout Layout, interval time.Duration, logger *slog.Logger) (map[string]stickSurface, func() error, error) {
	return nil, nil, errLinuxOnly
}
