//go:build linux

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// readInputEventsEpoll reads from several touch devices in one goroutine using
// epoll. The kernel wakes us only when a device has data.
func readInputEventsEpoll(files []*os.File, events chan<- deviceEvent, readErr chan<- error) {
	if len(files) == 0 {
		readErr <- fmt.Errorf("no input devices provided")
		return
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	fdToDev := make(map[int]int, len(files))

	for i, f := range files {
		fd := int(f.Fd())
		fdToDev[fd] = i

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			readErr <- fmt.Errorf("epoll_ctl_add fd=%d: %w", fd, err)
			return
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		n, err := unix.EpollWait(epfd, epollEvents, -1)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			dev := fdToDev[fd]
			f := files[dev]

			// A touchscreen that goes away is fatal; the daemon cannot steer without it.
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- fmt.Errorf("device error/hangup: %s (fd=%d)", f.Name(), fd)
				return
			}

			if _, err := f.Read(buf); err != nil {
				readErr <- fmt.Errorf("read from %s: %w", f.Name(), err)
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
}

// grabDevice takes the device exclusively (EVIOCGRAB).
func grabDevice(f *os.File) error {
	return unix.IoctlSetInt(int(f.Fd()), EVIOCGRAB, 1)
}

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// queryAbsRange asks the device for the range of one absolute axis (EVIOCGABS).
func queryAbsRange(f *os.File, code uint16) (min, max int32, err error) {
	var info absInfo
	req := uintptr(eviocgabsBase + uint(code))
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return 0, 0, fmt.Errorf("EVIOCGABS(%#x): %w", code, errno)
	}
	return info.Minimum, info.Maximum, nil
}
