package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_ABS = 0x03

	SYN_REPORT  = 0
	SYN_DROPPED = 3

	BTN_TOUCH = 0x14a

	ABS_X              = 0x00
	ABS_Y              = 0x01
	ABS_MT_SLOT        = 0x2f
	ABS_MT_POSITION_X  = 0x35
	ABS_MT_POSITION_Y  = 0x36
	ABS_MT_TRACKING_ID = 0x39
)

// evdev and fbdev ioctl requests
const (
	EVIOCGRAB = 0x40044590
	// EVIOCGABS(abs) = _IOR('E', 0x40 + abs, struct input_absinfo)
	eviocgabsBase = 0x80184540

	FBIOGET_VSCREENINFO = 0x4600
	FBIOGET_FSCREENINFO = 0x4602
	FBIO_WAITFORVSYNC   = 0x40044620
)

const (
	defaultScreenWidth  = 800
	defaultScreenHeight = 480

	defaultFrameInterval = time.Second / 60

	// wsStickCoalesceWindow bounds how often one stick's vector is pushed to websocket clients.
	wsStickCoalesceWindow = 20 * time.Millisecond

	defaultEventQueue     = 256
	defaultBroadcastQueue = 256
)
