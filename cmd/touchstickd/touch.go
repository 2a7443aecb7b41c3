package main

import (
	"log/slog"
	"os"
)

// calibration maps raw absolute axis values onto screen pixels.
type calibration struct {
	MinX, MaxX int32
	MinY, MaxY int32

	Width, Height int

	SwapXY  bool
	InvertX bool
	InvertY bool
}

// scale converts a raw position into screen coordinates. An unknown or empty
// raw range passes the raw value through unchanged.
func (c calibration) scale(rawX, rawY int32) (float64, float64) {
	nx, okX := normalize(rawX, c.MinX, c.MaxX)
	ny, okY := normalize(rawY, c.MinY, c.MaxY)
	if c.SwapXY {
		nx, ny = ny, nx
		okX, okY = okY, okX
		rawX, rawY = rawY, rawX
	}
	if c.InvertX {
		nx = 1 - nx
	}
	if c.InvertY {
		ny = 1 - ny
	}

	x, y := float64(rawX), float64(rawY)
	if okX {
		x = nx * float64(c.Width)
	}
	if okY {
		y = ny * float64(c.Height)
	}
	return x, y
}

func normalize(v, min, max int32) (float64, bool) {
	if max <= min {
		return 0, false
	}
	return float64(v-min) / float64(max-min), true
}

// touchDecoder turns a device's evdev stream into TouchDown, TouchMove and
// TouchUp events. Only the first contact is tracked: on multitouch panels the
// decoder locks onto that contact's slot and ignores other fingers until it
// lifts. Events are committed on SYN_REPORT; everything up to a
// SYN_DROPPED-terminated report is discarded.
type touchDecoder struct {
	cal calibration

	// Single-touch axes, used until the device reports MT positions.
	rawX, rawY int32
	haveX      bool
	haveY      bool
	btnTouch   bool

	mtPos   bool // device reports ABS_MT_POSITION_*
	mtIDs   bool // device reports ABS_MT_TRACKING_ID
	slot    int32
	tracked int32 // slot of the followed contact, -1 when none
	slots   map[int32]*slotPos

	down         bool // contact state last emitted
	lastX, lastY int32
	dropping     bool
}

// slotPos is the last position reported for one MT slot. The kernel only
// sends values that changed for the slot, so positions outlive contacts.
type slotPos struct {
	x, y         int32
	haveX, haveY bool
}

func newTouchDecoder(cal calibration) *touchDecoder {
	return &touchDecoder{cal: cal, tracked: -1, slots: make(map[int32]*slotPos)}
}

// Feed consumes one raw event and returns a touch event when a frame completes one.
func (d *touchDecoder) Feed(ev inputEvent) (Event, bool) {
	if d.dropping {
		if ev.Type == EV_SYN && ev.Code == SYN_REPORT {
			d.dropping = false
		}
		return nil, false
	}

	switch ev.Type {
	case EV_ABS:
		switch ev.Code {
		case ABS_X:
			d.rawX, d.haveX = ev.Value, true
		case ABS_Y:
			d.rawY, d.haveY = ev.Value, true
		case ABS_MT_SLOT:
			d.slot = ev.Value
		case ABS_MT_POSITION_X:
			d.mtPos = true
			p := d.slotPos(d.slot)
			p.x, p.haveX = ev.Value, true
		case ABS_MT_POSITION_Y:
			d.mtPos = true
			p := d.slotPos(d.slot)
			p.y, p.haveY = ev.Value, true
		case ABS_MT_TRACKING_ID:
			d.mtIDs = true
			switch {
			case ev.Value != -1 && d.tracked == -1:
				d.tracked = d.slot
			case ev.Value == -1 && d.slot == d.tracked:
				d.tracked = -1
			}
		}

	case EV_KEY:
		if ev.Code == BTN_TOUCH {
			d.btnTouch = ev.Value != 0
		}

	case EV_SYN:
		switch ev.Code {
		case SYN_DROPPED:
			d.dropping = true
		case SYN_REPORT:
			return d.commit()
		}
	}
	return nil, false
}

func (d *touchDecoder) slotPos(slot int32) *slotPos {
	p, ok := d.slots[slot]
	if !ok {
		p = &slotPos{}
		d.slots[slot] = p
	}
	return p
}

// touching reports whether the followed contact is down. BTN_TOUCH stays set
// while any finger is down, so tracking IDs take precedence when present.
func (d *touchDecoder) touching() bool {
	if d.mtIDs {
		return d.tracked != -1
	}
	return d.btnTouch
}

// position returns the raw position of the followed contact.
func (d *touchDecoder) position() (int32, int32, bool) {
	if !d.mtPos {
		return d.rawX, d.rawY, d.haveX && d.haveY
	}
	slot := d.slot
	if d.mtIDs {
		slot = d.tracked
	}
	p, ok := d.slots[slot]
	if !ok {
		return 0, 0, false
	}
	return p.x, p.y, p.haveX && p.haveY
}

func (d *touchDecoder) commit() (Event, bool) {
	touching := d.touching()

	switch {
	case touching && !d.down:
		x, y, ok := d.position()
		if !ok {
			return nil, false
		}
		d.down = true
		d.lastX, d.lastY = x, y
		sx, sy := d.cal.scale(x, y)
		return TouchDown{X: sx, Y: sy}, true

	case touching && d.down:
		x, y, ok := d.position()
		if !ok || (x == d.lastX && y == d.lastY) {
			return nil, false
		}
		d.lastX, d.lastY = x, y
		sx, sy := d.cal.scale(x, y)
		return TouchMove{X: sx, Y: sy}, true

	case !touching && d.down:
		d.down = false
		return TouchUp{}, true
	}
	return nil, false
}

// calibrationFor builds a device calibration from the config, filling an
// unset raw range from the device itself.
func calibrationFor(f *os.File, touch TouchConfig, screen ScreenConfig, logger *slog.Logger) calibration {
	cal := calibration{
		MinX: touch.MinX, MaxX: touch.MaxX,
		MinY: touch.MinY, MaxY: touch.MaxY,
		Width: screen.Width, Height: screen.Height,
		SwapXY: touch.SwapXY, InvertX: touch.InvertX, InvertY: touch.InvertY,
	}
	if cal.MinX == 0 && cal.MaxX == 0 {
		if min, max, err := queryAbsRange(f, ABS_X); err == nil {
			cal.MinX, cal.MaxX = min, max
		} else {
			logger.Warn("touch X range unknown, using raw coordinates", "device", f.Name(), "error", err)
		}
	}
	if cal.MinY == 0 && cal.MaxY == 0 {
		if min, max, err := queryAbsRange(f, ABS_Y); err == nil {
			cal.MinY, cal.MaxY = min, max
		} else {
			logger.Warn("touch Y range unknown, using raw coordinates", "device", f.Name(), "error", err)
		}
	}
	logger.Debug("touch calibration", "device", f.Name(),
		"min_x", cal.MinX, "max_x", cal.MaxX, "min_y", cal.MinY, "max_y", cal.MaxY,
		"swap_xy", cal.SwapXY, "invert_x", cal.InvertX, "invert_y", cal.InvertY)
	return cal
}
