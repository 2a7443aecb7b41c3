//go:build linux

package main

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"touchstick"
)

// fbBitfield mirrors struct fb_bitfield.
type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// fbVarScreeninfo mirrors struct fb_var_screeninfo.
type fbVarScreeninfo struct {
	Xres, Yres               uint32
	XresVirtual, YresVirtual uint32
	Xoffset, Yoffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp fbBitfield
	Nonstd, Activate         uint32
	Height, Width            uint32
	AccelFlags, Pixclock     uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HsyncLen, VsyncLen       uint32
	Sync, Vmode              uint32
	Rotate, Colorspace       uint32
	Reserved                 [4]uint32
}

// fbFixScreeninfo mirrors struct fb_fix_screeninfo.
type fbFixScreeninfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	Xpanstep     uint16
	Ypanstep     uint16
	Ywrapstep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

func ioctlPtr(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// framebuffer is a memory-mapped /dev/fbN.
type framebuffer struct {
	logger *slog.Logger
	f      *os.File

	mu     sync.Mutex
	mem    []byte
	closed bool

	width, height int
	stride        int
	bytesPerPixel int
	xoff, yoff    int
	redFirst      bool

	vsync       bool
	vsyncFailed atomic.Bool
}

// openFramebuffer maps the device and reads its pixel format. 32bpp (either
// byte order) and 16bpp RGB565 are supported.
func openFramebuffer(path string, vsync bool, logger *slog.Logger) (*framebuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var vinfo fbVarScreeninfo
	if err := ioctlPtr(f.Fd(), FBIOGET_VSCREENINFO, unsafe.Pointer(&vinfo)); err != nil {
		f.Close()
		return nil, fmt.Errorf("FBIOGET_VSCREENINFO %s: %w", path, err)
	}
	var finfo fbFixScreeninfo
	if err := ioctlPtr(f.Fd(), FBIOGET_FSCREENINFO, unsafe.Pointer(&finfo)); err != nil {
		f.Close()
		return nil, fmt.Errorf("FBIOGET_FSCREENINFO %s: %w", path, err)
	}

	if vinfo.BitsPerPixel != 32 && vinfo.BitsPerPixel != 16 {
		f.Close()
		return nil, fmt.Errorf("%s: unsupported %d bits per pixel", path, vinfo.BitsPerPixel)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(finfo.SmemLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	fb := &framebuffer{
		logger:        logger,
		f:             f,
		mem:           mem,
		width:         int(vinfo.Xres),
		height:        int(vinfo.Yres),
		stride:        int(finfo.LineLength),
		bytesPerPixel: int(vinfo.BitsPerPixel / 8),
		xoff:          int(vinfo.Xoffset),
		yoff:          int(vinfo.Yoffset),
		redFirst:      vinfo.Red.Offset == 0,
		vsync:         vsync,
	}
	logger.Info("framebuffer opened", "device", path,
		"width", fb.width, "height", fb.height, "bpp", vinfo.BitsPerPixel, "stride", fb.stride)
	return fb, nil
}

// blit writes a premultiplied frame at origin. Alpha composites over black.
func (fb *framebuffer) blit(src *image.RGBA, origin image.Point) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return
	}

	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := (fb.yoff+origin.Y+y)*fb.stride + (fb.xoff+origin.X)*fb.bytesPerPixel
		sp := src.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := src.Pix[sp], src.Pix[sp+1], src.Pix[sp+2]
			sp += 4
			d := row + x*fb.bytesPerPixel
			if d+fb.bytesPerPixel > len(fb.mem) {
				return
			}
			fb.putPixel(d, r, g, bl)
		}
	}
}

func (fb *framebuffer) putPixel(d int, r, g, b uint8) {
	if fb.bytesPerPixel == 2 {
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		fb.mem[d] = byte(v)
		fb.mem[d+1] = byte(v >> 8)
		return
	}
	if fb.redFirst {
		fb.mem[d], fb.mem[d+2] = r, b
	} else {
		fb.mem[d], fb.mem[d+2] = b, r
	}
	fb.mem[d+1] = g
	fb.mem[d+3] = 0xff
}

// clear blacks out a rectangle.
func (fb *framebuffer) clear(rect image.Rectangle) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := (fb.yoff+y)*fb.stride + (fb.xoff+rect.Min.X)*fb.bytesPerPixel
		for x := 0; x < rect.Dx(); x++ {
			d := row + x*fb.bytesPerPixel
			if d+fb.bytesPerPixel > len(fb.mem) {
				return
			}
			fb.putPixel(d, 0, 0, 0)
		}
	}
}

// waitVSync blocks until the next vertical blank. It reports false once the
// driver has refused it, after which callers pace themselves.
func (fb *framebuffer) waitVSync() bool {
	if !fb.vsync || fb.vsyncFailed.Load() {
		return false
	}
	if err := unix.IoctlSetPointerInt(int(fb.f.Fd()), FBIO_WAITFORVSYNC, 0); err != nil {
		if fb.vsyncFailed.CompareAndSwap(false, true) {
			fb.logger.Warn("vsync unavailable, falling back to frame interval", "error", err)
		}
		return false
	}
	return true
}

// Close unmaps the framebuffer. Blits after Close are dropped.
func (fb *framebuffer) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return nil
	}
	fb.closed = true
	err := unix.Munmap(fb.mem)
	fb.mem = nil
	if cerr := fb.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// fbRegion is one stick's part of the framebuffer. It draws into in-memory
// buffers and copies each posted frame to the screen.
type fbRegion struct {
	*touchstick.MemorySurface
	fb   *framebuffer
	rect image.Rectangle
}

func (fb *framebuffer) region(r Region, interval time.Duration) (*fbRegion, error) {
	rect := image.Rect(int(r.Rect.X.Lo), int(r.Rect.Y.Lo), int(r.Rect.X.Hi), int(r.Rect.Y.Hi))
	if !rect.In(image.Rect(0, 0, fb.width, fb.height)) {
		return nil, fmt.Errorf("stick %q %v is outside the %dx%d framebuffer", r.Name, rect, fb.width, fb.height)
	}

	ms := touchstick.NewMemorySurface(rect.Dx(), rect.Dy())
	if !fb.vsync {
		ms.FrameInterval = interval
	}
	ms.OnPost(func(front *image.RGBA) {
		fb.blit(front, rect.Min)
		if fb.vsync && !fb.waitVSync() && interval > 0 {
			time.Sleep(interval)
		}
	})
	return &fbRegion{MemorySurface: ms, fb: fb, rect: rect}, nil
}

// Release stops drawing and blanks the region.
func (r *fbRegion) Release() {
	r.MemorySurface.Release()
	r.fb.clear(r.rect)
}

func openFramebufferSurfaces(cfg FramebufferConfig, layout Layout, interval time.Duration, logger *slog.Logger) (map[string]stickSurface, func() error, error) {
	fb, err := openFramebuffer(cfg.Device, cfg.VSync, logger)
	if err != nil {
		return nil, nil, err
	}

	surfaces := make(map[string]stickSurface)
	for _, r := range layout.Regions() {
		reg, err := fb.region(r, interval)
		if err != nil {
			fb.Close()
			return nil, nil, err
		}
		fb.clear(reg.rect)
		surfaces[r.Name] = reg
	}
	return surfaces, fb.Close, nil
}
