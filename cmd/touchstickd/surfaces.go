package main

import (
	"fmt"
	"image"
	"log/slog"

	"touchstick"
)

// stickSurface is the drawing target of one stick. Snapshot serves the
// frame.png endpoint.
type stickSurface interface {
	touchstick.Surface
	Snapshot() *image.RGBA
	Release()
}

// surfaceSet holds one surface per stick and whatever backs them.
type surfaceSet struct {
	surfaces map[string]stickSurface
	closer   func() error
}

// openSurfaces creates a surface for every layout region on the configured backend.
func openSurfaces(cfg *Config, layout Layout, logger *slog.Logger) (*surfaceSet, error) {
	set := &surfaceSet{surfaces: make(map[string]stickSurface)}
	interval := cfg.FrameInterval()

	switch cfg.Framebuffer.Surface {
	case "memory":
		for _, r := range layout.Regions() {
			ms := touchstick.NewMemorySurface(r.Size(), r.Size())
			ms.FrameInterval = interval
			set.surfaces[r.Name] = ms
		}
		logger.Info("using in-memory surfaces", "sticks", len(set.surfaces), "frame_interval", interval)

	case "fbdev":
		surfaces, closer, err := openFramebufferSurfaces(cfg.Framebuffer, layout, interval, logger)
		if err != nil {
			return nil, err
		}
		set.surfaces = surfaces
		set.closer = closer

	default:
		return nil, fmt.Errorf("unknown surface %q", cfg.Framebuffer.Surface)
	}
	return set, nil
}

// Get returns the surface of a stick, or nil.
func (s *surfaceSet) Get(name string) stickSurface {
	if s == nil {
		return nil
	}
	return s.surfaces[name]
}

// Close releases every surface, then the backend. The render loops must have
// stopped.
func (s *surfaceSet) Close() error {
	if s == nil {
		return nil
	}
	for _, surf := range s.surfaces {
		surf.Release()
	}
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
