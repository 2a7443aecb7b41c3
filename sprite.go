package touchstick

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// bezierCircle is the cubic control-point distance for a quarter circle of radius 1.
const bezierCircle = 0.5522847498

// Style controls how the control is drawn.
type Style struct {
	// KnobColor fills the default round knob.
	KnobColor color.Color
	// BaseColor fills the circular base under the knob. Nil draws no base.
	BaseColor color.Color
	// KnobImage, when set, replaces the round knob. It is scaled to the knob size.
	KnobImage image.Image
}

// DefaultStyle is a light knob over a translucent base.
func DefaultStyle() Style {
	return Style{
		KnobColor: color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xe0},
		BaseColor: color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0x60},
	}
}

// LoadKnobImage decodes a knob picture from disk.
func LoadKnobImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knob image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode knob image %s: %w", path, err)
	}
	return img, nil
}

// painter draws the base and knob. It caches sprites per size and is only
// used from the render goroutine.
type painter struct {
	style Style

	knob     *image.RGBA
	knobSize int
	base     *image.RGBA
	baseSize int
}

func newPainter(style Style) *painter {
	if style.KnobColor == nil && style.KnobImage == nil {
		style.KnobColor = DefaultStyle().KnobColor
	}
	return &painter{style: style}
}

// paint draws one frame. The frame must already be cleared.
func (p *painter) paint(frame *image.RGBA, k Knob, backgroundSize int) {
	if p.style.BaseColor != nil && backgroundSize > 0 {
		if p.base == nil || p.baseSize != backgroundSize {
			p.base = disc(backgroundSize, p.style.BaseColor)
			p.baseSize = backgroundSize
		}
		draw.Draw(frame, p.base.Bounds(), p.base, image.Point{}, draw.Over)
	}

	if k.Size <= 0 {
		return
	}
	if p.knob == nil || p.knobSize != k.Size {
		p.knob = p.knobSprite(k.Size)
		p.knobSize = k.Size
	}
	dst := image.Rect(k.X, k.Y, k.X+k.Size, k.Y+k.Size)
	draw.Draw(frame, dst, p.knob, image.Point{}, draw.Over)
}

func (p *painter) knobSprite(size int) *image.RGBA {
	if p.style.KnobImage == nil {
		return disc(size, p.style.KnobColor)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	src := p.style.KnobImage
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// disc rasterises an anti-aliased filled circle that touches all four edges.
func disc(size int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float32(size) / 2
	k := r * bezierCircle

	z := vector.NewRasterizer(size, size)
	z.MoveTo(r+r, r)
	z.CubeTo(r+r, r+k, r+k, r+r, r, r+r)
	z.CubeTo(r-k, r+r, 0, r+k, 0, r)
	z.CubeTo(0, r-k, r-k, 0, r, 0)
	z.CubeTo(r+k, 0, r+r, r-k, r+r, r)
	z.ClosePath()
	z.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{})
	return img
}
