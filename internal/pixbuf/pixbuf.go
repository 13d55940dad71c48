// Package pixbuf provides the owned raster buffer exchanged between the
// masking, placement and compositing code.
//
// Pixels are stored row-major with channels in R, G, B (, A) order. Alpha is
// straight (not premultiplied). Buffers are never shared between owners:
// anything handed across a component boundary is cloned first.
package pixbuf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/anthonynsimon/bild/transform"
)

const (
	// RGB is the channel count of an opaque buffer.
	RGB = 3
	// RGBA is the channel count of a buffer with an alpha channel.
	RGBA = 4
)

// ErrBadLayout is returned when a buffer's pixel slice does not match its
// declared dimensions.
var ErrBadLayout = errors.New("pixel buffer layout mismatch")

// Buffer is a 2D raster of 8-bit channels.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed buffer.
func New(width, height, channels int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// NewFilled allocates a buffer with every pixel set to c.
func NewFilled(width, height, channels int, c color.NRGBA) *Buffer {
	b := New(width, height, channels)
	for i := 0; i < len(b.Pix); i += channels {
		b.Pix[i] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		if channels == RGBA {
			b.Pix[i+3] = c.A
		}
	}
	return b
}

// FromImage copies img into a new buffer with the given channel count.
// A 3-channel conversion drops alpha without premultiplying, which matches
// how color-mode image readers treat transparent sources.
func FromImage(img image.Image, channels int) (*Buffer, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if channels != RGB && channels != RGBA {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(bounds)
		draw.Draw(nrgba, bounds, img, bounds.Min, draw.Src)
	}

	w, h := bounds.Dx(), bounds.Dy()
	b := New(w, h, channels)
	for y := 0; y < h; y++ {
		start := nrgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := nrgba.Pix[start : start+w*4]
		out := b.Pix[y*w*channels : (y+1)*w*channels]
		if channels == RGBA {
			copy(out, row)
			continue
		}
		for x := 0; x < w; x++ {
			out[x*3] = row[x*4]
			out[x*3+1] = row[x*4+1]
			out[x*3+2] = row[x*4+2]
		}
	}
	return b, nil
}

// Validate checks the buffer invariants.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrBadLayout)
	}
	if b.Channels != RGB && b.Channels != RGBA {
		return fmt.Errorf("%w: %d channels", ErrBadLayout, b.Channels)
	}
	if b.Width < 0 || b.Height < 0 || len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("%w: %dx%dx%d with %d bytes", ErrBadLayout, b.Width, b.Height, b.Channels, len(b.Pix))
	}
	return nil
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	if b == nil {
		return nil
	}
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Channels: b.Channels, Pix: pix}
}

// Bounds returns the buffer rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// InBounds reports whether (x, y) addresses a pixel.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Offset returns the index of the first channel of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * b.Channels
}

// At returns the pixel at (x, y). RGB buffers report full alpha.
func (b *Buffer) At(x, y int) color.NRGBA {
	if !b.InBounds(x, y) {
		return color.NRGBA{}
	}
	i := b.Offset(x, y)
	c := color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: 0xff}
	if b.Channels == RGBA {
		c.A = b.Pix[i+3]
	}
	return c
}

// Set writes the pixel at (x, y); out-of-range writes are ignored.
func (b *Buffer) Set(x, y int, c color.NRGBA) {
	if !b.InBounds(x, y) {
		return
	}
	i := b.Offset(x, y)
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	if b.Channels == RGBA {
		b.Pix[i+3] = c.A
	}
}

// Image returns a copy of the buffer as an image.NRGBA.
func (b *Buffer) Image() *image.NRGBA {
	img := image.NewNRGBA(b.Bounds())
	if b.Channels == RGBA {
		copy(img.Pix, b.Pix)
		return img
	}
	for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
		img.Pix[j] = b.Pix[i]
		img.Pix[j+1] = b.Pix[i+1]
		img.Pix[j+2] = b.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// WithChannels returns a copy converted to the given channel count. Adding
// an alpha channel makes every pixel opaque; removing it drops alpha.
func (b *Buffer) WithChannels(channels int) (*Buffer, error) {
	if channels == b.Channels {
		return b.Clone(), nil
	}
	return FromImage(b.Image(), channels)
}

// Resize returns a scaled copy for display. Nearest-neighbour keeps pixel
// edges crisp when zoomed in.
func (b *Buffer) Resize(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", width, height)
	}
	scaled := transform.Resize(b.Image(), width, height, transform.NearestNeighbor)
	return FromImage(scaled, b.Channels)
}
