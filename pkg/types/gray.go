package types

import (
	"fmt"
	"image"
)

// GrayImage is an in-memory Image backed by *image.Gray.
type GrayImage struct {
	Pix    *image.Gray
	closed bool
}

// NewGrayImage wraps g.
func NewGrayImage(g *image.Gray) *GrayImage {
	return &GrayImage{Pix: g}
}

// Bounds returns the pixel bounds.
func (g *GrayImage) Bounds() image.Rectangle {
	return g.Pix.Bounds()
}

// Crop returns a view of r, which must lie within the image.
func (g *GrayImage) Crop(r Region) (Image, error) {
	if g.closed {
		return nil, fmt.Errorf("crop on closed image")
	}
	rect := r.Rect().Add(g.Pix.Bounds().Min)
	if r.Empty() || !rect.In(g.Pix.Bounds()) {
		return nil, fmt.Errorf("crop %v outside %v", rect, g.Pix.Bounds())
	}
	sub := g.Pix.SubImage(rect).(*image.Gray)
	return &GrayImage{Pix: sub}, nil
}

// Packed returns the pixels as a contiguous image anchored at the origin,
// the layout row-major consumers such as gocv expect. Views produced by
// Crop keep the parent's stride, so they are copied row by row.
func (g *GrayImage) Packed() *image.Gray {
	src := g.Pix
	b := src.Bounds()
	if b.Min == (image.Point{}) && src.Stride == b.Dx() && len(src.Pix) == b.Dx()*b.Dy() {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[off:off+b.Dx()])
	}
	return dst
}

// Close marks the image unusable.
func (g *GrayImage) Close() error {
	g.closed = true
	return nil
}

// Closed reports whether Close was called.
func (g *GrayImage) Closed() bool {
	return g.closed
}
