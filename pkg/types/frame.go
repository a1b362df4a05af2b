package types

import (
	"errors"
	"image"
	"io"
	"time"
)

// Region is an axis-aligned rectangle in pixel coordinates.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// RegionFromRect converts an image.Rectangle into a Region.
func RegionFromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Offset translates the region by (dx, dy).
func (r Region) Offset(dx, dy int) Region {
	return Region{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Image is a single-channel image the matchers run on.
// Crop returns a view that must be closed by the caller.
type Image interface {
	Bounds() image.Rectangle
	Crop(r Region) (Image, error)
	Close() error
}

// Renderable is anything that can produce a colour image for presentation.
// gocv.Mat satisfies it.
type Renderable interface {
	ToImage() (image.Image, error)
}

// StaticImage adapts an in-memory image.Image to Renderable.
type StaticImage struct {
	Img image.Image
}

// ToImage returns the wrapped image.
func (s StaticImage) ToImage() (image.Image, error) {
	if s.Img == nil {
		return nil, errors.New("static image is empty")
	}
	return s.Img, nil
}

// Frame is one captured sample. It is only valid during a single loop
// iteration; the loop closes it once every sink has seen it.
type Frame struct {
	Seq       uint64    // Sequential frame number within the session
	Timestamp time.Time // Capture time
	Gray      Image     // Matcher input
	Color     Renderable
}

// Close releases the frame's native buffers.
func (f *Frame) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	if f.Gray != nil {
		errs = append(errs, f.Gray.Close())
	}
	if c, ok := f.Color.(io.Closer); ok && c != nil {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
