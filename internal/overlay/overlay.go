// Package overlay draws detection boxes and the status banner onto a copy
// of a camera frame and encodes it for the MJPEG feed.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/detector"
)

var (
	faceColor  = color.RGBA{B: 255, A: 255}
	eyeColor   = color.RGBA{G: 255, A: 255}
	alertColor = color.RGBA{R: 255, A: 255}
	textBG     = color.RGBA{A: 200}
	textFG     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// AlertBanner is drawn across the top while the alert is active.
const AlertBanner = "DROWSINESS ALERT!"

// Options controls rendering.
type Options struct {
	MaxWidth    int // frames wider than this are downscaled; 0 keeps size
	JPEGQuality int
	Thickness   int
	Caption     string // optional footer text, e.g. frame number and time
}

// DefaultOptions renders at native size with a 3px stroke.
func DefaultOptions() Options {
	return Options{JPEGQuality: 80, Thickness: 3}
}

// Annotation is what to draw on a frame.
type Annotation struct {
	Faces    []detector.Face
	Alerting bool
}

// Render returns an annotated copy of src; src is not modified.
func Render(src image.Image, a Annotation, opts Options) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	stroke := opts.Thickness
	if stroke <= 0 {
		stroke = 2
	}

	for _, f := range a.Faces {
		drawRect(dst, f.Region.Rect(), faceColor, stroke)
		for _, eye := range f.Eyes {
			drawRect(dst, eye.Offset(f.Region.X, f.Region.Y).Rect(), eyeColor, max(1, stroke-1))
		}
	}

	if a.Alerting {
		drawRect(dst, dst.Bounds(), alertColor, stroke*2)
		drawLabel(dst, image.Pt(10, 10), AlertBanner, alertColor, textFG, 2)
	}
	if opts.Caption != "" {
		drawLabel(dst, image.Pt(10, dst.Bounds().Dy()-24), opts.Caption, textBG, textFG, 1)
	}

	if opts.MaxWidth > 0 && dst.Bounds().Dx() > opts.MaxWidth {
		resized := imaging.Resize(dst, opts.MaxWidth, 0, imaging.Linear)
		out := image.NewRGBA(resized.Bounds())
		draw.Draw(out, out.Bounds(), resized, image.Point{}, draw.Src)
		return out
	}
	return dst
}

// EncodeJPEG encodes img at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderJPEG renders and encodes in one step.
func RenderJPEG(src image.Image, a Annotation, opts Options) ([]byte, error) {
	return EncodeJPEG(Render(src, a, opts), opts.JPEGQuality)
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	u := image.NewUniform(c)
	t := min(thickness, r.Dx()/2+1, r.Dy()/2+1)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, u, image.Point{}, draw.Over)
	}
}

// drawLabel writes text at pt (top-left) over a filled box. scale
// enlarges the 7x13 bitmap font by pixel replication.
func drawLabel(dst *image.RGBA, pt image.Point, text string, bg, fg color.Color, scale int) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	h := face.Metrics().Height.Ceil()
	if w == 0 {
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w+8, h+6))
	draw.Draw(glyphs, glyphs.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(4, 3+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	var label image.Image = glyphs
	if scale > 1 {
		label = imaging.Resize(glyphs, glyphs.Bounds().Dx()*scale, 0, imaging.NearestNeighbor)
	}
	target := label.Bounds().Sub(label.Bounds().Min).Add(pt)
	draw.Draw(dst, target, label, label.Bounds().Min, draw.Over)
}
