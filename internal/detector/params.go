package detector

import (
	"fmt"
	"image"
)

// Params configures one multi-scale cascade pass.
// A zero MinSize or MaxSize leaves that bound unset.
type Params struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
	MaxSize      image.Point
}

func (p Params) String() string {
	return fmt.Sprintf("scale=%.2f neighbors=%d min=%dx%d max=%dx%d",
		p.ScaleFactor, p.MinNeighbors, p.MinSize.X, p.MinSize.Y, p.MaxSize.X, p.MaxSize.Y)
}

// FaceParams is the fixed face pass. It is not user-tunable.
func FaceParams() Params {
	return Params{ScaleFactor: 1.3, MinNeighbors: 5}
}

// StrictEyeParams is the first eye pass: tight neighbour count and a
// bounded window size.
func StrictEyeParams(sensitivity int) Params {
	return Params{
		ScaleFactor:  1.1,
		MinNeighbors: sensitivity,
		MinSize:      image.Pt(15, 15),
		MaxSize:      image.Pt(80, 80),
	}
}

// LenientEyeParams is the fallback eye pass used when the strict pass
// finds nothing.
func LenientEyeParams(sensitivity int) Params {
	return Params{
		ScaleFactor:  1.05,
		MinNeighbors: max(1, sensitivity-1),
		MinSize:      image.Pt(12, 12),
	}
}

// EyeTiers returns the ordered eye passes for a sensitivity.
func EyeTiers(sensitivity int) []Params {
	return []Params{StrictEyeParams(sensitivity), LenientEyeParams(sensitivity)}
}
