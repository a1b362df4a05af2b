// Package vision holds the OpenCV-backed pieces: cascade matchers, camera
// and file capture, and image-set replay.
package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// MatImage wraps a single-channel gocv.Mat as a types.Image.
type MatImage struct {
	mat gocv.Mat
}

// NewMatImage takes ownership of mat.
func NewMatImage(mat gocv.Mat) *MatImage {
	return &MatImage{mat: mat}
}

// Mat exposes the underlying matrix. It stays owned by the MatImage.
func (m *MatImage) Mat() gocv.Mat {
	return m.mat
}

// Bounds returns the matrix size as a rectangle anchored at the origin.
func (m *MatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.mat.Cols(), m.mat.Rows())
}

// Crop returns a region of interest sharing pixel data with m.
func (m *MatImage) Crop(r types.Region) (types.Image, error) {
	if m.mat.Empty() {
		return nil, errors.New("crop on empty mat")
	}
	rect := r.Rect()
	if r.Empty() || !rect.In(m.Bounds()) {
		return nil, fmt.Errorf("crop %v outside %v", rect, m.Bounds())
	}
	return &MatImage{mat: m.mat.Region(rect)}, nil
}

// Close frees the native matrix.
func (m *MatImage) Close() error {
	return m.mat.Close()
}

// toGrayMat returns a gray Mat for img and whether the caller must close it.
func toGrayMat(img types.Image) (gocv.Mat, bool, error) {
	switch v := img.(type) {
	case *MatImage:
		return v.mat, false, nil
	case *types.GrayImage:
		mat, err := gocv.ImageGrayToMatGray(v.Packed())
		if err != nil {
			return gocv.Mat{}, false, fmt.Errorf("convert gray image: %w", err)
		}
		return mat, true, nil
	default:
		return gocv.Mat{}, false, fmt.Errorf("unsupported image type %T", img)
	}
}
