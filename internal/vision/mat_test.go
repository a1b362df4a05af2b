package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

func patternedGray(w, h int) *types.GrayImage {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = uint8((i*13 + i/w) % 251)
	}
	return types.NewGrayImage(g)
}

// countMismatches compares mat against src over the rectangle at origin.
func countMismatches(mat gocv.Mat, src *image.Gray, origin image.Point) int {
	n := 0
	for y := 0; y < mat.Rows(); y++ {
		for x := 0; x < mat.Cols(); x++ {
			if mat.GetUCharAt(y, x) != src.GrayAt(origin.X+x, origin.Y+y).Y {
				n++
			}
		}
	}
	return n
}

func TestToGrayMatFullImage(t *testing.T) {
	img := patternedGray(64, 48)

	mat, owned, err := toGrayMat(img)
	require.NoError(t, err)
	require.True(t, owned)
	defer mat.Close()

	assert.Equal(t, 48, mat.Rows())
	assert.Equal(t, 64, mat.Cols())
	assert.Zero(t, countMismatches(mat, img.Pix, image.Point{}))
}

func TestToGrayMatCroppedGrayImage(t *testing.T) {
	parent := patternedGray(320, 240)
	view, err := parent.Crop(types.Region{X: 100, Y: 60, W: 80, H: 80})
	require.NoError(t, err)

	mat, owned, err := toGrayMat(view)
	require.NoError(t, err)
	require.True(t, owned)
	defer mat.Close()

	assert.Equal(t, 80, mat.Rows())
	assert.Equal(t, 80, mat.Cols())
	assert.Zero(t, countMismatches(mat, parent.Pix, image.Pt(100, 60)))
}

func TestMatImageCropSharesPixels(t *testing.T) {
	parent := patternedGray(160, 120)
	full, err := gocv.ImageGrayToMatGray(parent.Pix)
	require.NoError(t, err)
	img := NewMatImage(full)
	defer img.Close()

	assert.Equal(t, image.Rect(0, 0, 160, 120), img.Bounds())

	view, err := img.Crop(types.Region{X: 30, Y: 20, W: 40, H: 24})
	require.NoError(t, err)
	defer view.Close()

	_, owned, err := toGrayMat(view)
	require.NoError(t, err)
	assert.False(t, owned, "mat views are used in place")
	assert.Equal(t, image.Rect(0, 0, 40, 24), view.Bounds())
	assert.Zero(t, countMismatches(view.(*MatImage).Mat(), parent.Pix, image.Pt(30, 20)))

	_, err = img.Crop(types.Region{X: 150, Y: 0, W: 20, H: 10})
	assert.Error(t, err)
}

func TestToGrayMatRejectsUnknownImage(t *testing.T) {
	_, _, err := toGrayMat(nil)
	assert.Error(t, err)
}
