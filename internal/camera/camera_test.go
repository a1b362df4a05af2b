package camera

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestScriptedReplaysThenEnds(t *testing.T) {
	gray := types.NewGrayImage(image.NewGray(image.Rect(0, 0, 4, 4)))
	readErr := errors.New("usb unplugged")
	src := NewScripted(nil,
		Step{Gray: gray},
		Step{Err: readErr},
	)

	f, err := src.NextFrame()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq)

	_, err = src.NextFrame()
	assert.ErrorIs(t, err, readErr)

	_, err = src.NextFrame()
	assert.ErrorIs(t, err, types.ErrEndOfStream)

	require.NoError(t, src.Close())
	assert.Equal(t, 1, src.CloseCount())
	_, err = src.NextFrame()
	assert.ErrorIs(t, err, types.ErrReadFailure)
}

func TestImageDirReplaysInNameOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(solid(8, 6, color.White), filepath.Join(dir, "002.png")))
	require.NoError(t, imaging.Save(solid(8, 6, color.Black), filepath.Join(dir, "001.jpg")))

	f, err := os.Create(filepath.Join(dir, "003.webp"))
	require.NoError(t, err)
	require.NoError(t, webp.Encode(f, solid(8, 6, color.White), &webp.Options{Lossless: true}))
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	src, err := OpenImageDir(dir, false)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, 3, src.Len())

	var firsts []uint8
	for i := 0; i < 3; i++ {
		frame, err := src.NextFrame()
		require.NoError(t, err)
		g := frame.Gray.(*types.GrayImage)
		assert.Equal(t, image.Rect(0, 0, 8, 6), g.Bounds())
		firsts = append(firsts, g.Pix.GrayAt(0, 0).Y)

		img, err := frame.Color.ToImage()
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
		require.NoError(t, frame.Close())
	}
	assert.Less(t, firsts[0], uint8(30))
	assert.Greater(t, firsts[1], uint8(225))
	assert.Greater(t, firsts[2], uint8(225))

	_, err = src.NextFrame()
	assert.ErrorIs(t, err, types.ErrEndOfStream)
}

func TestImageDirLoops(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(solid(4, 4, color.White), filepath.Join(dir, "a.png")))

	src, err := OpenImageDir(dir, true)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		frame, err := src.NextFrame()
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), frame.Seq)
	}
}

func TestImageDirUnavailable(t *testing.T) {
	_, err := OpenImageDir(filepath.Join(t.TempDir(), "missing"), false)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)

	_, err = ImageDirOpener(t.TempDir(), false).Open(0)
	assert.ErrorIs(t, err, types.ErrSourceUnavailable)
}
