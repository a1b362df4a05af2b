package camera

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ImageDir replays still images from a directory in name order, one per
// frame. Useful for reproducing a recorded run without a camera.
type ImageDir struct {
	mu     sync.Mutex
	paths  []string
	next   int
	loop   bool
	seq    uint64
	closed bool
}

// OpenImageDir lists the images in dir. With loop set the set repeats
// forever, otherwise the source ends after the last image.
func OpenImageDir(dir string, loop bool) (*ImageDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", types.ErrSourceUnavailable, dir)
	}
	sort.Strings(paths)
	return &ImageDir{paths: paths, loop: loop}, nil
}

// ImageDirOpener ignores the camera index and replays dir.
func ImageDirOpener(dir string, loop bool) Opener {
	return OpenerFunc(func(int) (Source, error) {
		return OpenImageDir(dir, loop)
	})
}

// NextFrame decodes the next image.
func (d *ImageDir) NextFrame() (*types.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("%w: image set closed", types.ErrReadFailure)
	}
	if d.next >= len(d.paths) {
		if !d.loop {
			return nil, types.ErrEndOfStream
		}
		d.next = 0
	}
	path := d.paths[d.next]
	d.next++

	img, err := loadImage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrReadFailure, filepath.Base(path), err)
	}
	d.seq++
	return &types.Frame{
		Seq:       d.seq,
		Timestamp: time.Now(),
		Gray:      types.NewGrayImage(toGray(img)),
		Color:     types.StaticImage{Img: img},
	}, nil
}

// Close stops the replay.
func (d *ImageDir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Len returns the number of images in the set.
func (d *ImageDir) Len() int {
	return len(d.paths)
}

func loadImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return webp.Decode(f)
	}
	return imaging.Open(path, imaging.AutoOrientation(true))
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	src := imaging.Grayscale(img)
	gray := image.NewGray(src.Bounds())
	draw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, draw.Src)
	return gray
}
