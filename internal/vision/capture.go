package vision

import (
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/camera"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// Capture reads frames from a camera device, video file or stream URL.
type Capture struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	name   string
	finite bool
	seq    uint64
	closed bool
}

// OpenDevice opens a local camera by index with a one-frame buffer so each
// read returns the most recent frame.
func OpenDevice(index int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %w", types.ErrSourceUnavailable, index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: camera %d is not opened", types.ErrSourceUnavailable, index)
	}
	vc.Set(gocv.VideoCaptureBufferSize, 1)
	logger.Info("Vision", "Opened camera %d", index)
	return &Capture{vc: vc, name: fmt.Sprintf("camera %d", index)}, nil
}

// OpenFile opens a video file or stream URL. Reaching the end of a file
// yields types.ErrEndOfStream.
func OpenFile(path string) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrSourceUnavailable, path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s is not opened", types.ErrSourceUnavailable, path)
	}
	logger.Info("Vision", "Opened video %s", path)
	return &Capture{vc: vc, name: path, finite: true}, nil
}

// DeviceOpener opens local cameras by index.
func DeviceOpener() camera.Opener {
	return camera.OpenerFunc(func(index int) (camera.Source, error) {
		return OpenDevice(index)
	})
}

// FileOpener ignores the camera index and always opens path.
func FileOpener(path string) camera.Opener {
	return camera.OpenerFunc(func(int) (camera.Source, error) {
		return OpenFile(path)
	})
}

// NextFrame reads one BGR frame and derives its grayscale twin.
func (c *Capture) NextFrame() (*types.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%w: %s closed", types.ErrReadFailure, c.name)
	}

	color := gocv.NewMat()
	if ok := c.vc.Read(&color); !ok || color.Empty() {
		color.Close()
		if c.finite {
			return nil, types.ErrEndOfStream
		}
		return nil, fmt.Errorf("%w: %s returned no frame", types.ErrReadFailure, c.name)
	}

	gray := gocv.NewMat()
	gocv.CvtColor(color, &gray, gocv.ColorBGRToGray)

	c.seq++
	return &types.Frame{
		Seq:       c.seq,
		Timestamp: time.Now(),
		Gray:      NewMatImage(gray),
		Color:     &colorMat{mat: color},
	}, nil
}

// Close releases the device. It is safe to call more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	logger.Info("Vision", "Released %s", c.name)
	return c.vc.Close()
}

// colorMat renders a BGR Mat on demand.
type colorMat struct {
	mat gocv.Mat
}

func (c *colorMat) ToImage() (image.Image, error) {
	return c.mat.ToImage()
}

func (c *colorMat) Close() error {
	return c.mat.Close()
}
