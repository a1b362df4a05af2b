package vision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/detector"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/internal/logger"
	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// Model file names shipped with OpenCV.
const (
	FaceModel = "haarcascade_frontalface_default.xml"
	EyeModel  = "haarcascade_eye.xml"
)

// DefaultSearchDirs lists the usual OpenCV install locations.
var DefaultSearchDirs = []string{
	"./models/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
}

// Cascade is a detector.Matcher backed by an OpenCV cascade classifier.
type Cascade struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	path       string
}

// LoadCascade loads name (a file name or path) from the first directory
// that has it. Failures wrap types.ErrMatcherFault.
func LoadCascade(name string, searchDirs []string) (*Cascade, error) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		for _, dir := range searchDirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		classifier := gocv.NewCascadeClassifier()
		if classifier.Load(path) {
			logger.Info("Vision", "Loaded cascade %s", path)
			return &Cascade{classifier: classifier, path: path}, nil
		}
		classifier.Close()
		logger.Warn("Vision", "Cascade %s exists but failed to load", path)
	}
	return nil, fmt.Errorf("%w: cascade %s not found in %v", types.ErrMatcherFault, name, searchDirs)
}

// Path returns the file the classifier was loaded from.
func (c *Cascade) Path() string {
	return c.path
}

// DetectMultiScale runs the classifier. A panic inside the native call is
// reported as an error.
func (c *Cascade) DetectMultiScale(img types.Image, p detector.Params) (regions []types.Region, err error) {
	mat, owned, err := toGrayMat(img)
	if err != nil {
		return nil, err
	}
	if owned {
		defer mat.Close()
	}
	if mat.Empty() {
		return nil, fmt.Errorf("empty input")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			regions = nil
			err = fmt.Errorf("cascade %s panicked: %v", filepath.Base(c.path), r)
		}
	}()

	rects := c.classifier.DetectMultiScaleWithParams(mat, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize, p.MaxSize)
	regions = make([]types.Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, types.RegionFromRect(r))
	}
	return regions, nil
}

// Close releases the classifier.
func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classifier.Close()
}

// Matchers is the face/eye pair used by a detector.
type Matchers struct {
	Face *Cascade
	Eye  *Cascade
}

// LoadMatchers loads both cascades. Empty names fall back to the stock models.
func LoadMatchers(faceModel, eyeModel string, searchDirs []string) (*Matchers, error) {
	if faceModel == "" {
		faceModel = FaceModel
	}
	if eyeModel == "" {
		eyeModel = EyeModel
	}
	if len(searchDirs) == 0 {
		searchDirs = DefaultSearchDirs
	}
	face, err := LoadCascade(faceModel, searchDirs)
	if err != nil {
		return nil, err
	}
	eye, err := LoadCascade(eyeModel, searchDirs)
	if err != nil {
		face.Close()
		return nil, err
	}
	return &Matchers{Face: face, Eye: eye}, nil
}

// Close releases both cascades.
func (m *Matchers) Close() error {
	var errs []error
	if m.Face != nil {
		errs = append(errs, m.Face.Close())
	}
	if m.Eye != nil {
		errs = append(errs, m.Eye.Close())
	}
	return errors.Join(errs...)
}
