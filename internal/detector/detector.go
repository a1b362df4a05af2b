// Package detector locates faces and eyes in a grayscale frame by running
// two cascade matchers, retrying the eye matcher with looser parameters
// when the strict pass finds nothing.
package detector

import (
	"errors"
	"fmt"

	"github.com/Nithyasri486/SmartRailShield--AI-Powered-safety-and-violation-detection/pkg/types"
)

// Matcher finds candidate regions in a grayscale image.
type Matcher interface {
	DetectMultiScale(img types.Image, p Params) ([]types.Region, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(img types.Image, p Params) ([]types.Region, error)

// DetectMultiScale calls f.
func (f MatcherFunc) DetectMultiScale(img types.Image, p Params) ([]types.Region, error) {
	return f(img, p)
}

// Face is one detected face with its eyes.
// Eye regions are relative to the face region.
type Face struct {
	Region types.Region   `json:"region"`
	Eyes   []types.Region `json:"eyes"`
	Tier   int            `json:"tier"` // index of the eye pass that produced Eyes, -1 if none
}

// Result is everything found in one frame, in matcher order.
type Result struct {
	Faces []Face `json:"faces"`
}

// EyesOpen is true when at least one face has at least one visible eye.
// No faces means eyes are not considered open.
func (r Result) EyesOpen() bool {
	for _, f := range r.Faces {
		if len(f.Eyes) > 0 {
			return true
		}
	}
	return false
}

// EyesDetected counts eyes over all faces.
func (r Result) EyesDetected() int {
	n := 0
	for _, f := range r.Faces {
		n += len(f.Eyes)
	}
	return n
}

// Detector runs the face pass and the tiered eye passes.
type Detector struct {
	faces    Matcher
	eyes     Matcher
	facePass Params
	eyePass  []Params
}

// Option customizes a Detector.
type Option func(*Detector)

// WithEyeTiers overrides the ordered eye passes.
func WithEyeTiers(tiers ...Params) Option {
	return func(d *Detector) { d.eyePass = append([]Params(nil), tiers...) }
}

// New creates a Detector for the given eye sensitivity.
func New(faces, eyes Matcher, sensitivity int, opts ...Option) (*Detector, error) {
	if faces == nil || eyes == nil {
		return nil, errors.New("detector: face and eye matchers are required")
	}
	if sensitivity < 1 {
		return nil, fmt.Errorf("detector: sensitivity must be >= 1, got %d", sensitivity)
	}
	d := &Detector{
		faces:    faces,
		eyes:     eyes,
		facePass: FaceParams(),
		eyePass:  EyeTiers(sensitivity),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// EyeTiers returns a copy of the configured eye passes.
func (d *Detector) EyeTiers() []Params {
	return append([]Params(nil), d.eyePass...)
}

// Detect runs the matchers over gray. The input is never modified.
// Any matcher error is wrapped in types.ErrMatcherFault.
func (d *Detector) Detect(gray types.Image) (Result, error) {
	faces, err := d.faces.DetectMultiScale(gray, d.facePass)
	if err != nil {
		return Result{}, fmt.Errorf("%w: face pass: %w", types.ErrMatcherFault, err)
	}

	result := Result{Faces: make([]Face, 0, len(faces))}
	for _, region := range faces {
		face, err := d.detectEyes(gray, region)
		if err != nil {
			return Result{}, err
		}
		result.Faces = append(result.Faces, face)
	}
	return result, nil
}

func (d *Detector) detectEyes(gray types.Image, region types.Region) (Face, error) {
	face := Face{Region: region, Tier: -1}

	crop, err := gray.Crop(region)
	if err != nil {
		return face, fmt.Errorf("%w: crop face %+v: %w", types.ErrMatcherFault, region, err)
	}
	defer crop.Close()

	for i, p := range d.eyePass {
		eyes, err := d.eyes.DetectMultiScale(crop, p)
		if err != nil {
			return face, fmt.Errorf("%w: eye pass %d: %w", types.ErrMatcherFault, i, err)
		}
		if len(eyes) > 0 {
			face.Eyes = eyes
			face.Tier = i
			return face, nil
		}
	}
	return face, nil
}
