package types

import "errors"

// Failure classes that end a monitoring session. Callers wrap them with
// fmt.Errorf("...: %w", ...) and compare with errors.Is.
var (
	// ErrSourceUnavailable means the camera could not be opened.
	ErrSourceUnavailable = errors.New("camera source unavailable")
	// ErrReadFailure means the camera was open but returned no usable frame.
	ErrReadFailure = errors.New("frame read failure")
	// ErrMatcherFault means a face or eye matcher failed on a frame.
	ErrMatcherFault = errors.New("matcher fault")
	// ErrEndOfStream is returned by finite sources (files, image sets)
	// once every frame has been delivered.
	ErrEndOfStream = errors.New("end of stream")
)

// FailureKind names the failure class of err for status reporting.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrReadFailure):
		return "read_failure"
	case errors.Is(err, ErrMatcherFault):
		return "matcher_fault"
	case errors.Is(err, ErrEndOfStream):
		return "end_of_stream"
	default:
		return "internal"
	}
}
