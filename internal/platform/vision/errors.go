package vision

import "errors"

// Error definitions for the vision package.
var (
	// ErrInvalidConfig is returned when the annotator configuration is unusable.
	ErrInvalidConfig = errors.New("invalid vision configuration")

	// ErrRecognitionFailed wraps any backend failure: network, quota,
	// or a per-image error status in the response.
	ErrRecognitionFailed = errors.New("image recognition failed")
)
