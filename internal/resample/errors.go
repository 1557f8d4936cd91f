package resample

import "errors"

var (
	// ErrInvalidDimensions is returned when a target width or height is not positive.
	ErrInvalidDimensions = errors.New("invalid target dimensions")

	// ErrUnsupportedPixelFormat is returned when pixels cannot be normalized
	// to RGB/RGBA for decimation.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")

	// ErrDegenerateCrop is returned when a center-crop would produce an empty image.
	ErrDegenerateCrop = errors.New("degenerate crop region")

	// ErrUnresolvedOrientation is returned when a frame still carries an EXIF
	// rotation that was not applied to its pixels.
	ErrUnresolvedOrientation = errors.New("unresolved orientation")

	// ErrEmptyFrame is returned for a frame without pixels.
	ErrEmptyFrame = errors.New("empty frame")
)
