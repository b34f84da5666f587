package cloudcover

import (
	"errors"
	"fmt"
)

// ImageLoadError reports an image that is missing, unreadable or corrupt.
// The affected sample is skipped.
type ImageLoadError struct {
	Path string
	Err  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %s: %v", e.Path, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// OutOfBoundsError reports a projected pixel outside the image extent.
type OutOfBoundsError struct {
	Point  GeoPoint
	Pixel  PixelCoordinate
	Width  int
	Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("point %s projects to pixel (%d,%d) outside %dx%d image",
		e.Point, e.Pixel.X, e.Pixel.Y, e.Width, e.Height)
}

// ProjectionError reports a point or configuration the converter cannot handle.
// It is fatal: no image will ever map correctly.
type ProjectionError struct {
	Point  GeoPoint
	Reason string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("project %s: %s", e.Point, e.Reason)
}

// IsSkippable reports whether err only affects a single sample.
func IsSkippable(err error) bool {
	var loadErr *ImageLoadError
	var boundsErr *OutOfBoundsError
	return errors.As(err, &loadErr) || errors.As(err, &boundsErr)
}
