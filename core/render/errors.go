// Package render — errors.
package render

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrRendererUnavailable is returned by Check when the renderer cannot run at all.
	ErrRendererUnavailable = errors.New("renderer unavailable")
	// ErrOutputMissing is returned when the renderer reported success but wrote no image.
	ErrOutputMissing = errors.New("output image missing")
	// ErrNothingToBundle is returned when a PDF bundle is requested for a run without images.
	ErrNothingToBundle = errors.New("no rendered images to bundle")
)

// Error represents one failed render job.
type Error struct {
	Output  string // target image path
	Message string
	Detail  string // renderer diagnostics (stderr, HTTP body)
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("render %s: %s", filepath.Base(e.Output), e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}
