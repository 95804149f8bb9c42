package cmdbuf

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfResources is returned when the pool of native command
	// buffers is exhausted.
	ErrOutOfResources = errors.New("cmdbuf: out of resources")

	// ErrNotRecording is returned by Finish on a buffer that is not
	// recording.
	ErrNotRecording = errors.New("cmdbuf: command buffer is not recording")

	// ErrDeviceLost is reported by a fence whose command buffer failed.
	ErrDeviceLost = errors.New("cmdbuf: device lost")

	// ErrNotSubmitted is returned by Fence.Wait on an unsignaled fence that
	// was never submitted.
	ErrNotSubmitted = errors.New("cmdbuf: fence was never submitted")

	// ErrUnsupported matches every *UnsupportedError.
	ErrUnsupported = errors.New("cmdbuf: unsupported feature")
)

// UnsupportedError reports a feature the native API cannot express.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("cmdbuf: unsupported feature: %s", e.Feature)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func unsupported(feature string) error {
	slogger().Warn("cmdbuf: unsupported feature", "feature", feature)
	return &UnsupportedError{Feature: feature}
}
