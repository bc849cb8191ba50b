package mixer

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceLoad means an audio resource could not be opened or decoded.
	ErrResourceLoad = errors.New("resource load failure")
	// ErrPlayback means the audio subsystem rejected a play/pause/stop/volume call.
	ErrPlayback = errors.New("playback failure")
	// ErrInvalidState means the operation needs state the mixer does not have, e.g. an active base.
	ErrInvalidState = errors.New("invalid state")
	ErrUnknownSound = errors.New("unknown sound")
	ErrClosed       = errors.New("mixer closed")
)

// SoundError describes a failed mixer operation. It matches both its Kind and
// its underlying cause with errors.Is.
type SoundError struct {
	Op      string
	SoundID string
	Kind    error
	Err     error
}

func (e *SoundError) Error() string {
	prefix := e.Op
	if e.SoundID != "" {
		prefix += " " + e.SoundID
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", prefix, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", prefix, e.Kind, e.Err)
}

func (e *SoundError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
