// Package audio is the playback subsystem used by the mixer: it loads sound
// resources into players that can be started, paused, stopped and released.
package audio

import "errors"

var (
	ErrAudioUnavailable  = errors.New("audio playback is not available in this build")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrUnknownSynth      = errors.New("unknown synthesized sound")
	ErrReleased          = errors.New("player has been released")
)

// Backend loads sound resources.
type Backend interface {
	// Load decodes ref into a new, stopped player owned by the caller.
	Load(ref string) (Player, error)
}

// Player is a handle to a single loaded sound.
//
// A stopped player starts over from the beginning on the next Play. A released
// player rejects every operation with ErrReleased.
type Player interface {
	Play() error
	Pause() error
	Stop() error
	Release() error
	// SetVolume sets a linear gain in [0,1]; it takes effect immediately.
	SetVolume(v float64) error
	// SetLooping applies on the next start from the stopped state.
	SetLooping(loop bool) error
	// OnEnd registers fn to be called, on its own goroutine, when playback
	// reaches the natural end of the media. It is never called for Stop.
	OnEnd(fn func())
}
