//go:build !((linux && cgo) || windows || darwin)

package audio

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// SpeakerBackend is a stand-in for builds without cgo. Every load fails so
// the mixer reports the problem instead of pretending to play.
type SpeakerBackend struct{}

// NewBackend creates a backend that cannot play anything.
func NewBackend(soundsDir string) *SpeakerBackend {
	return &SpeakerBackend{}
}

// Load always fails with ErrAudioUnavailable.
func (b *SpeakerBackend) Load(ref string) (Player, error) {
	return nil, ErrAudioUnavailable
}

// Close is a no-op when cgo is disabled.
func (b *SpeakerBackend) Close() error {
	return nil
}
