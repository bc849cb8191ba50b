package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// SynthPrefix marks resource refs that are generated instead of decoded from a file.
const SynthPrefix = "synth:"

// Source is a decoded, seekable audio stream.
type Source struct {
	Streamer beep.StreamSeeker
	Format   beep.Format
	// Infinite sources never drain and need no looping.
	Infinite bool

	close func() error
}

// Close releases the underlying file, if any.
func (s *Source) Close() error {
	if s.close == nil {
		return nil
	}
	err := s.close()
	s.close = nil
	return err
}

// Supported reports whether path has an extension Open can decode.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
		return true
	}
	return false
}

// ResolvePath maps a file ref to a path under soundsDir.
func ResolvePath(ref, soundsDir string) (string, error) {
	if !Supported(ref) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(ref))
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	return filepath.Join(soundsDir, ref), nil
}

// Check reports whether ref can be opened without decoding it.
func Check(ref, soundsDir string) error {
	if name, ok := strings.CutPrefix(ref, SynthPrefix); ok {
		if !slices.Contains(SynthNames, name) {
			return fmt.Errorf("%w: %q", ErrUnknownSynth, name)
		}
		return nil
	}
	path, err := ResolvePath(ref, soundsDir)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	return err
}

// Open resolves ref and decodes it. Relative paths are looked up in soundsDir.
func Open(ref, soundsDir string) (*Source, error) {
	if name, ok := strings.CutPrefix(ref, SynthPrefix); ok {
		return OpenSynth(name)
	}

	path, err := ResolvePath(ref, soundsDir)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", ref, err)
	}

	return &Source{
		Streamer: streamer,
		Format:   format,
		close: func() error {
			err := streamer.Close()
			if fErr := f.Close(); fErr != nil && !errors.Is(fErr, os.ErrClosed) && err == nil {
				err = fErr
			}
			return err
		},
	}, nil
}
