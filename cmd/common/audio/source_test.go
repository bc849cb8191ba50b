package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

func TestOpenSynth(t *testing.T) {
	for _, name := range SynthNames {
		t.Run(name, func(t *testing.T) {
			src, err := Open(SynthPrefix+name, "")
			if err != nil {
				t.Fatalf("Open(%q) error: %v", name, err)
			}
			defer src.Close()
			if src.Format.SampleRate != SampleRate {
				t.Errorf("sample rate = %v, want %v", src.Format.SampleRate, SampleRate)
			}
		})
	}

	if _, err := Open(SynthPrefix+"kazoo", ""); !errors.Is(err, ErrUnknownSynth) {
		t.Errorf("unknown synth error = %v, want ErrUnknownSynth", err)
	}
}

func TestToneDrainsAndRewinds(t *testing.T) {
	src, err := OpenSynth("chime")
	if err != nil {
		t.Fatal(err)
	}
	if src.Infinite {
		t.Fatal("chime must be finite")
	}

	buf := make([][2]float64, 512)
	first := make([][2]float64, 512)
	total := 0
	for {
		n, ok := src.Streamer.Stream(buf)
		if total == 0 {
			copy(first, buf[:n])
		}
		for _, s := range buf[:n] {
			if s[0] < -1 || s[0] > 1 {
				t.Fatalf("sample out of range: %v", s[0])
			}
		}
		total += n
		if !ok {
			break
		}
	}
	if total != src.Streamer.Len() {
		t.Errorf("streamed %d samples, Len() = %d", total, src.Streamer.Len())
	}

	if err := src.Streamer.Seek(0); err != nil {
		t.Fatalf("Seek(0) error: %v", err)
	}
	n, _ := src.Streamer.Stream(buf)
	for i := 0; i < n; i++ {
		if buf[i] != first[i] {
			t.Fatalf("sample %d differs after rewind: %v vs %v", i, buf[i], first[i])
		}
	}

	if err := src.Streamer.Seek(src.Streamer.Len() + 1); err == nil {
		t.Error("seeking past the end should fail")
	}
}

func TestNoiseIsBoundedAndInfinite(t *testing.T) {
	for _, name := range []string{"white-noise", "pink-noise", "brown-noise"} {
		t.Run(name, func(t *testing.T) {
			src, err := OpenSynth(name)
			if err != nil {
				t.Fatal(err)
			}
			if !src.Infinite {
				t.Error("noise should be infinite")
			}
			buf := make([][2]float64, 1024)
			for i := 0; i < 50; i++ {
				n, ok := src.Streamer.Stream(buf)
				if !ok || n != len(buf) {
					t.Fatalf("noise stream ended: n=%d ok=%v", n, ok)
				}
				for _, s := range buf {
					if s[0] < -1 || s[0] > 1 || s[0] != s[1] {
						t.Fatalf("bad sample %v", s)
					}
				}
			}
		})
	}
}

func TestOpenRejectsUnsupportedAndMissing(t *testing.T) {
	dir := t.TempDir()

	if _, err := Open("sound.ogg", dir); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ogg error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Open("missing.mp3", dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}

	bogus := filepath.Join(dir, "bogus.wav")
	if err := os.WriteFile(bogus, []byte("definitely not a wav file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open("bogus.wav", dir); err == nil {
		t.Error("decoding garbage should fail")
	}
}

func TestOpenWav(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bell.wav")

	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	samples := format.SampleRate.N(200 * time.Millisecond)

	tone, err := OpenSynth("chime")
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Encode(f, beep.Take(samples, tone.Streamer), format); err != nil {
		t.Fatalf("wav.Encode error: %v", err)
	}
	f.Close()

	src, err := Open("bell.wav", dir)
	if err != nil {
		t.Fatalf("Open(bell.wav) error: %v", err)
	}
	if src.Format.SampleRate != 22050 {
		t.Errorf("sample rate = %v, want 22050", src.Format.SampleRate)
	}
	if src.Streamer.Len() != samples {
		t.Errorf("Len() = %d, want %d", src.Streamer.Len(), samples)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	// Absolute refs ignore the sounds dir.
	abs, err := Open(path, "/nonexistent")
	if err != nil {
		t.Fatalf("Open(abs) error: %v", err)
	}
	abs.Close()
}

func TestVoiceSignalsNaturalEnd(t *testing.T) {
	ended := make(chan struct{}, 1)
	v := &voice{streamer: beep.Silence(100), onEnd: func() { ended <- struct{}{} }}

	buf := make([][2]float64, 64)
	total := 0
	for {
		n, ok := v.Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	if total != 100 {
		t.Errorf("voice streamed %d samples, want 100", total)
	}

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("onEnd was not called at end of media")
	}
}

func TestVoiceStopDoesNotSignalEnd(t *testing.T) {
	ended := make(chan struct{}, 1)
	v := &voice{streamer: beep.Silence(-1), onEnd: func() { ended <- struct{}{} }}

	buf := make([][2]float64, 64)
	if _, ok := v.Stream(buf); !ok {
		t.Fatal("infinite voice ended early")
	}
	v.stop()
	if n, ok := v.Stream(buf); ok || n != 0 {
		t.Errorf("stopped voice returned n=%d ok=%v", n, ok)
	}

	select {
	case <-ended:
		t.Fatal("onEnd must not fire on explicit stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rain.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ref  string
		want error
	}{
		{"rain.mp3", nil},
		{"synth:pink-noise", nil},
		{"synth:kazoo", ErrUnknownSynth},
		{"rain.flac", ErrUnsupportedFormat},
		{"ocean.mp3", os.ErrNotExist},
	}
	for _, tt := range tests {
		err := Check(tt.ref, dir)
		if tt.want == nil && err != nil {
			t.Errorf("Check(%q) error: %v", tt.ref, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("Check(%q) = %v, want %v", tt.ref, err, tt.want)
		}
	}
}
