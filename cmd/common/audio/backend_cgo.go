//go:build (linux && cgo) || windows || darwin

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// SpeakerBackend plays sounds through the system audio device using beep.
type SpeakerBackend struct {
	mu sync.Mutex

	soundsDir   string
	initialized bool
}

// NewBackend creates a backend resolving relative resource refs against soundsDir.
// The audio device is opened lazily on the first Load.
func NewBackend(soundsDir string) *SpeakerBackend {
	return &SpeakerBackend{soundsDir: soundsDir}
}

// initSpeaker initializes the speaker if not already done.
func (b *SpeakerBackend) initSpeaker() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	b.initialized = true
	return nil
}

// Load decodes ref into a new stopped player.
func (b *SpeakerBackend) Load(ref string) (Player, error) {
	if err := b.initSpeaker(); err != nil {
		return nil, err
	}

	src, err := Open(ref, b.soundsDir)
	if err != nil {
		return nil, err
	}

	return &speakerPlayer{src: src, volume: 1}, nil
}

// Close silences everything and shuts the audio device down.
func (b *SpeakerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	b.initialized = false
	return nil
}

// speakerPlayer builds a fresh beep pipeline every time it starts from stopped:
// source -> (loop) -> resample -> ctrl (pause) -> gain (volume) -> voice (stop/end).
type speakerPlayer struct {
	mu sync.Mutex

	src      *Source
	looping  bool
	volume   float64
	onEnd    func()
	released bool

	ctrl  *beep.Ctrl
	gain  *effects.Gain
	voice *voice
}

// active reports whether a pipeline is still attached to the speaker.
// Must be called with p.mu held.
func (p *speakerPlayer) active() bool {
	if p.voice == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return !p.voice.done
}

func (p *speakerPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrReleased
	}

	// Paused or already playing: just resume
	if p.active() {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	if err := p.src.Streamer.Seek(0); err != nil {
		return fmt.Errorf("failed to rewind: %w", err)
	}

	var s beep.Streamer = p.src.Streamer
	if p.looping && !p.src.Infinite {
		looped, err := beep.Loop2(p.src.Streamer)
		if err != nil {
			return fmt.Errorf("failed to loop: %w", err)
		}
		s = looped
	}

	// Resample if needed to match speaker sample rate
	if p.src.Format.SampleRate != SampleRate {
		s = beep.Resample(4, p.src.Format.SampleRate, SampleRate, s)
	}

	p.ctrl = &beep.Ctrl{Streamer: s, Paused: false}
	p.gain = &effects.Gain{Streamer: p.ctrl, Gain: p.volume - 1}
	p.voice = &voice{streamer: p.gain, onEnd: p.onEnd}

	speaker.Play(p.voice)
	return nil
}

func (p *speakerPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrReleased
	}
	if p.active() {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

func (p *speakerPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrReleased
	}
	p.stopLocked()
	return nil
}

// stopLocked detaches the pipeline (must be called with lock held).
func (p *speakerPlayer) stopLocked() {
	if p.voice != nil {
		speaker.Lock()
		p.voice.stop()
		speaker.Unlock()
	}
	p.voice = nil
	p.gain = nil
	p.ctrl = nil
}

func (p *speakerPlayer) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrReleased
	}
	p.stopLocked()
	p.released = true
	return p.src.Close()
}

func (p *speakerPlayer) SetVolume(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrReleased
	}
	p.volume = v
	if p.gain != nil {
		speaker.Lock()
		p.gain.Gain = v - 1
		speaker.Unlock()
	}
	return nil
}

func (p *speakerPlayer) SetLooping(loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return ErrReleased
	}
	p.looping = loop
	return nil
}

func (p *speakerPlayer) OnEnd(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = fn
}
