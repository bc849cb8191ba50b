package mixer

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"
)

// Phase is where an overlay sound is in its replay cycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"    // not scheduled: disabled, or enabled while the base is not playing
	PhaseWaiting Phase = "waiting" // replay timer armed
	PhaseLoading Phase = "loading" // one-shot is being loaded
	PhasePlaying Phase = "playing" // one-shot is audible
)

const (
	DefaultBaseVolume    = 0.5
	DefaultOverlayVolume = 0.3
)

// Snapshot is a copy of the mixer state for rendering.
type Snapshot struct {
	ActiveBaseID    string
	BasePlaying     bool
	EnabledOverlays []string // catalog order
	OverlayPhases   map[string]Phase
	Volumes         map[string]float64
	// SleepRemaining is zero when no sleep timer runs.
	SleepRemaining time.Duration
}

// OverlayEnabled reports whether the overlay is toggled on.
func (s Snapshot) OverlayEnabled(id string) bool {
	return slices.Contains(s.EnabledOverlays, id)
}

// Phase returns the replay phase of an overlay.
func (s Snapshot) Phase(id string) Phase {
	if p, ok := s.OverlayPhases[id]; ok {
		return p
	}
	return PhaseIdle
}

// Options configures a Mixer. The zero value is usable.
type Options struct {
	Clock  Clock
	Rand   *rand.Rand
	Logger *slog.Logger

	// OnError receives failures of scheduled overlay plays, which have no caller
	// to return to. It runs on its own goroutine.
	OnError func(error)
	// OnSleepExpired runs on its own goroutine after the sleep timer reset the mixer.
	OnSleepExpired func()

	// Volumes used for sounds the user has not adjusted. Zero selects the defaults.
	BaseVolume    float64
	OverlayVolume float64
}
