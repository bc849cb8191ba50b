// Package mixer is the playback controller: it owns the active base track,
// the set of enabled overlays and their replay schedule, per-sound volumes
// and the sleep timer.
//
// All state lives on a single goroutine. Public methods post a closure to it
// and wait for the result; timer expiries, finished loads and end-of-media
// notifications arrive as events on the same channel, each tagged with the
// token that was current when it was scheduled so late deliveries are ignored.
package mixer

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gigurra/lull/cmd/common/audio"
	"github.com/gigurra/lull/cmd/common/catalog"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Mixer is safe for concurrent use.
type Mixer struct {
	id         string
	catalog    *catalog.Catalog
	backend    audio.Backend
	clock      Clock
	rng        *rand.Rand
	log        *slog.Logger
	onError    func(error)
	onSleep    func()
	baseVol    float64
	overlayVol float64

	inbox     chan any
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	activeBaseID string
	base         audio.Player
	basePlaying  bool
	enabled      map[string]bool
	overlays     map[string]*overlayEntry
	volumes      map[string]float64
	sleep        *sleepTimer
	lastToken    uint64
}

type command struct {
	fn   func() error
	errc chan error
}

// New starts a mixer over cat. Call Close to stop all audio and the loop goroutine.
func New(cat *catalog.Catalog, backend audio.Backend, opts Options) *Mixer {
	m := &Mixer{
		id:         uuid.NewString(),
		catalog:    cat,
		backend:    backend,
		clock:      opts.Clock,
		rng:        opts.Rand,
		onError:    opts.OnError,
		onSleep:    opts.OnSleepExpired,
		baseVol:    opts.BaseVolume,
		overlayVol: opts.OverlayVolume,
		inbox:      make(chan any),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		enabled:    make(map[string]bool),
		overlays:   make(map[string]*overlayEntry),
		volumes:    make(map[string]float64),
	}
	if m.clock == nil {
		m.clock = SystemClock()
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if m.baseVol <= 0 || math.IsNaN(m.baseVol) {
		m.baseVol = DefaultBaseVolume
	}
	if m.overlayVol <= 0 || math.IsNaN(m.overlayVol) {
		m.overlayVol = DefaultOverlayVolume
	}
	m.baseVol = lo.Clamp(m.baseVol, 0, 1)
	m.overlayVol = lo.Clamp(m.overlayVol, 0, 1)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m.log = logger.With("mixer", m.id[:8])

	go m.run()
	return m
}

// ID identifies this mixer instance in logs and remote state.
func (m *Mixer) ID() string { return m.id }

// Catalog returns the catalog the mixer plays from.
func (m *Mixer) Catalog() *catalog.Catalog { return m.catalog }

func (m *Mixer) run() {
	defer close(m.done)
	for {
		select {
		case <-m.quit:
			m.resetAll()
			m.log.Debug("mixer stopped")
			return
		case msg := <-m.inbox:
			m.dispatch(msg)
		}
	}
}

func (m *Mixer) dispatch(msg any) {
	switch msg := msg.(type) {
	case command:
		msg.errc <- msg.fn()
	case timerFired:
		m.onTimerFired(msg)
	case overlayLoaded:
		m.onOverlayLoaded(msg)
	case overlayEnded:
		m.onOverlayEnded(msg)
	case sleepExpired:
		m.onSleepExpired(msg)
	default:
		m.log.Warn("unexpected mixer event", "type", fmt.Sprintf("%T", msg))
	}
}

// call runs fn on the loop goroutine and returns its error.
func (m *Mixer) call(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case m.inbox <- command{fn: fn, errc: errc}:
	case <-m.done:
		return ErrClosed
	}
	return <-errc
}

// post delivers an event from a callback goroutine. It reports false once the
// mixer has shut down.
func (m *Mixer) post(ev any) bool {
	select {
	case m.inbox <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Mixer) newToken() uint64 {
	m.lastToken++
	return m.lastToken
}

// SelectBase makes id the active base track and starts it looping. Any
// previous base track is released first, even if the new one fails to load.
func (m *Mixer) SelectBase(id string) error {
	return m.call(func() error { return m.selectBase(id) })
}

// ToggleBasePlayback pauses or resumes the active base track. Overlays follow it.
func (m *Mixer) ToggleBasePlayback() error {
	return m.call(m.toggleBasePlayback)
}

// ResetAll stops everything, clears the enabled overlays and cancels the
// sleep timer. Volumes are kept.
func (m *Mixer) ResetAll() error {
	return m.call(m.resetAll)
}

// ToggleOverlay flips whether id is enabled and reports the new state. An
// overlay enabled while the base plays is heard immediately.
func (m *Mixer) ToggleOverlay(id string) (bool, error) {
	var enabled bool
	err := m.call(func() error {
		var err error
		enabled, err = m.toggleOverlay(id)
		return err
	})
	return enabled, err
}

// SetVolume clamps v to [0,1], stores it for id and applies it to any live
// player of that sound. It returns the stored value.
func (m *Mixer) SetVolume(id string, v float64) (float64, error) {
	var stored float64
	err := m.call(func() error {
		var err error
		stored, err = m.setVolume(id, v)
		return err
	})
	return stored, err
}

// Volume returns the stored volume for id, or its default.
func (m *Mixer) Volume(id string) (float64, error) {
	var v float64
	err := m.call(func() error {
		if !m.catalog.Has(id) {
			return &SoundError{Op: "volume", SoundID: id, Kind: ErrUnknownSound}
		}
		v = m.volumeFor(id)
		return nil
	})
	return v, err
}

// Snapshot returns a copy of the current state.
func (m *Mixer) Snapshot() (Snapshot, error) {
	var s Snapshot
	err := m.call(func() error {
		s = m.snapshot()
		return nil
	})
	return s, err
}

// Close stops all audio and the loop goroutine. It is safe to call more than once.
func (m *Mixer) Close() error {
	m.closeOnce.Do(func() { close(m.quit) })
	<-m.done
	return nil
}

func (m *Mixer) selectBase(id string) error {
	track, err := m.catalog.Base(id)
	if err != nil {
		return m.fail(&SoundError{Op: "select", SoundID: id, Kind: ErrUnknownSound})
	}
	m.suspendOverlays()
	m.teardownBase()
	return m.startBase(track, "select")
}

// startBase loads and starts track. On failure no base is active.
func (m *Mixer) startBase(track catalog.BaseTrack, op string) error {
	p, err := m.backend.Load(track.Resource)
	if err != nil {
		return m.fail(&SoundError{Op: op, SoundID: track.ID, Kind: ErrResourceLoad, Err: err})
	}
	err = p.SetLooping(true)
	if err == nil {
		err = p.SetVolume(m.volumeFor(track.ID))
	}
	if err == nil {
		err = p.Play()
	}
	if err != nil {
		m.release(track.ID, p)
		return m.fail(&SoundError{Op: op, SoundID: track.ID, Kind: ErrPlayback, Err: err})
	}

	m.activeBaseID = track.ID
	m.base = p
	m.basePlaying = true
	m.log.Info("base track playing", "base", track.ID)
	m.resumeOverlays()
	return nil
}

func (m *Mixer) teardownBase() {
	if m.base != nil {
		m.release(m.activeBaseID, m.base)
	}
	m.base = nil
	m.activeBaseID = ""
	m.basePlaying = false
}

func (m *Mixer) toggleBasePlayback() error {
	if m.base == nil {
		return m.fail(&SoundError{Op: "toggle base", Kind: ErrInvalidState, Err: fmt.Errorf("no base track selected")})
	}
	id := m.activeBaseID

	if m.basePlaying {
		m.suspendOverlays()
		if err := m.base.Pause(); err != nil {
			m.teardownBase()
			return m.fail(&SoundError{Op: "pause", SoundID: id, Kind: ErrPlayback, Err: err})
		}
		m.basePlaying = false
		m.log.Info("base track paused", "base", id)
		return nil
	}

	if err := m.base.Play(); err != nil {
		// The handle may have been invalidated underneath us; a fresh load usually works.
		m.log.Warn("resuming base track failed, reloading", "base", id, "error", err)
		m.teardownBase()
		track, lookupErr := m.catalog.Base(id)
		if lookupErr != nil {
			return m.fail(&SoundError{Op: "resume", SoundID: id, Kind: ErrUnknownSound})
		}
		return m.startBase(track, "resume")
	}
	m.basePlaying = true
	m.log.Info("base track resumed", "base", id)
	m.resumeOverlays()
	return nil
}

func (m *Mixer) resetAll() error {
	m.suspendOverlays()
	m.teardownBase()
	clear(m.enabled)
	m.cancelSleep()
	return nil
}

func (m *Mixer) toggleOverlay(id string) (bool, error) {
	sound, err := m.catalog.Overlay(id)
	if err != nil {
		return false, m.fail(&SoundError{Op: "toggle overlay", SoundID: id, Kind: ErrUnknownSound})
	}
	if m.enabled[id] {
		m.stopOverlay(id)
		delete(m.enabled, id)
		m.log.Debug("overlay disabled", "overlay", id)
		return false, nil
	}

	m.enabled[id] = true
	m.log.Debug("overlay enabled", "overlay", id)
	if !m.basePlaying {
		return true, nil
	}
	if e := m.overlays[id]; e != nil {
		// Still loading from before the disable: play that handle when it arrives.
		e.abandoned = false
		return true, nil
	}
	m.loadOverlay(m.newEntry(sound))
	return true, nil
}

func (m *Mixer) setVolume(id string, v float64) (float64, error) {
	if !m.catalog.Has(id) {
		return 0, m.fail(&SoundError{Op: "volume", SoundID: id, Kind: ErrUnknownSound})
	}
	if math.IsNaN(v) {
		v = 0
	}
	v = lo.Clamp(v, 0, 1)
	m.volumes[id] = v

	var p audio.Player
	if id == m.activeBaseID {
		p = m.base
	} else if e := m.overlays[id]; e != nil {
		p = e.player
	}
	if p != nil {
		if err := p.SetVolume(v); err != nil {
			return v, m.fail(&SoundError{Op: "volume", SoundID: id, Kind: ErrPlayback, Err: err})
		}
	}
	return v, nil
}

func (m *Mixer) volumeFor(id string) float64 {
	if v, ok := m.volumes[id]; ok {
		return v
	}
	if m.catalog.IsBase(id) {
		return m.baseVol
	}
	return m.overlayVol
}

func (m *Mixer) snapshot() Snapshot {
	enabled := m.catalog.SortOverlayIDs(lo.Keys(m.enabled))
	phases := make(map[string]Phase, len(enabled))
	for _, id := range enabled {
		phase := PhaseIdle
		if e := m.overlays[id]; e != nil && !e.abandoned {
			phase = e.phase
		}
		phases[id] = phase
	}
	ids := m.catalog.IDs()
	volumes := lo.SliceToMap(ids, func(id string) (string, float64) { return id, m.volumeFor(id) })

	return Snapshot{
		ActiveBaseID:    m.activeBaseID,
		BasePlaying:     m.basePlaying,
		EnabledOverlays: enabled,
		OverlayPhases:   phases,
		Volumes:         volumes,
		SleepRemaining:  m.sleepRemaining(),
	}
}

// release stops and frees a player. Errors are logged; there is nothing else to do with them.
func (m *Mixer) release(id string, p audio.Player) {
	if err := p.Stop(); err != nil {
		m.log.Debug("stopping player failed", "sound", id, "error", err)
	}
	if err := p.Release(); err != nil {
		m.log.Warn("releasing player failed", "sound", id, "error", err)
	}
}

// fail logs an error returned to a caller.
func (m *Mixer) fail(err error) error {
	m.log.Warn("mixer operation failed", "error", err)
	return err
}

// report delivers an error that has no caller.
func (m *Mixer) report(err error) {
	m.log.Warn("scheduled overlay failed", "error", err)
	if m.onError != nil {
		go m.onError(err)
	}
}

func (m *Mixer) now() time.Time { return m.clock.Now() }
