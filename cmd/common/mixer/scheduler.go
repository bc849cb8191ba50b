package mixer

import (
	"math/rand/v2"
	"time"

	"github.com/gigurra/lull/cmd/common/audio"
	"github.com/gigurra/lull/cmd/common/catalog"
)

// overlayEntry exists only for enabled overlays while the base plays, plus
// abandoned entries whose load is still in flight. It holds at most one of
// timer and player.
type overlayEntry struct {
	sound  catalog.OverlaySound
	phase  Phase
	token  uint64
	timer  Timer
	player audio.Player
	// abandoned marks a Loading entry that was stopped before its load
	// arrived. A re-enable adopts it instead of loading a second handle.
	abandoned bool
}

type timerFired struct {
	id    string
	token uint64
}

type overlayLoaded struct {
	id     string
	token  uint64
	player audio.Player
	err    error
}

type overlayEnded struct {
	id    string
	token uint64
}

// drawInterval picks a replay delay uniformly from [min, max] milliseconds.
func drawInterval(rng *rand.Rand, o catalog.OverlaySound) time.Duration {
	ms := o.MinIntervalMs
	if span := o.MaxIntervalMs - o.MinIntervalMs; span > 0 {
		ms += rng.Int64N(span + 1)
	}
	return time.Duration(ms) * time.Millisecond
}

func (m *Mixer) newEntry(sound catalog.OverlaySound) *overlayEntry {
	e := &overlayEntry{sound: sound, phase: PhaseIdle}
	m.overlays[sound.ID] = e
	return e
}

// arm moves e to Waiting with a freshly drawn delay.
func (m *Mixer) arm(e *overlayEntry) {
	e.token = m.newToken()
	e.phase = PhaseWaiting
	id, token := e.sound.ID, e.token
	d := drawInterval(m.rng, e.sound)
	e.timer = m.clock.AfterFunc(d, func() { m.post(timerFired{id: id, token: token}) })
	m.log.Debug("overlay armed", "overlay", id, "delay", d)
}

// loadOverlay moves e to Loading and decodes its resource off the loop.
func (m *Mixer) loadOverlay(e *overlayEntry) {
	e.token = m.newToken()
	e.phase = PhaseLoading
	e.timer = nil
	id, token, ref := e.sound.ID, e.token, e.sound.Resource
	go func() {
		p, err := m.backend.Load(ref)
		if !m.post(overlayLoaded{id: id, token: token, player: p, err: err}) && p != nil {
			_ = p.Release()
		}
	}()
}

// live returns the entry for id if ev still refers to its current phase.
func (m *Mixer) live(id string, token uint64, phase Phase) *overlayEntry {
	e := m.overlays[id]
	if e == nil || e.abandoned || e.token != token || e.phase != phase {
		return nil
	}
	// Entries are dropped whenever either condition goes false, so this only
	// guards against a missed cleanup.
	if !m.enabled[id] || !m.basePlaying {
		m.stopOverlay(id)
		return nil
	}
	return e
}

func (m *Mixer) onTimerFired(ev timerFired) {
	e := m.live(ev.id, ev.token, PhaseWaiting)
	if e == nil {
		m.log.Debug("ignoring stale overlay timer", "overlay", ev.id)
		return
	}
	m.loadOverlay(e)
}

func (m *Mixer) onOverlayLoaded(ev overlayLoaded) {
	e := m.overlays[ev.id]
	if e == nil || e.token != ev.token || e.phase != PhaseLoading {
		if ev.player != nil {
			m.release(ev.id, ev.player)
		}
		m.log.Debug("discarding stale overlay load", "overlay", ev.id)
		return
	}
	if e.abandoned || !m.enabled[ev.id] || !m.basePlaying {
		if ev.player != nil {
			m.release(ev.id, ev.player)
		}
		delete(m.overlays, ev.id)
		m.log.Debug("discarding abandoned overlay load", "overlay", ev.id)
		// Resumed while the load was in flight.
		if m.enabled[ev.id] && m.basePlaying {
			m.arm(m.newEntry(e.sound))
		}
		return
	}
	if ev.err != nil {
		m.report(&SoundError{Op: "load", SoundID: ev.id, Kind: ErrResourceLoad, Err: ev.err})
		m.arm(e)
		return
	}

	p := ev.player
	id, token := ev.id, e.token
	p.OnEnd(func() { m.post(overlayEnded{id: id, token: token}) })
	err := p.SetLooping(false)
	if err == nil {
		err = p.SetVolume(m.volumeFor(id))
	}
	if err == nil {
		err = p.Play()
	}
	if err != nil {
		m.release(id, p)
		m.report(&SoundError{Op: "play", SoundID: id, Kind: ErrPlayback, Err: err})
		m.arm(e)
		return
	}
	e.player = p
	e.phase = PhasePlaying
	m.log.Debug("overlay playing", "overlay", id)
}

func (m *Mixer) onOverlayEnded(ev overlayEnded) {
	e := m.live(ev.id, ev.token, PhasePlaying)
	if e == nil {
		return
	}
	// Release before re-arming: at most one handle per overlay.
	m.release(ev.id, e.player)
	e.player = nil
	m.arm(e)
}

// stopOverlay cancels any timer, stops any playback and drops the entry. An
// entry with a load in flight is kept as abandoned until the load arrives, so
// the id never has two loads outstanding.
func (m *Mixer) stopOverlay(id string) {
	e := m.overlays[id]
	if e == nil {
		return
	}
	if e.phase == PhaseLoading {
		e.abandoned = true
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.player != nil {
		m.release(id, e.player)
	}
	delete(m.overlays, id)
}

// suspendOverlays returns every overlay to Idle without touching the enabled set.
func (m *Mixer) suspendOverlays() {
	for id := range m.overlays {
		m.stopOverlay(id)
	}
}

// resumeOverlays arms every enabled overlay that is not already scheduled. The
// first play comes after a full interval. Abandoned loads re-arm on arrival.
func (m *Mixer) resumeOverlays() {
	for _, o := range m.catalog.Overlays() {
		if m.enabled[o.ID] && m.overlays[o.ID] == nil {
			m.arm(m.newEntry(o))
		}
	}
}
