package mixer

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gigurra/lull/cmd/common/audio"
	"github.com/gigurra/lull/cmd/common/catalog"
)

// fakeClock only fires timers when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due timers in deadline order. Each
// callback returns once the mixer has accepted its event.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the timers that are neither stopped nor fired.
func (c *fakeClock) Pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fakeBackend records every player it hands out.
type fakeBackend struct {
	mu       sync.Mutex
	players  []*fakePlayer
	events   []string
	failLoad map[string]error
	failPlay map[string]error
	gates    map[string]chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		failLoad: make(map[string]error),
		failPlay: make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

func (b *fakeBackend) Load(ref string) (audio.Player, error) {
	b.mu.Lock()
	gate := b.gates[ref]
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, "load "+ref)
	if err := b.failLoad[ref]; err != nil {
		return nil, err
	}
	p := &fakePlayer{backend: b, ref: ref, playErr: b.failPlay[ref]}
	b.players = append(b.players, p)
	return p, nil
}

// hold makes loads of ref block until the returned func is called.
func (b *fakeBackend) hold(ref string) func() {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gates[ref] = gate
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.gates, ref)
		b.mu.Unlock()
		close(gate)
	}
}

func (b *fakeBackend) failLoads(ref string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failLoad, ref)
	} else {
		b.failLoad[ref] = err
	}
}

// failPlays makes players loaded from ref from now on reject Play.
func (b *fakeBackend) failPlays(ref string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failPlay, ref)
	} else {
		b.failPlay[ref] = err
	}
}

func (b *fakeBackend) record(ev string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *fakeBackend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.events)
}

// Players returns every player ever loaded for ref.
func (b *fakeBackend) Players(ref string) []*fakePlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*fakePlayer
	for _, p := range b.players {
		if p.ref == ref {
			out = append(out, p)
		}
	}
	return out
}

// Live returns the unreleased players for ref.
func (b *fakeBackend) Live(ref string) []*fakePlayer {
	var out []*fakePlayer
	for _, p := range b.Players(ref) {
		if !p.Released() {
			out = append(out, p)
		}
	}
	return out
}

// AllLive returns every unreleased player.
func (b *fakeBackend) AllLive() []*fakePlayer {
	b.mu.Lock()
	players := slices.Clone(b.players)
	b.mu.Unlock()
	var out []*fakePlayer
	for _, p := range players {
		if !p.Released() {
			out = append(out, p)
		}
	}
	return out
}

type fakePlayer struct {
	backend *fakeBackend
	ref     string

	mu       sync.Mutex
	playing  bool
	paused   bool
	released bool
	looping  bool
	volume   float64
	plays    int
	onEnd    func()
	playErr  error
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return audio.ErrReleased
	}
	if p.playErr != nil {
		return p.playErr
	}
	p.playing, p.paused = true, false
	p.plays++
	p.backend.record("play " + p.ref)
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return audio.ErrReleased
	}
	p.playing, p.paused = false, true
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return audio.ErrReleased
	}
	p.playing, p.paused = false, false
	return nil
}

func (p *fakePlayer) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return audio.ErrReleased
	}
	p.released, p.playing = true, false
	p.backend.record("release " + p.ref)
	return nil
}

func (p *fakePlayer) SetVolume(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return audio.ErrReleased
	}
	p.volume = v
	return nil
}

func (p *fakePlayer) SetLooping(loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return audio.ErrReleased
	}
	p.looping = loop
	return nil
}

func (p *fakePlayer) OnEnd(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = fn
}

// finish simulates the media reaching its natural end.
func (p *fakePlayer) finish() {
	p.mu.Lock()
	fn := p.onEnd
	p.playing = false
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (p *fakePlayer) failPlay(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playErr = err
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *fakePlayer) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func (p *fakePlayer) Looping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.looping
}

func (p *fakePlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *fakePlayer) Plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.BaseTrack{
			{ID: "rain", Title: "Rain", Resource: "rain.mp3"},
			{ID: "forest", Title: "Forest", Resource: "forest.mp3"},
		},
		[]catalog.OverlaySound{
			{ID: "thunder", Title: "Thunder", Resource: "thunder.mp3", MinIntervalMs: 1000, MaxIntervalMs: 2000},
			{ID: "birds", Title: "Birds", Resource: "birds.mp3", MinIntervalMs: 5000, MaxIntervalMs: 15000},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return cat
}

type harness struct {
	m       *Mixer
	clock   *fakeClock
	backend *fakeBackend
	errs    chan error
	slept   chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   newFakeClock(),
		backend: newFakeBackend(),
		errs:    make(chan error, 16),
		slept:   make(chan struct{}, 1),
	}
	h.m = New(testCatalog(t), h.backend, Options{
		Clock:          h.clock,
		Rand:           rand.New(rand.NewPCG(1, 2)),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnError: func(err error) {
			select {
			case h.errs <- err:
			default:
			}
		},
		OnSleepExpired: func() { h.slept <- struct{}{} },
	})
	t.Cleanup(func() { h.m.Close() })
	return h
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	s, err := h.m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	return s
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitFor polls until cond holds. Overlay loads complete on their own goroutine.
func (h *harness) waitFor(t *testing.T, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := h.snapshot(t)
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot: %+v", what, s)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) waitPhase(t *testing.T, id string, phase Phase) Snapshot {
	t.Helper()
	return h.waitFor(t, fmt.Sprintf("%s to be %s", id, phase), func(s Snapshot) bool {
		return s.Phase(id) == phase
	})
}

// checkInvariants inspects loop-owned state from the loop goroutine.
func (h *harness) checkInvariants(t *testing.T) {
	t.Helper()
	var problems []string
	err := h.m.call(func() error {
		if (h.m.base == nil) != (h.m.activeBaseID == "") {
			problems = append(problems, "base handle and active id disagree")
		}
		if h.m.basePlaying && h.m.base == nil {
			problems = append(problems, "playing without a base handle")
		}
		for id, e := range h.m.overlays {
			if e.abandoned {
				if e.phase != PhaseLoading || e.timer != nil || e.player != nil {
					problems = append(problems, id+" abandoned outside of a load")
				}
				continue
			}
			if !h.m.enabled[id] {
				problems = append(problems, id+" scheduled while disabled")
			}
			if !h.m.basePlaying {
				problems = append(problems, id+" scheduled while base not playing")
			}
			if e.timer != nil && e.player != nil {
				problems = append(problems, id+" has both a timer and a player")
			}
			switch e.phase {
			case PhaseWaiting:
				if e.timer == nil {
					problems = append(problems, id+" waiting without a timer")
				}
			case PhasePlaying:
				if e.player == nil {
					problems = append(problems, id+" playing without a player")
				}
			case PhaseLoading:
				if e.timer != nil || e.player != nil {
					problems = append(problems, id+" loading while holding a timer or player")
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("checkInvariants: %v", err)
	}
	for _, p := range problems {
		t.Error(p)
	}
}
