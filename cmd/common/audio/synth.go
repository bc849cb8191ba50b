package audio

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep/v2"
)

// SampleRate is the rate every synthesized source is generated at and the
// rate the speaker runs at.
const SampleRate = beep.SampleRate(44100)

var synthFormat = beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}

// SynthNames lists the generated sounds understood by OpenSynth.
var SynthNames = []string{"white-noise", "pink-noise", "brown-noise", "chime", "bowl"}

// OpenSynth returns a generated source by name.
func OpenSynth(name string) (*Source, error) {
	switch name {
	case "white-noise", "pink-noise", "brown-noise":
		return &Source{Streamer: newNoise(name), Format: synthFormat, Infinite: true}, nil
	case "chime":
		// Tubular partials, bright and short.
		return &Source{Streamer: newTone(2500*time.Millisecond, []partial{
			{freq: 1046.5, amp: 0.35, decay: 0.9},
			{freq: 2793.0, amp: 0.15, decay: 0.5},
			{freq: 5230.0, amp: 0.05, decay: 0.25},
		}), Format: synthFormat}, nil
	case "bowl":
		// Slightly detuned pair produces the slow beating of a singing bowl.
		return &Source{Streamer: newTone(6*time.Second, []partial{
			{freq: 220.0, amp: 0.3, decay: 3.0},
			{freq: 221.5, amp: 0.2, decay: 2.8},
			{freq: 598.0, amp: 0.08, decay: 1.5},
		}), Format: synthFormat}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSynth, name)
}

// noise generates endless colored noise.
type noise struct {
	color string
	rng   *rand.Rand
	pos   int

	// pink filter state
	b [7]float64
	// brown integrator state
	last float64
}

func newNoise(color string) *noise {
	return &noise{
		color: color,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (n *noise) next() float64 {
	white := n.rng.Float64()*2 - 1
	switch n.color {
	case "pink-noise":
		return n.pink(white)
	case "brown-noise":
		n.last = (n.last + 0.02*white) / 1.02
		return clampSample(n.last * 3.5)
	default:
		return white * 0.3
	}
}

// pink applies Paul Kellet's refined pinking filter.
func (n *noise) pink(white float64) float64 {
	b := &n.b
	b[0] = 0.99886*b[0] + white*0.0555179
	b[1] = 0.99332*b[1] + white*0.0750759
	b[2] = 0.96900*b[2] + white*0.1538520
	b[3] = 0.86650*b[3] + white*0.3104856
	b[4] = 0.55000*b[4] + white*0.5329522
	b[5] = -0.7616*b[5] - white*0.0168980
	out := b[0] + b[1] + b[2] + b[3] + b[4] + b[5] + b[6] + white*0.5362
	b[6] = white * 0.115926
	return clampSample(out * 0.11)
}

func (n *noise) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		v := n.next()
		samples[i][0] = v
		samples[i][1] = v
	}
	n.pos += len(samples)
	return len(samples), true
}

func (n *noise) Err() error { return nil }

func (n *noise) Len() int { return math.MaxInt }

func (n *noise) Position() int { return n.pos }

func (n *noise) Seek(p int) error {
	n.pos = p
	n.b = [7]float64{}
	n.last = 0
	return nil
}

type partial struct {
	freq  float64
	amp   float64
	decay float64 // seconds until amplitude falls to 1/e
}

// tone is a finite sum of exponentially decaying sine partials.
type tone struct {
	partials []partial
	samples  int
	pos      int
}

func newTone(d time.Duration, partials []partial) *tone {
	return &tone{partials: partials, samples: SampleRate.N(d)}
}

func (t *tone) Stream(samples [][2]float64) (int, bool) {
	if t.pos >= t.samples {
		return 0, false
	}

	attack := SampleRate.N(5 * time.Millisecond)
	release := SampleRate.N(50 * time.Millisecond)

	for i := range samples {
		if t.pos >= t.samples {
			return i, true
		}

		sec := float64(t.pos) / float64(SampleRate)
		var v float64
		for _, p := range t.partials {
			v += p.amp * math.Sin(2*math.Pi*p.freq*sec) * math.Exp(-sec/p.decay)
		}

		// Short fades at both ends avoid clicks.
		switch {
		case t.pos < attack:
			v *= float64(t.pos) / float64(attack)
		case t.pos > t.samples-release:
			v *= float64(t.samples-t.pos) / float64(release)
		}

		v = clampSample(v)
		samples[i][0] = v
		samples[i][1] = v
		t.pos++
	}
	return len(samples), true
}

func (t *tone) Err() error { return nil }

func (t *tone) Len() int { return t.samples }

func (t *tone) Position() int { return t.pos }

func (t *tone) Seek(p int) error {
	if p < 0 || p > t.samples {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, t.samples)
	}
	t.pos = p
	return nil
}

func clampSample(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
