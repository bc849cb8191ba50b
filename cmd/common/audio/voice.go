package audio

import "github.com/gopxl/beep/v2"

// voice is the last stage of a player pipeline. It tells a natural end of the
// media apart from an explicit stop, which a plain beep.Seq callback cannot.
//
// Fields are guarded by the speaker lock once the voice is playing.
type voice struct {
	streamer beep.Streamer
	onEnd    func()
	done     bool
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	if v.done {
		return 0, false
	}
	n, ok := v.streamer.Stream(samples)
	if !ok {
		v.done = true
		if v.onEnd != nil {
			// Own goroutine: the callback may call back into the speaker.
			go v.onEnd()
		}
	}
	return n, ok
}

func (v *voice) Err() error {
	return v.streamer.Err()
}

// stop drains the voice without signalling end-of-media.
func (v *voice) stop() {
	v.done = true
}
