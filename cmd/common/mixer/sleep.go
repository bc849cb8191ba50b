package mixer

import (
	"fmt"
	"time"
)

type sleepTimer struct {
	token    uint64
	deadline time.Time
	timer    Timer
}

type sleepExpired struct {
	token uint64
}

// StartSleepTimer resets the mixer after d. A running sleep timer is replaced.
func (m *Mixer) StartSleepTimer(d time.Duration) error {
	return m.call(func() error {
		if d <= 0 {
			return m.fail(&SoundError{Op: "sleep", Kind: ErrInvalidState, Err: fmt.Errorf("duration must be positive, got %v", d)})
		}
		m.cancelSleep()
		token := m.newToken()
		m.sleep = &sleepTimer{
			token:    token,
			deadline: m.now().Add(d),
			timer:    m.clock.AfterFunc(d, func() { m.post(sleepExpired{token: token}) }),
		}
		m.log.Info("sleep timer started", "duration", d)
		return nil
	})
}

// CancelSleepTimer stops a running sleep timer. It is a no-op when none runs.
func (m *Mixer) CancelSleepTimer() error {
	return m.call(func() error {
		if m.sleep != nil {
			m.log.Info("sleep timer cancelled")
		}
		m.cancelSleep()
		return nil
	})
}

func (m *Mixer) cancelSleep() {
	if m.sleep == nil {
		return
	}
	m.sleep.timer.Stop()
	m.sleep = nil
}

func (m *Mixer) sleepRemaining() time.Duration {
	if m.sleep == nil {
		return 0
	}
	return max(m.sleep.deadline.Sub(m.now()), 0)
}

func (m *Mixer) onSleepExpired(ev sleepExpired) {
	if m.sleep == nil || m.sleep.token != ev.token {
		return
	}
	m.sleep = nil
	m.log.Info("sleep timer expired, stopping all sounds")
	_ = m.resetAll()
	if m.onSleep != nil {
		go m.onSleep()
	}
}
