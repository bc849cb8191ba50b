// Package notify sends desktop notifications for mixer events.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/gigurra/lull/cmd/common/config"
)

const (
	EventSleep = "sleep"
	EventError = "error"
)

func init() {
	beeep.AppName = "lull"
}

// Notifier rate-limits notifications per event kind.
type Notifier struct {
	cfg  *config.NotificationConfig
	send func(title, body string) error
	now  func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// New creates a notifier. A nil or disabled config makes it a no-op.
func New(cfg *config.NotificationConfig) *Notifier {
	return &Notifier{
		cfg:  cfg,
		send: platformSend,
		now:  time.Now,
		last: make(map[string]time.Time),
	}
}

// Notify shows a notification unless the event is not configured or one of
// the same kind was shown within the cooldown. It reports whether one was sent.
func (n *Notifier) Notify(event, title, body string) bool {
	if n == nil || !n.cfg.Matches(event) {
		return false
	}

	cooldown := time.Duration(n.cfg.CooldownSeconds) * time.Second
	n.mu.Lock()
	now := n.now()
	if last, ok := n.last[event]; ok && now.Sub(last) < cooldown {
		n.mu.Unlock()
		return false
	}
	n.last[event] = now
	n.mu.Unlock()

	if err := n.send(title, body); err != nil {
		slog.Warn("notification failed", "event", event, "title", title, "error", err)
		return false
	}
	return true
}

func platformSend(title, body string) error {
	return beeep.Notify(title, body, "")
}
