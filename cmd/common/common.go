package common

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/lull/cmd/common/audio"
	"github.com/gigurra/lull/cmd/common/catalog"
	"github.com/gigurra/lull/cmd/common/config"
	"github.com/gigurra/lull/cmd/common/mixer"
	"github.com/gigurra/lull/cmd/common/notify"
)

func DefaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

// Fail prints a command error the same way for every subcommand and exits.
func Fail(cmd string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
	os.Exit(1)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Session is everything a frontend needs to drive the mixer.
type Session struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Mixer    *mixer.Mixer
	Notifier *notify.Notifier
	backend  *audio.SpeakerBackend
}

// SessionOptions lets a frontend hook into asynchronous mixer events.
type SessionOptions struct {
	// CatalogSource overrides the configured catalog.
	CatalogSource  string
	OnError        func(error)
	OnSleepExpired func()
}

// OpenSession loads config and catalog and starts a mixer on the speaker.
func OpenSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	src := cfg.Catalog
	if opts.CatalogSource != "" {
		src = opts.CatalogSource
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	cat, err := catalog.Resolve(fetchCtx, src)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Config:   cfg,
		Catalog:  cat,
		Notifier: notify.New(cfg.Notifications),
		backend:  audio.NewBackend(cfg.SoundsDir),
	}
	s.Mixer = mixer.New(cat, s.backend, mixer.Options{
		BaseVolume:    cfg.Volumes.Base,
		OverlayVolume: cfg.Volumes.Overlay,
		OnError: func(err error) {
			s.Notifier.Notify(notify.EventError, "lull", err.Error())
			if opts.OnError != nil {
				opts.OnError(err)
			}
		},
		OnSleepExpired: func() {
			s.Notifier.Notify(notify.EventSleep, "lull", "Sleep timer ended, sounds stopped")
			if opts.OnSleepExpired != nil {
				opts.OnSleepExpired()
			}
		},
	})
	return s, nil
}

// Close stops the mixer and releases the audio device.
func (s *Session) Close() error {
	mixErr := s.Mixer.Close()
	if err := s.backend.Close(); err != nil {
		return err
	}
	return mixErr
}

// SleepPresets returns the configured sleep timer durations.
func (s *Session) SleepPresets() []time.Duration {
	out := make([]time.Duration, len(s.Config.SleepPresets))
	for i, m := range s.Config.SleepPresets {
		out[i] = time.Duration(m) * time.Minute
	}
	return out
}
