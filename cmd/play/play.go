package play

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/lull/cmd/common"
	"github.com/spf13/cobra"
)

type Params struct {
	Base     string   `pos:"true" help:"Base track to loop."`
	Overlays []string `short:"o" optional:"true" help:"Overlay to enable (can be repeated)."`
	Volumes  []string `long:"volume" optional:"true" help:"Volume override as id=0..1 (can be repeated)."`
	Sleep    int      `short:"s" optional:"true" help:"Stop after this many minutes."`
	Catalog  string   `short:"c" optional:"true" help:"Catalog file or URL. Defaults to the configured or bundled catalog."`
	Verbose  bool     `short:"v" optional:"true" help:"Log scheduling decisions."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "play",
		Short:       "Play a soundscape without a UI until interrupted",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params); err != nil {
				common.Fail("play", err)
			}
		},
	}.ToCobra()
}

// Controller is the part of the mixer a headless session needs.
type Controller interface {
	SelectBase(id string) error
	ToggleOverlay(id string) (bool, error)
	SetVolume(id string, v float64) (float64, error)
	StartSleepTimer(d time.Duration) error
}

type plan struct {
	base     string
	overlays []string
	volumes  map[string]float64
	sleep    time.Duration
}

func newPlan(params *Params) (plan, error) {
	if params.Sleep < 0 {
		return plan{}, fmt.Errorf("sleep must be positive, got %d", params.Sleep)
	}
	volumes, err := parseVolumes(params.Volumes)
	if err != nil {
		return plan{}, err
	}
	return plan{
		base:     params.Base,
		overlays: params.Overlays,
		volumes:  volumes,
		sleep:    time.Duration(params.Sleep) * time.Minute,
	}, nil
}

// parseVolumes turns id=value pairs into a map.
func parseVolumes(specs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(specs))
	for _, spec := range specs {
		id, raw, ok := strings.Cut(spec, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid volume %q, want id=value", spec)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid volume %q: %w", spec, err)
		}
		out[id] = v
	}
	return out, nil
}

// start applies volumes before anything plays so nothing starts at the wrong level.
func start(ctl Controller, p plan) error {
	for id, v := range p.volumes {
		if _, err := ctl.SetVolume(id, v); err != nil {
			return err
		}
	}
	if err := ctl.SelectBase(p.base); err != nil {
		return err
	}
	for _, id := range p.overlays {
		enabled, err := ctl.ToggleOverlay(id)
		if err != nil {
			return err
		}
		if !enabled {
			// Listed twice; turn it back on.
			if _, err := ctl.ToggleOverlay(id); err != nil {
				return err
			}
		}
	}
	if p.sleep > 0 {
		return ctl.StartSleepTimer(p.sleep)
	}
	return nil
}

func run(params *Params) error {
	closeLog := common.SetupLogging(params.Verbose, false)
	defer closeLog()

	p, err := newPlan(params)
	if err != nil {
		return err
	}

	ctx, cancel := common.SignalContext()
	defer cancel()

	slept := make(chan struct{})
	var once sync.Once
	s, err := common.OpenSession(ctx, common.SessionOptions{
		CatalogSource:  params.Catalog,
		OnSleepExpired: func() { once.Do(func() { close(slept) }) },
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := start(s.Mixer, p); err != nil {
		return err
	}

	desc := s.Catalog.Title(p.base)
	if len(p.overlays) > 0 {
		titles := make([]string, len(p.overlays))
		for i, id := range p.overlays {
			titles[i] = s.Catalog.Title(id)
		}
		desc += " with " + strings.Join(titles, ", ")
	}
	fmt.Fprintf(os.Stderr, "Playing %s. Press Ctrl+C to stop.\n", desc)

	select {
	case <-ctx.Done():
		slog.Debug("interrupted, stopping")
	case <-slept:
		fmt.Fprintln(os.Stderr, "Sleep timer ended.")
	}
	return nil
}
