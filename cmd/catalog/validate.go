package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/fsnotify/fsnotify"
	"github.com/gigurra/lull/cmd/common"
	"github.com/gigurra/lull/cmd/common/audio"
	sndcat "github.com/gigurra/lull/cmd/common/catalog"
	"github.com/gigurra/lull/cmd/common/config"
	"github.com/spf13/cobra"
)

const debounce = 200 * time.Millisecond

type ValidateParams struct {
	File      string `pos:"true" help:"Catalog file to check."`
	SoundsDir string `short:"d" optional:"true" help:"Directory resource refs are resolved against. Defaults to the configured sounds dir."`
	Watch     bool   `short:"w" optional:"true" help:"Keep running and re-validate whenever the file changes."`
}

func validateCmd() *cobra.Command {
	return boa.CmdT[ValidateParams]{
		Use:         "validate",
		Short:       "Check a catalog file for errors and missing sounds",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ValidateParams, cmd *cobra.Command, args []string) {
			if params.SoundsDir == "" {
				cfg, err := config.Load()
				if err != nil {
					common.Fail("catalog validate", err)
				}
				params.SoundsDir = cfg.SoundsDir
			}

			ok := report(os.Stdout, params.File, params.SoundsDir)
			if !params.Watch {
				if !ok {
					os.Exit(1)
				}
				return
			}

			ctx, cancel := common.SignalContext()
			defer cancel()
			err := watchFile(ctx, params.File, func() {
				fmt.Fprintf(os.Stdout, "\n%s changed\n", params.File)
				report(os.Stdout, params.File, params.SoundsDir)
			})
			if err != nil {
				common.Fail("catalog validate", err)
			}
		},
	}.ToCobra()
}

// checkFile parses path and lists the resources that would fail to play.
func checkFile(path, soundsDir string) (*sndcat.Catalog, []string, error) {
	cat, err := sndcat.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var warnings []string
	check := func(id, ref string) {
		if err := audio.Check(ref, soundsDir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", id, err))
		}
	}
	for _, b := range cat.Bases() {
		check(b.ID, b.Resource)
	}
	for _, o := range cat.Overlays() {
		check(o.ID, o.Resource)
	}
	return cat, warnings, nil
}

// report prints the result of checkFile and reports whether the catalog parsed.
func report(w io.Writer, path, soundsDir string) bool {
	cat, warnings, err := checkFile(path, soundsDir)
	if err != nil {
		fmt.Fprintf(w, "✗ %s: %v\n", path, err)
		return false
	}
	fmt.Fprintf(w, "✓ %s: %d base tracks, %d overlays\n", path, len(cat.Bases()), len(cat.Overlays()))
	for _, warn := range warnings {
		fmt.Fprintf(w, "  ! %s\n", warn)
	}
	return true
}

// watchFile calls onChange after path is written, debounced. It watches the
// parent directory so editors that replace the file are noticed too.
func watchFile(ctx context.Context, path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("catalog file event", "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}
