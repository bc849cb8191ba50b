package relax

import (
	"context"
	"errors"
	"log/slog"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gigurra/lull/cmd/common"
	"github.com/gigurra/lull/cmd/common/audio"
	"github.com/gigurra/lull/cmd/common/termui"
	"github.com/spf13/cobra"
)

type Params struct {
	Catalog string `short:"c" optional:"true" help:"Catalog file or URL. Defaults to the configured or bundled catalog."`
	Base    string `short:"b" optional:"true" help:"Base track to start right away."`
	Verbose bool   `short:"v" optional:"true" help:"Write debug records to the log file."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "relax",
		Short:       "Mix ambient sounds in an interactive terminal UI",
		Long:        "Pick a looping base track and layer overlay sounds that replay at random intervals.\nLogs go to ~/.cache/lull/lull.log.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params); err != nil {
				common.Fail("relax", err)
			}
		},
	}.ToCobra()
}

func run(params *Params) error {
	if !termui.IsTerminal() {
		return errors.New("needs an interactive terminal, use 'lull play' for headless playback")
	}
	closeLog := common.SetupLogging(params.Verbose, true)
	defer closeLog()

	if !audio.AudioAvailable {
		slog.Warn("built without audio support, every sound will fail to load")
	}

	errs := make(chan error, 8)
	s, err := common.OpenSession(context.Background(), common.SessionOptions{
		CatalogSource: params.Catalog,
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	// A base that fails to start is reported in the UI, not fatal.
	var startErr error
	if params.Base != "" {
		startErr = s.Mixer.SelectBase(params.Base)
	}

	m := newModel(s.Mixer, s.Catalog, s.SleepPresets(), errs).withStartError(startErr)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
