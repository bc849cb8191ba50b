package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/lull/cmd/common"
	"github.com/gigurra/lull/cmd/common/audio"
	sndcat "github.com/gigurra/lull/cmd/common/catalog"
	"github.com/gigurra/lull/cmd/common/config"
	"github.com/gigurra/lull/cmd/common/termui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "catalog",
		Short: "Inspect and validate sound catalogs",
		SubCmds: []*cobra.Command{
			listCmd(),
			validateCmd(),
		},
	}.ToCobra()
}

type ListParams struct {
	Catalog string `short:"c" optional:"true" help:"Catalog file or URL. Defaults to the configured or bundled catalog."`
	Kind    string `short:"k" optional:"true" help:"Which sounds to list." default:"all" alts:"all,base,overlay"`
	JSON    bool   `optional:"true" help:"Print the catalog document instead of a table."`
}

func listCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:         "list",
		Short:       "List base tracks and overlay sounds",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				common.Fail("catalog list", err)
			}
			src := cfg.Catalog
			if params.Catalog != "" {
				src = params.Catalog
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			cat, err := sndcat.Resolve(ctx, src)
			if err != nil {
				common.Fail("catalog list", err)
			}
			if err := runList(os.Stdout, cat, params, cfg.SoundsDir, termui.TerminalWidth()); err != nil {
				common.Fail("catalog list", err)
			}
		},
	}.ToCobra()
}

// runList renders the catalog. A width of 0 leaves rows untruncated.
func runList(w io.Writer, cat *sndcat.Catalog, params *ListParams, soundsDir string, width int) error {
	if params.JSON {
		data, err := cat.Marshal()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(width)
	t.AppendHeader(table.Row{"ID", "Kind", "Title", "Resource", "Replays every", ""})

	if params.Kind != "overlay" {
		for _, b := range cat.Bases() {
			t.AppendRow(table.Row{b.ID, "base", b.Title, b.Resource, "loops", availability(b.Resource, soundsDir)})
		}
	}
	if params.Kind != "base" {
		for _, o := range cat.Overlays() {
			interval := fmt.Sprintf("%v to %v", o.MinInterval(), o.MaxInterval())
			t.AppendRow(table.Row{o.ID, "overlay", o.Title, o.Resource, interval, availability(o.Resource, soundsDir)})
		}
	}
	t.Render()
	return nil
}

func availability(ref, soundsDir string) string {
	if err := audio.Check(ref, soundsDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "missing"
		}
		return "unplayable"
	}
	return "ok"
}
