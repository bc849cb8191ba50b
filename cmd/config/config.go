package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/lull/cmd/common"
	sndcat "github.com/gigurra/lull/cmd/common/catalog"
	"github.com/gigurra/lull/cmd/common/config"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "config",
		Short: "Show or create the lull config file",
		SubCmds: []*cobra.Command{
			showCmd(),
			initCmd(),
		},
	}.ToCobra()
}

type ShowParams struct{}

func showCmd() *cobra.Command {
	return boa.CmdT[ShowParams]{
		Use:   "show",
		Short: "Print the effective config, defaults included",
		RunFunc: func(params *ShowParams, cmd *cobra.Command, args []string) {
			if err := runShow(os.Stdout, config.ConfigPath()); err != nil {
				common.Fail("config show", err)
			}
		},
	}.ToCobra()
}

type InitParams struct {
	Force         bool `short:"f" optional:"true" help:"Overwrite an existing config file."`
	Notifications bool `short:"n" optional:"true" help:"Enable desktop notifications."`
	Catalog       bool `optional:"true" help:"Write the bundled catalog next to the config so it can be edited."`
}

func initCmd() *cobra.Command {
	return boa.CmdT[InitParams]{
		Use:         "init",
		Short:       "Write a config file with default settings",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *InitParams, cmd *cobra.Command, args []string) {
			if err := runInit(os.Stdout, config.ConfigPath(), params); err != nil {
				common.Fail("config init", err)
			}
		},
	}.ToCobra()
}

func runShow(w io.Writer, path string) error {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	if cfg.Remote.Password != "" {
		cfg.Remote.Password = "****"
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	source := path
	if _, err := os.Stat(path); os.IsNotExist(err) {
		source += " (not created yet, showing defaults)"
	}
	fmt.Fprintf(w, "# %s\n%s\n", source, data)
	return nil
}

func runInit(w io.Writer, path string, params *InitParams) error {
	if _, err := os.Stat(path); err == nil && !params.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	cfg := config.DefaultConfig()
	cfg.Notifications.Enabled = params.Notifications

	if params.Catalog {
		catPath := filepath.Join(filepath.Dir(path), "catalog.json")
		data, err := sndcat.Default().Marshal()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(catPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(catPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		cfg.Catalog = catPath
		fmt.Fprintf(w, "✓ Catalog written to %s\n", catPath)
	}

	if err := config.SaveTo(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Config written to %s\n", path)

	if err := os.MkdirAll(cfg.SoundsDir, 0755); err != nil {
		return fmt.Errorf("failed to create sounds dir: %w", err)
	}
	fmt.Fprintf(w, "  Put sounds in %s or install a pack with: lull pack install <archive>\n", cfg.SoundsDir)
	return nil
}
