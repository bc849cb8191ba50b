package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/lull/cmd/catalog"
	"github.com/gigurra/lull/cmd/config"
	"github.com/gigurra/lull/cmd/pack"
	"github.com/gigurra/lull/cmd/play"
	"github.com/gigurra/lull/cmd/relax"
	"github.com/gigurra/lull/cmd/remote"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "lull",
		Short:   "Ambient soundscapes for focus and sleep",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			relax.Cmd(),
			play.Cmd(),
			remote.Cmd(),
			catalog.Cmd(),
			pack.Cmd(),
			config.Cmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
