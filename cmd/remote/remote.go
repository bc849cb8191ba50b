// Package remote serves a small web page and JSON API that control the mixer
// from another device, typically a phone on the same network.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/gigurra/lull/cmd/common"
	"github.com/spf13/cobra"
)

var clipboardWriteAll = clipboard.WriteAll

type Params struct {
	Addr    string `short:"a" optional:"true" help:"Address to listen on. Defaults to the configured remote address."`
	User    string `short:"u" optional:"true" help:"Username for basic auth."`
	Pass    string `optional:"true" help:"Password for basic auth."`
	Catalog string `short:"c" optional:"true" help:"Catalog file or URL. Defaults to the configured or bundled catalog."`
	Base    string `short:"b" optional:"true" help:"Base track to start playing right away."`
	Copy    bool   `optional:"true" help:"Copy the remote URL to the clipboard."`
	NoQR    bool   `long:"no-qr" optional:"true" help:"Do not print a QR code of the URL."`
	Verbose bool   `short:"v" optional:"true" help:"Debug logging."`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "remote",
		Short: "Control the mixer from a phone or browser",
		Long: `Start the mixer and serve a web remote for it.

The page at / lists the catalog and lets you pick a base track, toggle
overlays, change volumes and set a sleep timer. The same operations are
available as a JSON API under /api, and /ws streams the mixer state.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params); err != nil {
				common.Fail("remote", err)
			}
		},
	}.ToCobra()
}

func run(params *Params) error {
	defer common.SetupLogging(params.Verbose, false)()

	ctx, cancel := common.SignalContext()
	defer cancel()

	session, err := common.OpenSession(ctx, common.SessionOptions{CatalogSource: params.Catalog})
	if err != nil {
		return err
	}
	defer session.Close()

	remoteCfg := session.Config.Remote
	addr, user, pass := remoteCfg.Addr, remoteCfg.User, remoteCfg.Password
	if params.Addr != "" {
		addr = params.Addr
	}
	if params.User != "" || params.Pass != "" {
		user, pass = params.User, params.Pass
	}
	if (user == "") != (pass == "") {
		return errors.New("basic auth needs both a user and a password")
	}

	if params.Base != "" {
		if err := session.Mixer.SelectBase(params.Base); err != nil {
			slog.Warn("could not start base track, serving anyway", "base", params.Base, "error", err)
			fmt.Fprintf(os.Stderr, "remote: %v\n", err)
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           newHandler(session.Mixer, session.Catalog, user, pass),
		ReadHeaderTimeout: 10 * time.Second,
	}

	urls, err := reachableURLs(ln.Addr().String())
	if err != nil {
		ln.Close()
		return err
	}
	fmt.Printf("lull remote listening on %s\n", ln.Addr())
	for _, u := range urls {
		fmt.Printf("  %s\n", u)
	}
	if user != "" {
		fmt.Printf("  auth: %s / ****\n", user)
	} else {
		slog.Warn("remote has no authentication, anyone on the network can control playback")
	}
	if !params.NoQR {
		fmt.Println()
		if err := writeQR(os.Stdout, urls[0]); err != nil {
			slog.Warn("failed to render qr code", "error", err)
		}
	}
	if params.Copy {
		if err := clipboardWriteAll(urls[0]); err != nil {
			slog.Warn("failed to copy url", "error", err)
		} else {
			fmt.Println("  URL copied to clipboard")
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	fmt.Println("\nShutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelShutdown()
	// Websocket handlers are hijacked and not waited for by Shutdown.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return srv.Close()
	}
	return nil
}
