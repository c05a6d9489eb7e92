package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adamancini/nudge/internal/logging"
	"github.com/adamancini/nudge/internal/server"
	"github.com/adamancini/nudge/internal/source"
	"github.com/adamancini/nudge/internal/types"
)

func newServeCmd() *cobra.Command {
	var (
		addr         string
		manifestPath string
		noWatch      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a release manifest over HTTP",
		Long: `Serve publishes a manifest file for clients using the http source type.

Routes:
  GET /healthz
  GET /v1/manifest                      whole manifest (JSON, YAML or TOML by Accept)
  GET /v1/platforms/{platform}/latest   latest release for one platform
  GET /v1/latest                        same, platform from ?platform= or User-Agent

Both latest routes accept ?current=<version> to report update_available.
The manifest is reloaded when the file changes unless --no-watch is set.

Without --manifest the manifest path comes from the Nudgefile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr, manifestPath, !noWatch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to the manifest file")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the manifest on change")

	return cmd
}

func runServe(cmd *cobra.Command, addr, manifestPath string, watch bool) error {
	if manifestPath == "" {
		n, err := loadNudgefile(cmd)
		if err != nil {
			return fmt.Errorf("no --manifest given and %w", err)
		}
		if n.Source.Type != types.SourceTypeManifest {
			return fmt.Errorf("no --manifest given and the Nudgefile source type is %s, not manifest", n.Source.Type)
		}
		manifestPath = n.ResolvePath(expandHomePath(n.Source.Manifest.Path))
	}

	src := source.NewFileSource(manifestPath, source.Options{})
	if err := src.Reload(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		go func() {
			err := src.Watch(ctx, func(err error) {
				if err == nil {
					logging.Info("manifest reloaded", "path", manifestPath)
				}
			})
			if err != nil {
				logging.Error("manifest watch stopped", "error", err)
			}
		}()
	}

	if !quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on %s\n", manifestPath, addr)
	}
	return server.New(src).ListenAndServe(ctx, addr)
}
