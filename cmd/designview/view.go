package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taigrr/designview/internal/logger"
	"github.com/taigrr/designview/pkg/viewer"
)

func (a *app) viewCmd() *cobra.Command {
	var sel selection

	cmd := &cobra.Command{
		Use:   "view [url]",
		Short: "Show a design in the terminal",
		Long: `Show a design file in the terminal. Pass its URL, or pick it from a
catalog server with --server, --material and --spec. With neither, a
placeholder cube is shown.

Controls:
  Mouse drag         Orbit
  Right/shift drag   Pan
  Wheel, +/-         Zoom
  Arrows, WASD       Orbit
  r                  Reset view
  ?                  Toggle help
  q, Esc, Ctrl+C     Quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ref, err := sel.reference(ctx, args)
			if err != nil {
				return err
			}
			return a.runTerminal(ctx, ref)
		},
	}
	sel.register(cmd)
	return cmd
}

func (a *app) runTerminal(ctx context.Context, ref viewer.DesignReference) error {
	log := logger.Named("viewer")
	opts, err := viewerOptions(a.cfg, log)
	if err != nil {
		return err
	}

	host, err := viewer.NewTerminalHost()
	if err != nil {
		return err
	}
	if err := host.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := host.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "restore terminal: %v\n", err)
		}
	}()

	v := viewer.New(host, newLoader(a.cfg, log), opts)
	defer v.Dispose()
	if err := v.Activate(ctx, ref); err != nil {
		return err
	}
	return v.Run(ctx)
}
