package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/designview/internal/logger"
	"github.com/taigrr/designview/pkg/viewer"
)

// idleScheduler never ticks; the snapshot renders its one frame on demand.
type idleScheduler struct{}

func (idleScheduler) C() <-chan time.Time { return nil }
func (idleScheduler) Stop()               {}

func (a *app) snapshotCmd() *cobra.Command {
	var (
		sel    selection
		out    string
		width  int
		height int
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot [url]",
		Short: "Render a design to a PNG without a terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ref, err := sel.reference(ctx, args)
			if err != nil {
				return err
			}
			if width <= 0 {
				width = a.cfg.Viewer.Width
			}
			if height <= 0 {
				height = a.cfg.Viewer.Height
			}

			snap, err := a.snapshot(ctx, ref, width, height, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, %s)\n", out, width, height, viewer.Classify(snap.Err))
			if strict && snap.Err != nil {
				return fmt.Errorf("design did not load: %w", snap.Err)
			}
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "design.png", "PNG file to write")
	cmd.Flags().IntVar(&width, "width", 0, "image width in pixels (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "image height in pixels (default from config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the design falls back to the placeholder")
	return cmd
}

// snapshot loads ref headlessly, renders one settled frame and writes it
// to path.
func (a *app) snapshot(ctx context.Context, ref viewer.DesignReference, width, height int, path string) (viewer.Snapshot, error) {
	log := logger.Named("viewer")
	opts, err := viewerOptions(a.cfg, log)
	if err != nil {
		return viewer.Snapshot{}, err
	}
	opts.Scheduler = idleScheduler{}

	host := viewer.NewHeadlessHost(width, height)
	v := viewer.New(host, newLoader(a.cfg, log), opts)
	if err := v.Activate(ctx, ref); err != nil {
		v.Dispose()
		return viewer.Snapshot{}, err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- v.Run(ctx) }()
	defer func() {
		v.Dispose()
		<-runErr
	}()

	waitCtx, cancel := context.WithTimeout(ctx, opts.LoadTimeout+5*time.Second)
	defer cancel()
	if err := v.Settle(waitCtx); err != nil {
		return viewer.Snapshot{}, fmt.Errorf("wait for design: %w", err)
	}
	if err := v.Frame(waitCtx); err != nil {
		return viewer.Snapshot{}, fmt.Errorf("render frame: %w", err)
	}
	snap, err := v.Snapshot(waitCtx)
	if err != nil {
		return viewer.Snapshot{}, err
	}

	f, err := os.Create(path)
	if err != nil {
		return snap, fmt.Errorf("create %s: %w", path, err)
	}
	if err := host.Image().WritePNG(f); err != nil {
		f.Close()
		return snap, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return snap, fmt.Errorf("write %s: %w", path, err)
	}

	log.Info("snapshot written",
		zap.String("path", path),
		zap.String("url", string(ref)),
		zap.Bool("placeholder", snap.Model != nil && snap.Model.Placeholder))
	return snap, nil
}
