package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/designview/internal/logger"
	"github.com/taigrr/designview/internal/server"
	"github.com/taigrr/designview/pkg/catalog"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API, design files and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, watch)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the catalog when its file changes")
	return cmd
}

func (a *app) serve(ctx context.Context, watch bool) error {
	log := logger.Named("server")

	cat, err := catalog.Load(a.cfg.Catalog.Path)
	if err != nil {
		return err
	}
	srv := server.New(cat, catalog.Storage{Dir: a.cfg.Catalog.StorageDir}, server.Options{
		PublicURL: a.cfg.Server.PublicURL,
		Logger:    log,
	})
	srv.UpdateCatalogGauges()

	httpSrv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var w *catalog.Watcher
	if watch {
		w, err = catalog.NewWatcher(a.cfg.Catalog.Path, cat, catalog.DefaultDebounce, logger.Named("catalog"))
		if err != nil {
			return err
		}
		w.OnReload = func(err error) {
			srv.Metrics().ObserveReload(err)
			srv.UpdateCatalogGauges()
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if w != nil {
		g.Go(func() error { return w.Run(ctx) })
	}
	g.Go(func() error {
		log.Info("listening", zap.String("addr", httpSrv.Addr), zap.String("catalog", a.cfg.Catalog.Path))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
