package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/autoinstall/internal/cloudinit"
	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/logger"
	"github.com/yanizio/autoinstall/internal/metrics"
	"github.com/yanizio/autoinstall/internal/requestinfo"
	"github.com/yanizio/autoinstall/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Resolve the configuration and serve documents over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	// Console-only logger until the snapshot says where logs go.
	boot, err := logger.New(logger.Options{Console: out})
	if err != nil {
		return err
	}

	snap, diag, err := resolveConfig(ctx, opts)
	if err != nil {
		boot.Errorw("configuration rejected, not starting", "err", err)
		return err
	}

	log, err := logger.New(logger.Options{Level: snap.Logging.Level, Dir: snap.Logging.Dir, Console: out})
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	reportDiagnostics(log, snap, diag)

	renderer, err := cloudinit.New(snap.Variant)
	if err != nil {
		return err
	}

	geo, err := requestinfo.OpenGeo(snap.GeoIPDB)
	if err != nil {
		log.Warnw("geoip disabled", "db", snap.GeoIPDB, "err", err)
		geo = nil
	}
	defer func() { _ = geo.Close() }()

	addr := server.Addr(snap.ServerHost, snap.ServerPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorw("bind failed", "addr", addr, "err", err)
		return err
	}

	fmt.Fprintln(out, renderBanner(snap, addr))

	srv := server.New(addr, server.NewRouter(server.Deps{
		Snapshot: snap,
		Renderer: cloudinit.NewCached(renderer, cloudinit.DefaultCacheSize),
		Log:      log,
		Geo:      geo,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("listening", "addr", ln.Addr().String(), "variant", snap.Variant)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func reportDiagnostics(log *zap.SugaredLogger, snap config.Snapshot, diag config.Diagnostics) {
	for _, n := range diag.Notes {
		log.Infow(n)
	}
	if len(diag.EnvApplied) > 0 {
		log.Infow("environment overrides applied", "vars", diag.EnvApplied)
	}
	for _, w := range diag.Warnings {
		log.Warnw(w)
	}
	metrics.ConfigWarnings.Set(float64(len(diag.Warnings)))

	log.Infow("config resolved",
		"username", snap.Username,
		"server_host", snap.ServerHost,
		"server_port", snap.ServerPort,
		"storage_layout", snap.StorageLayout,
		"variant", snap.Variant,
		"ssh_key_fingerprint", snap.SSHKeyFingerprint(),
	)
}
