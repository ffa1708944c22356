// Command server runs the reference-table mapping HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/api"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/app"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr string
		backend    string
		storeRoot  string
		seedFile   string
	)

	cmd := &cobra.Command{
		Use:          "mapping-server",
		Short:        "Reference-table mapping server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}
			// Flags override environment.
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			if backend != "" {
				cfg.StoreBackend = backend
			}
			if storeRoot != "" {
				cfg.StoreRoot = storeRoot
			}
			if seedFile != "" {
				cfg.SeedFile = seedFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&backend, "backend", "", "store backend: memory, file, or s3 (overrides STORE_BACKEND)")
	cmd.Flags().StringVar(&storeRoot, "store-root", "", "root directory or key prefix (overrides STORE_ROOT)")
	cmd.Flags().StringVar(&seedFile, "seed", "", "declarative YAML seed file (overrides SEED_FILE)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Deps{Cfg: cfg, Logger: logger})
	if err != nil {
		return err
	}

	handler := api.NewHandler(a.Service, logger.With("component", "api"))
	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(handler, api.RouterOptions{
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimitRPS:       cfg.RateLimitRPS,
			RateLimitBurst:     cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.ListenAddr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
