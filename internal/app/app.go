// Package app wires the store backend, façade service, and optional seed
// data from configuration. Backend selection happens here, at construction
// time — never at runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/config"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/declarative"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/service"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/store"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Store   domain.ReferenceTableStore
	Service *service.MappingService
}

// New selects the store backend from config, wires the façade, and applies
// the declarative seed when one is configured.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}
	deps.Logger.Info("store backend selected", "backend", cfg.StoreBackend)

	svc := service.NewMappingService(st, deps.Logger.With("component", "mapping-service"))

	if cfg.SeedFile != "" {
		seed, err := declarative.Load(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		if err := declarative.Apply(ctx, seed, svc, deps.Logger.With("component", "seed")); err != nil {
			return nil, fmt.Errorf("apply seed: %w", err)
		}
	}

	return &App{Store: st, Service: svc}, nil
}

func buildStore(cfg *config.Config) (domain.ReferenceTableStore, error) {
	layout := store.Layout{ConfigDir: cfg.ConfigFolder, DataDir: cfg.DataFolder}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendFile:
		return store.NewFileStore(store.NewLocalProvider(cfg.StoreRoot), layout), nil
	case config.BackendS3:
		provider := store.NewS3Provider(store.S3Options{
			KeyID:    *cfg.S3KeyID,
			Secret:   *cfg.S3Secret,
			Endpoint: *cfg.S3Endpoint,
			Region:   *cfg.S3Region,
			Bucket:   *cfg.S3Bucket,
			Prefix:   cfg.StoreRoot,
		})
		return store.NewFileStore(provider, layout), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
