// Package factory selects and constructs a store.Store backend based on
// configuration, mirroring the registry pattern used to dispatch between
// storage backends in the teacher codebase.
package factory

import (
	"context"
	"fmt"

	"github.com/brightfunnel/disposition/internal/config"
	"github.com/brightfunnel/disposition/internal/store"
	"github.com/brightfunnel/disposition/internal/store/memory"
	"github.com/brightfunnel/disposition/internal/store/mysql"
	"github.com/brightfunnel/disposition/internal/store/postgres"
)

const (
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendMemory   = "memory"
)

// BackendFactory constructs a store.Store from database configuration.
type BackendFactory func(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error)

var backendRegistry = map[string]BackendFactory{
	BackendPostgres: func(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
		return postgres.Open(ctx, cfg)
	},
	BackendMySQL: func(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
		return mysql.Open(ctx, cfg)
	},
	BackendMemory: func(ctx context.Context, _ config.DatabaseConfig) (store.Store, error) {
		return memory.New(), nil
	},
}

// RegisterBackend registers an additional backend factory, letting callers
// (tests, alternate binaries) extend the set without modifying this package.
func RegisterBackend(name string, f BackendFactory) {
	backendRegistry[name] = f
}

// New constructs the store.Store named by cfg.Driver.
func New(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	f, ok := backendRegistry[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unknown store backend %q (supported: postgres, mysql, memory)", cfg.Driver)
	}
	return f(ctx, cfg)
}
