package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/pinlock/datastore"
	dsmemory "github.com/jmcleod/pinlock/datastore/memory"
	"github.com/jmcleod/pinlock/datastore/postgres"
	"github.com/jmcleod/pinlock/identity"
	"github.com/jmcleod/pinlock/identity/gotrue"
	"github.com/jmcleod/pinlock/identity/local"
	"github.com/jmcleod/pinlock/internal/config"
	"github.com/jmcleod/pinlock/internal/logger"
	"github.com/jmcleod/pinlock/session"
	"github.com/jmcleod/pinlock/storage"
	bboltstorage "github.com/jmcleod/pinlock/storage/bbolt"
	"github.com/jmcleod/pinlock/storage/memory"
	"github.com/jmcleod/pinlock/storage/sqlite"
)

// openStore opens the configured local store. The returned close function
// is never nil.
func openStore(cfg config.StoreConfig) (storage.Store, func() error, error) {
	noop := func() error { return nil }
	if cfg.Driver == "memory" {
		return memory.NewStore(), noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, noop, fmt.Errorf("failed to create data directory: %w", err)
	}
	switch cfg.Driver {
	case "bbolt":
		s, err := bboltstorage.NewStoreFromFile(cfg.Path, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open bbolt store (is a server already using it?): %w", err)
		}
		return s, s.Close, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

func newLocalSession(ctx context.Context, cfg *config.Config, store storage.Store, log *logger.Logger) (*session.LocalSession, error) {
	opts := []session.LocalOption{
		session.WithIterations(cfg.KDF.Iterations),
		session.WithLimiter(session.LimiterConfig{
			MaxFailures: cfg.Limiter.MaxFailures,
			BaseLockout: cfg.Limiter.BaseLockout,
			MaxLockout:  cfg.Limiter.MaxLockout,
		}),
		session.WithLogger(log),
	}
	if cfg.KDF.FixedSalt {
		opts = append(opts, session.WithFixedSalt())
	}
	return session.NewLocalSession(ctx, store, opts...)
}

func newIdentityProvider(cfg config.IdentityConfig, log *logger.Logger) (identity.Provider, error) {
	switch cfg.Driver {
	case "gotrue":
		return gotrue.NewClient(gotrue.Config{URL: cfg.URL, APIKey: cfg.APIKey}), nil
	case "local":
		p := local.New()
		if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
			log.Warn().Msg("local identity driver has no seed account; sign-in will fail")
			return p, nil
		}
		if _, err := p.AddUser(cfg.SeedEmail, cfg.SeedPassword); err != nil {
			return nil, fmt.Errorf("failed to seed local identity account: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("unsupported identity driver %q", cfg.Driver)
}

// newGateway connects to Postgres when a DSN is configured and otherwise
// serves the business tables from memory.
func newGateway(ctx context.Context, cfg config.DatastoreConfig, log *logger.Logger) (datastore.Gateway, func(), error) {
	if cfg.DSN == "" {
		log.Warn().Msg("no datastore.dsn configured; business tables are kept in memory")
		return dsmemory.NewGateway(), func() {}, nil
	}
	gw, err := postgres.NewGatewayFromDSN(ctx, cfg.DSN)
	if err != nil {
		return nil, func() {}, err
	}
	return gw, gw.Close, nil
}
