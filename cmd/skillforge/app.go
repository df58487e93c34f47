package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/skillforge/skillforge/pkg/db"
	"github.com/skillforge/skillforge/pkg/metacache"
	"github.com/skillforge/skillforge/pkg/skills/repository"
	"github.com/skillforge/skillforge/pkg/store"
)

// app bundles the storage stack shared by the skill commands.
type app struct {
	basePath string
	repo     repository.Repository
	cache    *metacache.Cache
	store    *store.Store
	close    func()
}

func basePath() (string, error) {
	if p := viper.GetString("base_path"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillforge"), nil
}

// openApp opens the database, runs pending migrations, and builds the
// content store with a freshly populated metadata cache.
func openApp(ctx context.Context) (*app, error) {
	base, err := basePath()
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, filepath.Join(base, "skillforge.db"))
	if err != nil {
		return nil, err
	}
	if err := db.NewMigrationRunner(conn).Run(ctx, repository.Migrations()); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	repo := repository.NewSQLite(conn)
	cache := metacache.New(repo, base)
	contentStore, err := store.New(repo, cache, base)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := cache.Rebuild(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to build skill metadata cache")
	}

	return &app{
		basePath: base,
		repo:     repo,
		cache:    cache,
		store:    contentStore,
		close:    func() { conn.Close() },
	}, nil
}
