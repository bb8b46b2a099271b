// Package app holds the resources one command run shares: configuration, the
// database pool, the stores on top of it, and the course cache.
package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/cvickery/rules-archive/internal/archive"
	"github.com/cvickery/rules-archive/internal/catalog"
	"github.com/cvickery/rules-archive/internal/config"
	"github.com/cvickery/rules-archive/internal/database"
	"github.com/cvickery/rules-archive/internal/describe"
	"github.com/cvickery/rules-archive/internal/models"
	"github.com/cvickery/rules-archive/internal/snapshot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Logger *zap.SugaredLogger
	DB     database.DBManager

	pool  *pgxpool.Pool
	cache *catalog.Cache
}

// Connect opens the database pool and builds the stores from cfg.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db := database.NewPostgresDBManager(pool, cfg.CatalogTable, cfg.ProgressInterval, logger)
	return &App{Config: cfg, Logger: logger, DB: db, pool: pool}, nil
}

// New builds an App on an existing store, without a pool of its own.
func New(cfg *config.Config, db database.DBManager, logger *zap.SugaredLogger) *App {
	return &App{Config: cfg, Logger: logger, DB: db}
}

func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Cache builds the course cache on first use.
func (a *App) Cache(ctx context.Context) (*catalog.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	cache, err := catalog.Build(ctx, a.DB, a.Logger)
	if err != nil {
		return nil, err
	}
	a.cache = cache
	return cache, nil
}

func (a *App) Loader() *snapshot.Loader {
	return snapshot.NewLoader(a.DB, archive.NewLocator(a.Config.ArchiveDir, a.Logger), a.Logger)
}

func (a *App) Generator(ctx context.Context) (*describe.Generator, error) {
	cache, err := a.Cache(ctx)
	if err != nil {
		return nil, err
	}
	return describe.NewGenerator(a.DB, cache, a.Config.DescriptionBatchSize, a.Logger), nil
}

func (a *App) Selector(ctx context.Context) (*describe.Selector, error) {
	cache, err := a.Cache(ctx)
	if err != nil {
		return nil, err
	}
	return describe.NewSelector(a.DB, cache, a.Logger), nil
}

// ResolveSchema validates an explicit snapshot name, or picks the most recent snapshot.
func (a *App) ResolveSchema(ctx context.Context, schema string) (string, error) {
	snapshots, err := a.DB.ListSnapshots(ctx)
	if err != nil {
		return "", err
	}
	if schema == "" {
		if len(snapshots) == 0 {
			return "", fmt.Errorf("%w: no snapshots have been loaded", models.ErrSnapshotNotFound)
		}
		sort.Strings(snapshots)
		return snapshots[len(snapshots)-1], nil
	}
	if err := database.ValidateSchemaName(schema); err != nil {
		return "", err
	}
	for _, s := range snapshots {
		if s == schema {
			return schema, nil
		}
	}
	return "", fmt.Errorf("%w: %s", models.ErrSnapshotNotFound, schema)
}
