package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/db"
	"github.com/lectern-ai/lectern/internal/answer"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/index"
	"github.com/lectern-ai/lectern/internal/ingest"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/model"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// app holds every wired component for the lifetime of one command.
type app struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Store    *index.Store
	Sessions *session.Memory
	Registry *tools.Registry
	System   *rag.System
}

// setup loads configuration, connects to PostgreSQL, runs migrations and
// wires the full pipeline.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: logLevel()})

	pool, err := pgxpool.New(ctx, cfg.ConnURL())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := db.Migrate(cfg.ConnURL(), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	g, embedder, err := model.Init(ctx, cfg.EmbedderModel)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("initializing genkit: %w", err)
	}

	store := index.New(index.NewPGQuerier(pool), embedder, logger)
	sessions := session.NewMemory(cfg.MaxHistoryTurns, logger)

	registry := tools.NewRegistry(logger)
	if err := registry.Register(tools.NewCourseSearch(store, cfg.MaxSearchResults, cfg.CourseMatchThreshold, logger)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registering search tool: %w", err)
	}
	if err := registry.Register(tools.NewCourseOutline(store, cfg.CourseMatchThreshold, logger)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registering outline tool: %w", err)
	}
	tools.RegisterGenkit(g, registry)

	client := model.NewClient(g, cfg.ModelName, nil, logger)
	orchestrator := answer.New(client, registry, cfg.MaxToolRounds, logger)
	processor := ingest.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap, logger)
	system := rag.New(store, sessions, orchestrator, processor, logger)

	return &app{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Store:    store,
		Sessions: sessions,
		Registry: registry,
		System:   system,
	}, nil
}

// Close releases held resources.
func (a *app) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// logLevel reads LECTERN_LOG_LEVEL from the environment. Unset or
// unknown values fall back to info.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LECTERN_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
