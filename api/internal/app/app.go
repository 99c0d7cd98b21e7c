package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"airmath/api/internal/config"
	"airmath/api/internal/pipeline"
	"airmath/api/internal/recognizer"
	"airmath/api/internal/recognizer/gemini"
	"airmath/api/internal/recognizer/vision"
	"airmath/api/internal/store"
)

// App holds the dependencies shared by the bot, the HTTP API and the CLI.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	History  *store.HistoryRepo
	Engines  *recognizer.Engines
	Pipeline *pipeline.Pipeline
	Log      *slog.Logger

	closers []io.Closer
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	log.Info("db.connected", "driver", cfg.Database.Driver, "dsn", store.SafeDSNSummary(cfg.Database.Driver, cfg.Database.URL))

	repo := store.NewHistoryRepo(db, cfg.Database.Driver, cfg.HistoryLimit)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{Config: cfg, DB: db, History: repo, Log: log, closers: []io.Closer{db}}
	a.Engines = a.buildEngines()
	a.Pipeline = pipeline.New(a.Engines, repo, log)
	log.Info("engines.ready", "engines", strings.Join(a.Engines.Names(), ","))
	return a, nil
}

func (a *App) buildEngines() *recognizer.Engines {
	engs := &recognizer.Engines{}
	if a.Config.Gemini.APIKey != "" {
		engs.Gemini = gemini.New(a.Config.Gemini.APIKey, a.Config.Gemini.Model, a.Config.PromptDir, a.Config.RetryAttempts)
	}
	if a.Config.Vision.APIKey != "" {
		v := vision.New(a.Config.Vision.APIKey, a.Config.RetryAttempts)
		engs.Vision = v
		a.closers = append(a.closers, v)
	}
	return engs
}

// DefaultEngine prefers gemini and falls back to vision.
func (a *App) DefaultEngine() recognizer.Engine {
	if a.Engines.Gemini != nil {
		return a.Engines.Gemini
	}
	return a.Engines.Vision
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds a text logger for the given level name.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}))
}
