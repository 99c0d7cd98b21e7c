package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airmath/api/internal/config"
	"airmath/api/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Port:           "8000",
		LogLevel:       "info",
		Gemini:         config.GeminiConfig{Model: "gemini-1.5-flash"},
		Database:       config.DatabaseConfig{Driver: store.DriverSQLite, URL: filepath.Join(t.TempDir(), "app.db")},
		HistoryLimit:   10,
		RequestTimeout: time.Second,
		RetryAttempts:  1,
	}
}

func TestNew_NoEngines(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Empty(t, a.Engines.Names())
	assert.Nil(t, a.DefaultEngine())

	out, err := a.Pipeline.SolveText(context.Background(), "cli", "**Equation:** $1+1$ **Final Answer:** $2$", false)
	require.NoError(t, err)
	assert.Equal(t, "2", out.Solution.Result)

	entries, err := a.History.List(context.Background(), "cli")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, out.EntryID, entries[0].ID)
}

func TestNew_BothEngines(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gemini.APIKey = "g"
	cfg.Vision.APIKey = "v"

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini", "vision"}, a.Engines.Names())
	assert.Equal(t, "gemini", a.DefaultEngine().Name())
	_, ok := a.Engines.Solver()
	assert.True(t, ok)
	assert.NoError(t, a.Close())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.True(t, NewLogger(io.Discard, "debug").Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewLogger(io.Discard, "bogus").Enabled(context.Background(), slog.LevelDebug))
}
