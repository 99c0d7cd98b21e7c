package handle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airmath/api/internal/pipeline"
	"airmath/api/internal/recognizer"
	"airmath/api/internal/store"
)

// DefaultOwner is used when a request names no history owner.
const DefaultOwner = "default"

type HistoryStore interface {
	List(ctx context.Context, owner string) ([]store.Entry, error)
	Delete(ctx context.Context, owner, id string) error
	Clear(ctx context.Context, owner string) (int64, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handle struct {
	pipe    *pipeline.Pipeline
	engs    *recognizer.Engines
	history HistoryStore // optional
	db      Pinger       // optional
	timeout time.Duration
	log     *slog.Logger
}

func New(pipe *pipeline.Pipeline, engs *recognizer.Engines, history HistoryStore, db Pinger, timeout time.Duration, log *slog.Logger) *Handle {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handle{pipe: pipe, engs: engs, history: history, db: db, timeout: timeout, log: log}
}

// Routes registers every endpoint on mux.
func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("POST /v1/solve", h.Solve)
	mux.HandleFunc("POST /v1/recognize", h.Recognize)
	mux.HandleFunc("GET /v1/history", h.ListHistory)
	mux.HandleFunc("DELETE /v1/history", h.ClearHistory)
	mux.HandleFunc("DELETE /v1/history/{id}", h.DeleteHistory)
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, recognizer.ErrUnknownEngine):
		return http.StatusBadRequest
	case errors.Is(err, recognizer.ErrNotConfigured), errors.Is(err, pipeline.ErrNoSolver):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func ownerOr(owner string) string {
	if owner == "" {
		return DefaultOwner
	}
	return owner
}
