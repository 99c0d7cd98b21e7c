package handle

import (
	"errors"
	"net/http"

	"airmath/api/internal/store"
)

func (h *Handle) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is disabled", http.StatusServiceUnavailable)
		return
	}
	entries, err := h.history.List(r.Context(), ownerOr(r.URL.Query().Get("owner")))
	if err != nil {
		http.Error(w, "history error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handle) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is disabled", http.StatusServiceUnavailable)
		return
	}
	err := h.history.Delete(r.Context(), ownerOr(r.URL.Query().Get("owner")), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, "history error: "+err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handle) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "history is disabled", http.StatusServiceUnavailable)
		return
	}
	n, err := h.history.Clear(r.Context(), ownerOr(r.URL.Query().Get("owner")))
	if err != nil {
		http.Error(w, "history error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
