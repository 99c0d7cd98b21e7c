package handle

import (
	"context"
	"net/http"
)

type SolveRequest struct {
	Text  string `json:"text"`
	LLM   bool   `json:"llm"`
	Owner string `json:"owner"`
}

// Solve extracts a structured solution from typed text, optionally asking
// the model to solve it first.
func (h *Handle) Solve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := decodeBody(r, solveRequestSchema, 64<<10, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := h.pipe.SolveText(ctx, ownerOr(req.Owner), req.Text, req.LLM)
	if err != nil {
		http.Error(w, "solve error: "+err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, out.Solution)
}
