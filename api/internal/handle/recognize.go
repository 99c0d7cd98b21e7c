package handle

import (
	"context"
	"net/http"

	"airmath/api/internal/util"
)

type RecognizeRequest struct {
	ImageB64 string `json:"image_b64"`
	Mime     string `json:"mime"`
	Engine   string `json:"engine"`
	Owner    string `json:"owner"`
}

func (h *Handle) Recognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := decodeBody(r, recognizeRequestSchema, 20<<20, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	img, mimeHint, err := util.DecodeBase64MaybeDataURL(req.ImageB64)
	if err != nil || len(img) == 0 {
		http.Error(w, "bad image_b64", http.StatusBadRequest)
		return
	}

	engine, err := h.engs.GetEngine(req.Engine)
	if err != nil {
		http.Error(w, "engine error: "+err.Error(), statusFor(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	mime := util.PickMIME(req.Mime, mimeHint, img)
	out, err := h.pipe.SolveImage(ctx, ownerOr(req.Owner), engine, img, mime)
	if err != nil {
		h.log.Error("handle.recognize_failed", "engine", engine.Name(), "error", err)
		http.Error(w, "recognize error: "+err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
