package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airmath/api/internal/pipeline"
	"airmath/api/internal/recognizer"
	"airmath/api/internal/solver"
	"airmath/api/internal/store"
)

const templated = "**Equation:** $2x+3=7$ **Steps to Solve:** 1. **Subtract 3:** $2x=4$ 2. **Divide by 2:** $x=2$ **Final Answer:** $x=2$"

type fakeEngine struct {
	name    string
	text    string
	err     error
	gotMIME string
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return "fake" }
func (f *fakeEngine) Recognize(_ context.Context, _ []byte, mime string) (string, error) {
	f.gotMIME = mime
	return f.text, f.err
}
func (f *fakeEngine) SolveText(context.Context, string) (string, error) { return f.text, f.err }

type memHistory struct {
	entries []store.Entry
	pingErr error
}

func (m *memHistory) Save(_ context.Context, owner, equation, result string) (store.Entry, error) {
	e := store.Entry{ID: "e" + string(rune('0'+len(m.entries))), Owner: owner, Equation: equation, Result: result}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memHistory) List(_ context.Context, owner string) ([]store.Entry, error) {
	out := []store.Entry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Owner == owner {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memHistory) Delete(_ context.Context, owner, id string) error {
	for i, e := range m.entries {
		if e.Owner == owner && e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memHistory) Clear(_ context.Context, owner string) (int64, error) {
	var n int64
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Owner == owner {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return n, nil
}

func (m *memHistory) PingContext(context.Context) error { return m.pingErr }

func newTestServer(t *testing.T, gemini *fakeEngine) (*http.ServeMux, *memHistory) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engs := &recognizer.Engines{}
	if gemini != nil {
		engs.Gemini = gemini
	}
	hist := &memHistory{}
	h := New(pipeline.New(engs, hist, log), engs, hist, hist, time.Second, log)
	mux := http.NewServeMux()
	h.Routes(mux)
	return mux, hist
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	mux, hist := newTestServer(t, nil)

	rec := do(mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	hist.pingErr = errors.New("down")
	rec = do(mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSolve(t *testing.T) {
	mux, hist := newTestServer(t, nil)

	rec := do(mux, http.MethodPost, "/v1/solve", `{"text":"`+strings.ReplaceAll(templated, `\`, `\\`)+`","owner":"bob"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got solver.SolutionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2x+3=7", got.Original)
	assert.Equal(t, "x=2", got.Result)
	assert.Len(t, got.Steps, 2)

	require.Len(t, hist.entries, 1)
	assert.Equal(t, "bob", hist.entries[0].Owner)
}

func TestSolve_BadRequests(t *testing.T) {
	mux, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "not json", body: "{", code: http.StatusBadRequest},
		{name: "missing text", body: `{"owner":"a"}`, code: http.StatusBadRequest},
		{name: "empty text", body: `{"text":""}`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"text":"1","extra":true}`, code: http.StatusBadRequest},
		{name: "wrong type", body: `{"text":"1","llm":"yes"}`, code: http.StatusBadRequest},
		{name: "llm without solver", body: `{"text":"1","llm":true}`, code: http.StatusServiceUnavailable},
		{name: "too large", body: `{"text":"` + strings.Repeat("a", 70<<10) + `"}`, code: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, "/v1/solve", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestSolve_MethodNotAllowed(t *testing.T) {
	mux, _ := newTestServer(t, nil)
	rec := do(mux, http.MethodGet, "/v1/solve", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecognize(t *testing.T) {
	gem := &fakeEngine{name: "gemini", text: templated}
	mux, _ := newTestServer(t, gem)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	body, _ := json.Marshal(map[string]string{"image_b64": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)})
	rec := do(mux, http.MethodPost, "/v1/recognize", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out pipeline.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "gemini", out.Engine)
	assert.Equal(t, "x=2", out.Solution.Result)
	assert.Equal(t, "e0", out.EntryID)
	assert.Equal(t, "image/png", gem.gotMIME)
}

func TestRecognize_Errors(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0x00})

	tests := []struct {
		name   string
		engine *fakeEngine
		body   string
		code   int
	}{
		{name: "bad base64", engine: &fakeEngine{name: "gemini"}, body: `{"image_b64":"%%%"}`, code: http.StatusBadRequest},
		{name: "unknown engine rejected by schema", engine: &fakeEngine{name: "gemini"}, body: `{"image_b64":"` + img + `","engine":"tesseract"}`, code: http.StatusBadRequest},
		{name: "bad mime", engine: &fakeEngine{name: "gemini"}, body: `{"image_b64":"` + img + `","mime":"text/plain"}`, code: http.StatusBadRequest},
		{name: "engine not configured", engine: &fakeEngine{name: "gemini"}, body: `{"image_b64":"` + img + `","engine":"vision"}`, code: http.StatusServiceUnavailable},
		{name: "upstream failure", engine: &fakeEngine{name: "gemini", err: errors.New("quota")}, body: `{"image_b64":"` + img + `"}`, code: http.StatusBadGateway},
		{name: "upstream timeout", engine: &fakeEngine{name: "gemini", err: context.DeadlineExceeded}, body: `{"image_b64":"` + img + `"}`, code: http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, _ := newTestServer(t, tt.engine)
			rec := do(mux, http.MethodPost, "/v1/recognize", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestHistoryEndpoints(t *testing.T) {
	mux, hist := newTestServer(t, nil)
	ctx := context.Background()
	_, _ = hist.Save(ctx, "alice", "1+1", "2")
	_, _ = hist.Save(ctx, "alice", "2+2", "4")
	_, _ = hist.Save(ctx, DefaultOwner, "3+3", "6")

	rec := do(mux, http.MethodGet, "/v1/history?owner=alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "2+2", list[0].Equation)

	rec = do(mux, http.MethodDelete, "/v1/history/e0?owner=alice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(mux, http.MethodDelete, "/v1/history/e0?owner=alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, http.MethodDelete, "/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/v1/history?owner=alice", "")
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"2+2"}, []string{list[0].Equation})
	assert.Len(t, list, 1)
}

func TestDecodeBody_ReadsWholeLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"text":"abc"}`))
	var dst SolveRequest
	require.NoError(t, decodeBody(req, solveRequestSchema, 14, &dst))
	assert.Equal(t, "abc", dst.Text)
}
