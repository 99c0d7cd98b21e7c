package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airmath/api/internal/recognizer"
	"airmath/api/internal/solver"
	"airmath/api/internal/store"
)

const templated = "**Equation:** $2x+3=7$\n**Steps to Solve:**\n1. **Subtract 3:**\n$2x=4$\n2. **Divide by 2:**\n$x=2$\n**Final Answer:**\n$x=2$"

type fakeOCR struct {
	text string
	err  error
}

func (f *fakeOCR) Name() string     { return "vision" }
func (f *fakeOCR) GetModel() string { return "ocr" }
func (f *fakeOCR) Recognize(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type fakeLLM struct {
	fakeOCR
	solved string
	got    []string
}

func (f *fakeLLM) Name() string { return "gemini" }
func (f *fakeLLM) SolveText(_ context.Context, eq string) (string, error) {
	f.got = append(f.got, eq)
	return f.solved, f.err
}

type fakeHistory struct {
	saved []store.Entry
	err   error
}

func (f *fakeHistory) Save(_ context.Context, owner, equation, result string) (store.Entry, error) {
	if f.err != nil {
		return store.Entry{}, f.err
	}
	e := store.Entry{ID: "id-1", Owner: owner, Equation: equation, Result: result}
	f.saved = append(f.saved, e)
	return e, nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPipeline_SolveImage_LLM(t *testing.T) {
	llm := &fakeLLM{fakeOCR: fakeOCR{text: templated}}
	hist := &fakeHistory{}
	p := New(&recognizer.Engines{Gemini: llm}, hist, quietLogger())

	out, err := p.SolveImage(context.Background(), "alice", llm, []byte{1}, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "gemini", out.Engine)
	assert.Equal(t, templated, out.Recognized)
	assert.Equal(t, "2x+3=7", out.Solution.Original)
	assert.Equal(t, "x=2", out.Solution.Result)
	assert.Len(t, out.Solution.Steps, 2)
	assert.Equal(t, "id-1", out.EntryID)
	assert.Equal(t, []store.Entry{{ID: "id-1", Owner: "alice", Equation: "2x+3=7", Result: "x=2"}}, hist.saved)
	assert.Empty(t, llm.got, "an LLM engine is not asked twice")
}

func TestPipeline_SolveImage_OCRThenSolve(t *testing.T) {
	ocr := &fakeOCR{text: "x^2 = 9\n"}
	llm := &fakeLLM{solved: "**Equation:** $x^{2} = 9$ **Final Answer:** $x=\\pm 3$"}
	p := New(&recognizer.Engines{Gemini: llm, Vision: ocr}, nil, quietLogger())

	out, err := p.SolveImage(context.Background(), "alice", ocr, []byte{1}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"x^{2} = 9"}, llm.got)
	assert.Equal(t, "x^{2} = 9", out.Solution.Original)
	assert.Equal(t, `x=\pm 3`, out.Solution.Result)
	assert.Empty(t, out.EntryID)
}

func TestPipeline_SolveImage_OCROnly(t *testing.T) {
	ocr := &fakeOCR{text: "1/2 + 1/2"}
	p := New(&recognizer.Engines{Vision: ocr}, nil, quietLogger())

	out, err := p.SolveImage(context.Background(), "alice", ocr, []byte{1}, "")
	require.NoError(t, err)

	assert.Equal(t, `\frac{1}{2} + \frac{1}{2}`, out.Solution.Original)
	assert.Equal(t, []solver.SolutionStep{{Explanation: "Equation processing", Expression: `\frac{1}{2} + \frac{1}{2}`}}, out.Solution.Steps)
}

func TestPipeline_SolveImage_NoEquationIsNotSaved(t *testing.T) {
	llm := &fakeLLM{fakeOCR: fakeOCR{text: "No equation detected."}}
	hist := &fakeHistory{}
	p := New(&recognizer.Engines{Gemini: llm}, hist, quietLogger())

	out, err := p.SolveImage(context.Background(), "alice", llm, []byte{1}, "")
	require.NoError(t, err)

	assert.Equal(t, solver.NoEquationError, out.Solution.Error)
	assert.Empty(t, hist.saved)
	assert.Empty(t, out.EntryID)
}

func TestPipeline_SolveImage_RecognizeError(t *testing.T) {
	boom := errors.New("quota exceeded")
	llm := &fakeLLM{fakeOCR: fakeOCR{err: boom}}
	p := New(&recognizer.Engines{Gemini: llm}, nil, quietLogger())

	_, err := p.SolveImage(context.Background(), "alice", llm, []byte{1}, "")
	assert.ErrorIs(t, err, boom)

	_, err = p.SolveImage(context.Background(), "alice", nil, []byte{1}, "")
	assert.ErrorIs(t, err, recognizer.ErrNotConfigured)
}

func TestPipeline_SolveText(t *testing.T) {
	hist := &fakeHistory{}
	p := New(&recognizer.Engines{}, hist, quietLogger())

	out, err := p.SolveText(context.Background(), "bob", "Equation: $3 × 4$", false)
	require.NoError(t, err)
	assert.Equal(t, "3 * 4", out.Solution.Original)
	assert.Equal(t, "3 * 4", out.Solution.Result)
	require.Len(t, hist.saved, 1)

	_, err = p.SolveText(context.Background(), "bob", "2+2", true)
	assert.ErrorIs(t, err, ErrNoSolver)
}

func TestPipeline_SolveText_WithLLM(t *testing.T) {
	llm := &fakeLLM{solved: templated}
	p := New(&recognizer.Engines{Gemini: llm}, nil, nil)

	out, err := p.SolveText(context.Background(), "bob", "2x+3=7", true)
	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Engine)
	assert.Equal(t, []string{"2x+3=7"}, llm.got)
	assert.Equal(t, "x=2", out.Solution.Result)
}

func TestPipeline_HistoryFailureIsNotFatal(t *testing.T) {
	hist := &fakeHistory{err: errors.New("db down")}
	p := New(&recognizer.Engines{}, hist, quietLogger())

	out, err := p.SolveText(context.Background(), "bob", "$x$", false)
	require.NoError(t, err)
	assert.Equal(t, "x", out.Solution.Result)
	assert.Empty(t, out.EntryID)
}
