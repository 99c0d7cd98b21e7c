package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"airmath/api/internal/recognizer"
	"airmath/api/internal/solver"
	"airmath/api/internal/store"
)

// History is the part of the history store the pipeline writes to.
type History interface {
	Save(ctx context.Context, owner, equation, result string) (store.Entry, error)
}

// Outcome is one pipeline run: the raw recognizer text and its structured solution.
type Outcome struct {
	Engine     string                `json:"engine"`
	Recognized string                `json:"recognized"`
	Solution   solver.SolutionResult `json:"solution"`
	EntryID    string                `json:"entry_id,omitempty"`
}

type Pipeline struct {
	Engines *recognizer.Engines
	History History // optional
	Log     *slog.Logger
}

func New(engines *recognizer.Engines, history History, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{Engines: engines, History: history, Log: log}
}

var ErrNoSolver = errors.New("no engine can solve text")

// SolveImage recognizes the equation on an image and extracts its solution.
// OCR-only engines hand their text to a text solver when one is configured.
func (p *Pipeline) SolveImage(ctx context.Context, owner string, eng recognizer.Engine, image []byte, mime string) (Outcome, error) {
	if eng == nil {
		return Outcome{}, fmt.Errorf("solve image: %w", recognizer.ErrNotConfigured)
	}
	p.Log.Info("recognize.start", "engine", eng.Name(), "model", eng.GetModel(), "bytes", len(image))

	text, err := eng.Recognize(ctx, image, mime)
	if err != nil {
		p.Log.Error("recognize.failed", "engine", eng.Name(), "error", err)
		return Outcome{}, fmt.Errorf("recognize: %w", err)
	}
	out := Outcome{Engine: eng.Name(), Recognized: text}

	if _, isSolver := eng.(recognizer.TextSolver); !isSolver && strings.TrimSpace(text) != "" {
		if ts, ok := p.Engines.Solver(); ok {
			resp, err := ts.SolveText(ctx, solver.FormatLatex(text))
			if err != nil {
				p.Log.Error("solve_text.failed", "error", err)
				return Outcome{}, fmt.Errorf("solve text: %w", err)
			}
			text = resp
		} else {
			// Nothing can solve it; keep the OCR text as the equation.
			text = "**Equation:** $" + solver.FormatLatex(text) + "$"
		}
	}

	out.Solution = solver.Solve(text)
	p.Log.Info("recognize.ok", "engine", eng.Name(), "failed", out.Solution.Failed(), "steps", len(out.Solution.Steps))
	out.EntryID = p.save(ctx, owner, out.Solution)
	return out, nil
}

// SolveText extracts a solution from typed input. With useLLM the text is
// first sent to a text solver; otherwise it is parsed as is.
func (p *Pipeline) SolveText(ctx context.Context, owner, text string, useLLM bool) (Outcome, error) {
	out := Outcome{Recognized: text}
	if useLLM {
		ts, ok := p.Engines.Solver()
		if !ok {
			return Outcome{}, ErrNoSolver
		}
		resp, err := ts.SolveText(ctx, text)
		if err != nil {
			p.Log.Error("solve_text.failed", "error", err)
			return Outcome{}, fmt.Errorf("solve text: %w", err)
		}
		out.Engine = engineName(ts)
		out.Recognized = resp
	}
	out.Solution = solver.Solve(out.Recognized)
	out.EntryID = p.save(ctx, owner, out.Solution)
	return out, nil
}

func (p *Pipeline) save(ctx context.Context, owner string, res solver.SolutionResult) string {
	if p.History == nil || res.Failed() {
		return ""
	}
	e, err := p.History.Save(ctx, owner, res.Original, res.Result)
	if err != nil {
		p.Log.Warn("history.save_failed", "owner", owner, "error", err)
		return ""
	}
	return e.ID
}

func engineName(ts recognizer.TextSolver) string {
	if e, ok := ts.(recognizer.Engine); ok {
		return e.Name()
	}
	return ""
}
