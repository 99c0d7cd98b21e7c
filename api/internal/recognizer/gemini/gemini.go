package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"airmath/api/internal/recognizer"
	"airmath/api/internal/util"
)

var errEmptyResponse = errors.New("gemini: empty response")

// generator is the part of *genai.GenerativeModel the engine needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Engine struct {
	APIKey    string
	Model     string
	PromptDir string
	Attempts  uint

	delay time.Duration
	open  func(ctx context.Context, model string) (generator, func() error, error)
}

func New(apiKey, model, promptDir string, attempts uint) *Engine {
	if attempts == 0 {
		attempts = 3
	}
	e := &Engine{
		APIKey:    strings.TrimSpace(apiKey),
		Model:     strings.TrimSpace(model),
		PromptDir: promptDir,
		Attempts:  attempts,
		delay:     300 * time.Millisecond,
	}
	e.open = e.openModel
	return e
}

func (e *Engine) Name() string     { return recognizer.NameGemini }
func (e *Engine) GetModel() string { return e.Model }

// WithModel returns a copy of the engine that talks to model. Chats pick
// their model this way without touching the shared engine.
func (e *Engine) WithModel(model string) recognizer.Engine {
	c := *e
	if m := strings.TrimSpace(model); m != "" {
		c.Model = m
	}
	return &c
}

func (e *Engine) openModel(ctx context.Context, model string) (generator, func() error, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return nil, nil, err
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		_ = cl.Close()
		return nil, nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(0.2),
		TopP:            ptrFloat32(0.8),
		MaxOutputTokens: ptrInt32(2048),
	}
	return m, cl.Close, nil
}

// Recognize asks the model to read and solve the equation on the image.
func (e *Engine) Recognize(ctx context.Context, image []byte, mime string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("gemini recognize: empty image")
	}
	prompt, err := recognizer.LoadPrompt(e.PromptDir, recognizer.PromptRecognize)
	if err != nil {
		return "", err
	}
	mime = util.PickMIME(mime, "", image)
	txt, err := e.generate(ctx, genai.Text(prompt), &genai.Blob{MIMEType: mime, Data: image})
	if err != nil {
		return "", fmt.Errorf("gemini recognize: %w", err)
	}
	return txt, nil
}

// SolveText asks the model to solve a typed or OCR'd equation.
func (e *Engine) SolveText(ctx context.Context, equation string) (string, error) {
	equation = strings.TrimSpace(equation)
	if equation == "" {
		return "", errors.New("gemini solve: empty equation")
	}
	prompt, err := recognizer.LoadPrompt(e.PromptDir, recognizer.PromptSolveText)
	if err != nil {
		return "", err
	}
	txt, err := e.generate(ctx, genai.Text(prompt), genai.Text("Equation: "+equation))
	if err != nil {
		return "", fmt.Errorf("gemini solve: %w", err)
	}
	return txt, nil
}

func (e *Engine) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	m, closeFn, err := e.open(ctx, e.Model)
	if err != nil {
		return "", err
	}
	defer func() { _ = closeFn() }()

	var out string
	attempt := 0
	err = retry.Do(
		func() error {
			attempt++
			resp, err := m.GenerateContent(ctx, parts...)
			if err != nil {
				slog.Default().Warn("gemini.generate_failed", "model", e.Model, "attempt", attempt, "error", err)
				return err
			}
			txt := util.StripCodeFences(firstText(resp))
			if txt == "" {
				return retry.Unrecoverable(errEmptyResponse)
			}
			out = txt
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.Attempts),
		retry.Delay(e.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
