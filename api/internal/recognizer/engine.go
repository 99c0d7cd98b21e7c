package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Engine turns a photo of a math task into a model response.
type Engine interface {
	Name() string
	GetModel() string
	Recognize(ctx context.Context, image []byte, mime string) (string, error)
}

// ModelSelector is implemented by engines that serve several models. WithModel
// returns an engine bound to model and leaves the receiver unchanged.
type ModelSelector interface {
	WithModel(model string) Engine
}

// TextSolver is implemented by engines that can also solve typed or OCR'd text.
type TextSolver interface {
	SolveText(ctx context.Context, equation string) (string, error)
}

var (
	ErrUnknownEngine = errors.New("unknown engine")
	ErrNotConfigured = errors.New("engine is not configured")
)

const (
	NameGemini = "gemini"
	NameVision = "vision"
)

type Engines struct {
	Gemini Engine
	Vision Engine
}

// GetEngine resolves an engine by name. An empty name selects gemini.
func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameGemini:
		eng, name = e.Gemini, NameGemini
	case NameVision, "ocr":
		eng, name = e.Vision, NameVision
	default:
		return nil, fmt.Errorf("%w %q; use 'gemini' or 'vision'", ErrUnknownEngine, name)
	}
	if eng == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	return eng, nil
}

// Solver returns the first configured engine able to solve text.
func (e *Engines) Solver() (TextSolver, bool) {
	for _, eng := range []Engine{e.Gemini, e.Vision} {
		if eng == nil {
			continue
		}
		if ts, ok := eng.(TextSolver); ok {
			return ts, true
		}
	}
	return nil, false
}

// Names lists configured engines.
func (e *Engines) Names() []string {
	var out []string
	if e.Gemini != nil {
		out = append(out, NameGemini)
	}
	if e.Vision != nil {
		out = append(out, NameVision)
	}
	return out
}

// Manager keeps the engine chosen per chat.
type Manager struct {
	def Engine
	m   sync.Map // chatID -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}

func (m *Manager) Reset(chatID int64) {
	m.m.Delete(chatID)
}
