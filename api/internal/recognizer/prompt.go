package recognizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PromptRecognize = "recognize"
	PromptSolveText = "solve_text"
)

// responseFormat is the layout the solution extractor understands best.
const responseFormat = `Answer in exactly this format:
**Equation:** $<the equation in LaTeX>$
**Steps to Solve:**
1. **<short step title>:** $<expression after this step>$
2. **<short step title>:** $<expression after this step>$
**Final Answer:** $<the result in LaTeX>$
Use single dollar signs around every expression. If there is no mathematical equation, reply only with "No equation detected".`

var defaultPrompts = map[string]string{
	PromptRecognize: "Extract and solve the mathematical equation in this image. " +
		"Return only the equation, steps to solve it, and the final answer. Format it correctly for LaTeX.\n\n" +
		responseFormat,
	PromptSolveText: "Solve the mathematical equation below. " +
		"Return only the equation, steps to solve it, and the final answer. Format it correctly for LaTeX.\n\n" +
		responseFormat,
}

// LoadPrompt returns <dir>/<name>.txt when it exists and is not empty,
// otherwise the built-in prompt.
func LoadPrompt(dir, name string) (string, error) {
	def, ok := defaultPrompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	if dir == "" {
		return def, nil
	}
	p := filepath.Join(dir, name+".txt")
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return def, nil
		}
		return "", fmt.Errorf("read prompt %s: %w", p, err)
	}
	if s := strings.TrimSpace(string(b)); s != "" {
		return s, nil
	}
	return def, nil
}
