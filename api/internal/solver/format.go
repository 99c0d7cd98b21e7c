package solver

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reSqrt     = regexp.MustCompile(`sqrt\(([^)]+)\)`)
	reRootSign = regexp.MustCompile(`√(\d+)`)
	rePower    = regexp.MustCompile(`\^(\d+)`)
	reFraction = regexp.MustCompile(`(\d+)/(\d+)`)
	reIntegral = regexp.MustCompile(`(^|[^\\A-Za-z])int\s`)

	reBoldLabel  = regexp.MustCompile(`\*\*[^*]+:\*\*`)
	reResultTail = regexp.MustCompile(`(?i)(?:=\s*|result\s*is\s*|answer\s*is\s*)([^.]+)`)
	reResultWord = regexp.MustCompile(`Result:|\s+`)
)

// FormatLatex rewrites plain-text math (as typed or OCR'd) into LaTeX.
func FormatLatex(s string) string {
	s = strings.ReplaceAll(s, "∫", `\int `)
	s = reRootSign.ReplaceAllString(s, `sqrt($1)`)
	s = reSqrt.ReplaceAllString(s, `\sqrt{$1}`)
	s = rePower.ReplaceAllString(s, `^{$1}`)
	s = reFraction.ReplaceAllString(s, `\frac{$1}{$2}`)
	s = reIntegral.ReplaceAllString(s, `$1\int `)
	return strings.Join(strings.Fields(s), " ")
}

// FormatEquationText drops markdown labels and bold markers for display.
func FormatEquationText(s string) string {
	if s == "" {
		return ""
	}
	s = reBoldLabel.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

// FormatResultText keeps only the value part of a result ("x = 2" -> "2").
func FormatResultText(s string) string {
	if s == "" {
		return ""
	}
	if m := reResultTail.FindStringSubmatch(s); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(reResultWord.ReplaceAllString(s, " "))
}

// Render lays a solution out as plain text for chat and terminal output.
func Render(res SolutionResult) string {
	var b strings.Builder
	if res.Failed() {
		b.WriteString("⚠️ ")
		b.WriteString(res.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "Equation: %s\n", FormatEquationText(res.Original))
	if len(res.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for i, st := range res.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, st.Explanation)
			if e := FormatEquationText(st.Expression); e != "" {
				fmt.Fprintf(&b, "   %s\n", e)
			}
		}
	}
	fmt.Fprintf(&b, "\nAnswer: %s", FormatResultText(res.Result))
	return b.String()
}
