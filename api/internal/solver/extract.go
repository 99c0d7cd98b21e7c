package solver

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractSolution derives a structured solution from a recognizer response.
// It never fails: fields that no tier can recover fall back to the raw text,
// an empty step list or the ResultNotFound placeholder.
func ExtractSolution(response string) SolutionResult {
	if hasNegativeSignal(response) {
		return noEquation()
	}

	res := SolutionResult{
		Original: response,
		Steps:    []SolutionStep{},
		Result:   ResultNotFound,
	}

	eq, eqFound := equationRules.find(response)
	if eqFound {
		res.Original = eq.value
	}
	if r, ok := resultRules.find(response); ok {
		res.Result = r.value
	}

	steps := sectionSteps(response)
	if len(steps) == 0 {
		steps = spreadSteps(response)
	}
	if len(steps) == 0 && eqFound {
		steps = []SolutionStep{surroundingStep(response, eq)}
	}
	if steps != nil {
		res.Steps = steps
	}

	// A step can stand in for the answer when the response never labels one.
	if res.Result == ResultNotFound && len(res.Steps) > 0 {
		if last := res.Steps[len(res.Steps)-1].Expression; last != "" {
			res.Result = last
		}
	}
	return res
}

func hasNegativeSignal(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range negativePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func noEquation() SolutionResult {
	return SolutionResult{
		Original: NoEquationOriginal,
		Steps:    []SolutionStep{},
		Result:   NoEquationResult,
		Error:    NoEquationError,
	}
}

// stepsSection returns the text between the first matching section label and
// the next "Final Answer" label (or the end of text).
func stepsSection(text string) (string, bool) {
	for _, re := range sectionRules {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		rest := text[loc[1]:]
		if end := reSectionEnd.FindStringIndex(rest); end != nil {
			rest = rest[:end[0]]
		}
		return rest, true
	}
	return "", false
}

func sectionSteps(text string) []SolutionStep {
	section, ok := stepsSection(text)
	if !ok {
		return nil
	}
	for _, re := range stepMarkers {
		if steps := splitSteps(section, re); len(steps) > 0 {
			return steps
		}
	}
	return nil
}

// splitSteps cuts section at every marker of one family. A step's content
// runs from the end of its marker to the start of the next one.
func splitSteps(section string, re *regexp.Regexp) []SolutionStep {
	locs := re.FindAllStringSubmatchIndex(section, -1)
	if len(locs) == 0 {
		return nil
	}
	ti := re.SubexpIndex("title")
	steps := make([]SolutionStep, 0, len(locs))
	for i, loc := range locs {
		title := stripEmphasis(section[loc[2*ti]:loc[2*ti+1]])
		if title == "" {
			title = fmt.Sprintf("Step %d", i+1)
		}
		end := len(section)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		steps = append(steps, SolutionStep{
			Explanation: title,
			Expression:  stepExpression(section[loc[1]:end]),
		})
	}
	return steps
}

// stepExpression picks the last delimited expression of a step (the
// simplified form, see pickLast); plain-text steps keep their content.
func stepExpression(content string) string {
	if exprs := mathSpans(content); len(exprs) > 0 {
		return exprs[len(exprs)-1]
	}
	return stripEmphasis(content)
}

// spreadSteps treats every delimited expression between the first (the
// equation) and the last (the answer) as one step.
func spreadSteps(text string) []SolutionStep {
	exprs := mathSpans(text)
	if len(exprs) < 3 {
		return nil
	}
	middle := exprs[1 : len(exprs)-1]
	steps := make([]SolutionStep, 0, len(middle))
	for i, e := range middle {
		steps = append(steps, SolutionStep{
			Explanation: fmt.Sprintf("Step %d", i+1),
			Expression:  e,
		})
	}
	return steps
}

func surroundingStep(text string, eq hit) SolutionStep {
	rest := stripEmphasis(text[:eq.start] + " " + text[eq.end:])
	if rest == "" {
		return SolutionStep{Explanation: stepGenericExplanation, Expression: eq.value}
	}
	return SolutionStep{Explanation: stepSolutionExplanation, Expression: rest}
}
