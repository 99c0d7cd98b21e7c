package solver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolve_NormalizesBeforeExtracting(t *testing.T) {
	got := Solve(templatedResponse)

	require.False(t, got.Failed())
	assert.Equal(t, "2x+3=7", got.Original)
	assert.Equal(t, "x=2", got.Result)
	assert.Equal(t, []SolutionStep{
		{Explanation: "Subtract 3:", Expression: "2x=4"},
		{Explanation: "Divide by 2:", Expression: "x=2"},
	}, got.Steps)
}

func TestSolve_OperatorGlyphs(t *testing.T) {
	got := Solve("**Equation:**   $3 × 4 ÷ 2$")

	assert.Equal(t, "3 * 4 / 2", got.Original)
	assert.Equal(t, []SolutionStep{{Explanation: "Equation processing", Expression: "3 * 4 / 2"}}, got.Steps)
}

func TestSolve_NoEquation(t *testing.T) {
	got := Solve("Sorry, the  image is   blank.")

	assert.True(t, got.Failed())
	assert.Equal(t, NoEquationError, got.Error)
	assert.Equal(t, NoEquationOriginal, got.Original)
}

func TestSolve_RecoversFromPanic(t *testing.T) {
	prev := extract
	t.Cleanup(func() { extract = prev })
	extract = func(string) SolutionResult { panic("boom") }

	var got SolutionResult
	require.NotPanics(t, func() { got = Solve("2x = 4") })

	assert.Equal(t, "2x = 4", got.Original)
	assert.Equal(t, SolveErrorResult, got.Result)
	assert.Equal(t, SolveErrorMessage, got.Error)
	assert.NotNil(t, got.Steps)
	assert.Empty(t, got.Steps)
}

func TestSolve_Concurrent(t *testing.T) {
	want := Solve(templatedResponse)

	var wg sync.WaitGroup
	results := make([]SolutionResult, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Solve(templatedResponse)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
