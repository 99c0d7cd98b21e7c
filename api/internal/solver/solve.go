package solver

import (
	"log/slog"
)

// extract is swapped in tests to exercise the recovery path.
var extract = ExtractSolution

// Solve normalizes input and extracts its solution. Unexpected faults inside
// the extractor are turned into an error-bearing result; Solve never panics.
func Solve(input string) (res SolutionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Default().Error("solver.panic", "panic", r, "input_bytes", len(input))
			res = SolutionResult{
				Original: input,
				Steps:    []SolutionStep{},
				Result:   SolveErrorResult,
				Error:    SolveErrorMessage,
			}
		}
	}()
	return extract(Normalize(input))
}
