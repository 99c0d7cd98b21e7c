package solver

// SolutionStep is one worked step of a solution.
type SolutionStep struct {
	Explanation string `json:"explanation"`
	Expression  string `json:"expression"`
}

// SolutionResult is the structured solution extracted from one recognizer response.
// Error is set only when the response explicitly says there is no equation
// or when parsing failed unexpectedly.
type SolutionResult struct {
	Original string         `json:"original"`
	Steps    []SolutionStep `json:"steps"`
	Result   string         `json:"result"`
	Graph    bool           `json:"graph"`
	Error    string         `json:"error,omitempty"`
}

// Failed reports whether r carries an error instead of a solution.
func (r SolutionResult) Failed() bool { return r.Error != "" }

const (
	// ResultNotFound is the result placeholder when no tier yields an answer.
	ResultNotFound = "Could not extract result"

	NoEquationOriginal = "No equation detected"
	NoEquationResult   = "No equation found"
	NoEquationError    = "No mathematical equation was detected. Try again with a clearer image."

	SolveErrorResult  = "Error solving equation"
	SolveErrorMessage = "Failed to process this equation. Please try again."

	stepGenericExplanation  = "Equation processing"
	stepSolutionExplanation = "Solution process"
)

// negativePhrases are matched case-insensitively against the whole response.
var negativePhrases = []string{
	"no equation detected",
	"image is blank",
	"no equation",
	"cannot identify",
}
