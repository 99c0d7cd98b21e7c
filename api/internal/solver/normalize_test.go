package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "only whitespace", in: " \t\n ", want: ""},
		{name: "multiplication sign", in: "3 × 4", want: "3 * 4"},
		{name: "division sign", in: "8÷2", want: "8/2"},
		{name: "variable x untouched", in: "3x + 2X = 11", want: "3x + 2X = 11"},
		{name: "whitespace runs collapse", in: "  2x  +\n\n3 =\t7 ", want: "2x + 3 = 7"},
		{name: "non-breaking space", in: "1\u00a0+\u00a01", want: "1 + 1"},
		{name: "decomposed accents compose", in: "cafe\u0301", want: "caf\u00e9"},
		{name: "markup preserved", in: "**Equation:** $2x+3=7$", want: "**Equation:** $2x+3=7$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"6 ÷ 3 × 2",
		"**Steps to Solve:**\n1. **Subtract 3:**\n$2x=4$",
		"e\u0301 \u0301x",
		" x = 1 ",
		"$unbalanced",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
