package mathops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/padpal/server/internal/core/error"
)

func TestSolveEquation(t *testing.T) {
	cases := []struct {
		name     string
		equation string
		want     []string
	}{
		{"linear", "2x + 3 = 7", []string{"2"}},
		{"linear explicit star", "2*x + 3 = 7", []string{"2"}},
		{"linear rational root", "2x = 1", []string{"1/2"}},
		{"quadratic two roots", "x^2 = 4", []string{"-2", "2"}},
		{"quadratic repeated root", "x^2 + 2x + 1 = 0", []string{"-1"}},
		{"quadratic rational roots", "2x^2 - 3x + 1 = 0", []string{"1/2", "1"}},
		{"cubic with rational roots", "x^3 - 6x^2 + 11x - 6 = 0", []string{"1", "2", "3"}},
		{"identity", "x + 1 = x + 1", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, variable, err := SolveEquation(tc.equation)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			if len(tc.want) > 0 {
				assert.Equal(t, "x", variable)
			}
		})
	}
}

func TestSolveEquation_IrrationalRoots(t *testing.T) {
	got, _, err := SolveEquation("x^2 = 2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "(0 - sqrt(8))/2", got[0])
	assert.Equal(t, "(0 + sqrt(8))/2", got[1])
}

func TestSolveEquation_Errors(t *testing.T) {
	cases := []struct {
		name     string
		equation string
		kind     errx.Kind
	}{
		{"no real solutions", "x^2 + 1 = 0", errx.KindDomain},
		{"contradiction", "1 = 2", errx.KindDomain},
		{"two equals signs", "x = 1 = 2", errx.KindParse},
		{"garbage", "solve me please", errx.KindParse},
		{"irreducible cubic", "x^3 - 2 = 0", errx.KindDomain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := SolveEquation(tc.equation)
			require.Error(t, err)
			assert.Equal(t, tc.kind, errx.KindOf(err))
		})
	}
}

func TestSolveEquation_RefusesPartialSolutionSets(t *testing.T) {
	// x^4 - 2x = x * (x^3 - 2): deflation finds the root 0, but the residual
	// cubic has a real root (2^(1/3)) the engine cannot express. Returning
	// only the deflated roots would be a confident wrong answer.
	_, _, err := SolveEquation("x^4 - 2x = 0")
	require.Error(t, err)
	assert.Equal(t, errx.KindDomain, errx.KindOf(err))
	assert.Contains(t, err.Error(), "irreducible factor of degree 3")
}

func TestSolveEquation_SolvesForOtherVariables(t *testing.T) {
	got, variable, err := SolveEquation("3t = 12")
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, got)
	assert.Equal(t, "t", variable)
}
