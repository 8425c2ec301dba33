package mathops

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/padpal/server/internal/core/error"
)

func TestParseExpression_CanonicalForm(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"linear", "2*x + 3", "2*x + 3"},
		{"implicit multiplication", "2x + 3", "2*x + 3"},
		{"caret power", "x^2", "x**2"},
		{"double star power", "x**2", "x**2"},
		{"expansion", "(x+1)*(x-1)", "x**2 - 1"},
		{"implicit paren product", "(x+1)(x+1)", "x**2 + 2*x + 1"},
		{"collects terms", "x + x + x", "3*x"},
		{"cancellation", "x^2 + 2*x - x^2", "2*x"},
		{"constant fold", "3*4 + 2", "14"},
		{"rational coefficient", "x/2 + x/2", "x"},
		{"unary minus", "-x + 5", "-x + 5"},
		{"nested negation", "-(x - 3)", "-x + 3"},
		{"decimal coefficient", "0.5*x*2", "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseExpression(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.String())
		})
	}
}

func TestParseExpression_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		kind  errx.Kind
	}{
		{"empty", "   ", errx.KindParse},
		{"dangling operator", "2 +", errx.KindParse},
		{"unbalanced paren", "(x + 1", errx.KindParse},
		{"stray character", "x @ 2", errx.KindParse},
		{"multi letter identifier", "foo + 1", errx.KindParse},
		{"trig function", "sin(x)", errx.KindDomain},
		{"two variables", "x + y", errx.KindDomain},
		{"divide by variable", "1/x", errx.KindDomain},
		{"divide by zero", "x/0", errx.KindDomain},
		{"fractional exponent unsupported", "x^y", errx.KindDomain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseExpression(tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.kind, errx.KindOf(err))
		})
	}
}

func TestPoly_DerivativeAndIntegral(t *testing.T) {
	p, err := ParseExpression("x^3 + 2*x")
	require.NoError(t, err)

	assert.Equal(t, "3*x**2 + 2", p.Derivative(1).String())
	assert.Equal(t, "6*x", p.Derivative(2).String())
	assert.Equal(t, "6", p.Derivative(3).String())
	assert.Equal(t, "0", p.Derivative(4).String())

	anti := p.Integral("x")
	assert.Equal(t, "1/4*x**4 + x**2", anti.String())
}

func TestPoly_Eval(t *testing.T) {
	p, err := ParseExpression("x^2 - 4")
	require.NoError(t, err)

	assert.Equal(t, 0, p.Eval(big.NewRat(2, 1)).Sign())
	assert.Equal(t, "-4", ratString(p.Eval(new(big.Rat))))
	assert.Equal(t, "5", ratString(p.Eval(big.NewRat(3, 1))))
}

func TestPoly_NegativeConstantExponent(t *testing.T) {
	p, err := ParseExpression("2^-2")
	require.NoError(t, err)
	assert.Equal(t, "1/4", p.String())
}
