package mathops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEquation(t *testing.T) {
	assert.Equal(t, "2x + 3 = 7", ExtractEquation("solve 2x + 3 = 7"))
	assert.Equal(t, "x = 5", ExtractEquation("solve for x = 5"))
	assert.Equal(t, "x^2 - 4 = 0", ExtractEquation("Solve the equation x^2 - 4 = 0"))
	// presentation clauses stay out of the equation body
	assert.Equal(t, "2x + 3 = 7", ExtractEquation("solve 2x + 3 = 7 like before"))
	assert.Equal(t, "2x = 1", ExtractEquation("solve 2x = 1 as usual"))
}

func TestExtractExpression(t *testing.T) {
	assert.Equal(t, "x^2", ExtractExpression("derivative of x^2"))
	assert.Equal(t, "x^2 + 2x + 1", ExtractExpression("simplify x^2 + 2x + 1"))
	assert.Equal(t, "x^2 - 1", ExtractExpression("factor x^2 - 1"))
	// definite-integral limits are cut, leaving the integrand
	assert.Equal(t, "x^2", ExtractExpression("integrate x^2 from 0 to 2"))
	// presentation clauses stay out of the expression body
	assert.Equal(t, "x^3", ExtractExpression("derivative of x^3 in my notation"))
	assert.Equal(t, "x^2 + 2x + 1", ExtractExpression("simplify x^2 + 2x + 1 the way i like it"))
}

func TestExtractArithmetic(t *testing.T) {
	assert.Equal(t, "222222+555555*10000", ExtractArithmetic("calculate 222222+555555*10000"))
	assert.Equal(t, "2 + 2", ExtractArithmetic("what is 2 + 2?"))
}

func TestDerivativeParams(t *testing.T) {
	variable, order := DerivativeParams("derivative of x^2")
	assert.Equal(t, "x", variable)
	assert.Equal(t, 1, order)

	variable, order = DerivativeParams("second derivative of t^3 with respect to t")
	assert.Equal(t, "t", variable)
	assert.Equal(t, 2, order)

	_, order = DerivativeParams("3rd derivative of x^4")
	assert.Equal(t, 3, order)
}

func TestIntegralParams(t *testing.T) {
	variable, lo, hi := IntegralParams("integrate x^2")
	assert.Equal(t, "x", variable)
	assert.Nil(t, lo)
	assert.Nil(t, hi)

	variable, lo, hi = IntegralParams("integrate t^2 dt from 0 to 2")
	assert.Equal(t, "t", variable)
	require.NotNil(t, lo)
	require.NotNil(t, hi)
	assert.Equal(t, "0", ratString(lo))
	assert.Equal(t, "2", ratString(hi))

	_, lo, hi = IntegralParams("integral of x between 1 and 3")
	require.NotNil(t, lo)
	assert.Equal(t, "1", ratString(lo))
	assert.Equal(t, "3", ratString(hi))
}
