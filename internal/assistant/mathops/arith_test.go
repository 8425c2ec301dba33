package mathops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/padpal/server/internal/core/error"
)

func TestEvaluateArithmetic(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  any
	}{
		{"large precedence", "222222+555555*10000", int64(5555772222)},
		{"parentheses", "(2 + 3) * 4", int64(20)},
		{"division to float", "7 / 2", 3.5},
		{"exact integer division", "10 / 5", int64(2)},
		{"x as times sign", "3 x 4", int64(12)},
		{"thousands separators", "1,000 + 2,000", int64(3000)},
		{"power", "2^10", int64(1024)},
		{"negative", "5 - 12", int64(-7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := EvaluateArithmetic(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateArithmetic_HugeResultAsString(t *testing.T) {
	got, _, err := EvaluateArithmetic("99999999999*99999999999*99999999999")
	require.NoError(t, err)
	s, ok := got.(string)
	require.True(t, ok, "results beyond int64 come back as decimal strings")
	assert.Equal(t, "999999999970000000000299999999999", s)
}

func TestEvaluateArithmetic_Errors(t *testing.T) {
	_, _, err := EvaluateArithmetic("just words")
	require.Error(t, err)
	assert.Equal(t, errx.KindParse, errx.KindOf(err))

	_, _, err = EvaluateArithmetic("1/0")
	require.Error(t, err)
	assert.Equal(t, errx.KindDomain, errx.KindOf(err))
}

func TestCleanArithmetic(t *testing.T) {
	assert.Equal(t, "3*4", CleanArithmetic("3x4"))
	assert.Equal(t, "2 + 2", CleanArithmetic("what is 2 + 2?"))
	assert.Equal(t, "", CleanArithmetic("hello"))
}
