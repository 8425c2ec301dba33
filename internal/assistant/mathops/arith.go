package mathops

import (
	"strings"

	errx "github.com/padpal/server/internal/core/error"
)

// CleanArithmetic strips everything that is not part of a numeric expression
// and normalizes "x" used as a multiplication sign ("3 x 4") to "*".
func CleanArithmetic(input string) string {
	var b strings.Builder
	runes := []rune(input)
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("+-*/^(). ", r):
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			// times sign only when flanked by digits or spaces next to digits
			if surroundedByDigits(runes, i) {
				b.WriteRune('*')
			}
		case r == ',':
			// thousands separator, drop it
		}
	}
	return strings.TrimSpace(b.String())
}

func surroundedByDigits(runes []rune, i int) bool {
	left := i - 1
	for left >= 0 && runes[left] == ' ' {
		left--
	}
	right := i + 1
	for right < len(runes) && runes[right] == ' ' {
		right++
	}
	return left >= 0 && runes[left] >= '0' && runes[left] <= '9' &&
		right < len(runes) && runes[right] >= '0' && runes[right] <= '9'
}

// EvaluateArithmetic evaluates a numeric expression exactly. Integer results
// come back as int64 when they fit, as a decimal string when they do not,
// and non-integers as float64.
func EvaluateArithmetic(input string) (any, string, error) {
	cleaned := CleanArithmetic(input)
	if cleaned == "" {
		return nil, "", errx.Newf(errx.KindParse, "no arithmetic expression found in %q", input)
	}
	p, err := ParseExpression(cleaned)
	if err != nil {
		return nil, cleaned, err
	}
	if !p.IsConst() {
		return nil, cleaned, errx.Newf(errx.KindParse, "expression %q is not purely numeric", cleaned)
	}
	r := p.ConstValue()
	if r.IsInt() {
		n := r.Num()
		if n.IsInt64() {
			return n.Int64(), cleaned, nil
		}
		return n.String(), cleaned, nil
	}
	f, _ := r.Float64()
	return f, cleaned, nil
}
