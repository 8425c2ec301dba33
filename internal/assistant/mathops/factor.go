package mathops

import (
	"math/big"
	"sort"
	"strings"

	errx "github.com/padpal/server/internal/core/error"
)

// FactorExpression factors a polynomial over the rationals: common constant,
// powers of the variable, linear factors from rational roots, and an
// irreducible (or at least unfound) residual. The second return reports
// whether factoring changed the representation at all.
func FactorExpression(input string) (string, bool, error) {
	p, err := ParseExpression(input)
	if err != nil {
		return "", false, err
	}
	if p.IsZero() {
		return "0", false, nil
	}
	if p.IsConst() {
		return ratString(p.ConstValue()), false, nil
	}

	ints, err := intCoeffs(p)
	if err != nil {
		return "", false, err
	}

	// scale factor introduced by clearing denominators
	denScale := leadScale(p, ints)

	// content: gcd of integer coefficients, signed by the leading coefficient
	content := contentOf(ints)
	for i := range ints {
		ints[i] = new(big.Int).Div(ints[i], content)
	}

	constant := new(big.Rat).SetFrac(content, denScale)

	roots, rest := deflateRationalRoots(ints)
	factors := buildFactors(p.Var, roots, rest)

	rendered := renderFactors(constant, factors)
	expanded := p.String()
	return rendered, rendered != expanded, nil
}

// leadScale recovers the denominator-clearing multiplier: ints[deg] / lead(p).
func leadScale(p *Poly, ints []*big.Int) *big.Int {
	lead := p.Coeff(p.Degree())
	scale := new(big.Rat).SetInt(ints[len(ints)-1])
	scale.Quo(scale, lead)
	// always integral by construction
	return new(big.Int).Div(scale.Num(), scale.Denom())
}

func contentOf(ints []*big.Int) *big.Int {
	g := new(big.Int)
	for _, c := range ints {
		g.GCD(nil, nil, g, new(big.Int).Abs(c))
	}
	if g.Sign() == 0 {
		g.SetInt64(1)
	}
	if ints[len(ints)-1].Sign() < 0 {
		g.Neg(g)
	}
	return g
}

type factorTerm struct {
	text  string
	power int
	order int // sort key: x powers first, then roots ascending, residual last
}

// buildFactors turns roots and the residual into printable factors with
// multiplicities collected.
func buildFactors(varname string, roots []*big.Rat, rest []*big.Int) []factorTerm {
	type bucket struct {
		root  *big.Rat
		count int
	}
	var buckets []bucket
	zeroCount := 0
	for _, r := range roots {
		if r.Sign() == 0 {
			zeroCount++
			continue
		}
		found := false
		for i := range buckets {
			if buckets[i].root.Cmp(r) == 0 {
				buckets[i].count++
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{root: r, count: 1})
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].root.Cmp(buckets[j].root) < 0 })

	var out []factorTerm
	if zeroCount > 0 {
		out = append(out, factorTerm{text: varname, power: zeroCount, order: 0})
	}
	for _, b := range buckets {
		out = append(out, factorTerm{text: linearFactor(varname, b.root), power: b.count, order: 1})
	}
	if len(rest) > 1 {
		out = append(out, factorTerm{text: "(" + densePolyString(varname, rest) + ")", power: 1, order: 2})
	}
	return out
}

// linearFactor renders the monic-or-integer factor for root p/q:
// (x - 2), (x + 1/2) stays integral as (2*x + 1).
func linearFactor(varname string, root *big.Rat) string {
	num := root.Num()
	den := root.Denom()
	var b strings.Builder
	b.WriteString("(")
	if den.Cmp(big.NewInt(1)) == 0 {
		b.WriteString(varname)
	} else {
		b.WriteString(den.String())
		b.WriteString("*")
		b.WriteString(varname)
	}
	if num.Sign() >= 0 {
		b.WriteString(" - ")
		b.WriteString(num.String())
	} else {
		b.WriteString(" + ")
		b.WriteString(new(big.Int).Neg(num).String())
	}
	b.WriteString(")")
	return b.String()
}

// densePolyString renders ascending integer coefficients as a standard-form
// polynomial string.
func densePolyString(varname string, coeffs []*big.Int) string {
	p := &Poly{Var: varname, coeffs: map[int]*big.Rat{}}
	for e, c := range coeffs {
		p.setCoeff(e, new(big.Rat).SetInt(c))
	}
	return p.String()
}

func renderFactors(constant *big.Rat, factors []factorTerm) string {
	one := big.NewRat(1, 1)
	negOne := big.NewRat(-1, 1)

	var parts []string
	switch {
	case constant.Cmp(one) == 0:
	case constant.Cmp(negOne) == 0:
		parts = append(parts, "-1")
	default:
		parts = append(parts, ratString(constant))
	}
	sort.SliceStable(factors, func(i, j int) bool { return factors[i].order < factors[j].order })
	for _, f := range factors {
		s := f.text
		if f.power > 1 {
			s += "**" + itoa(f.power)
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "1"
	}
	// a lone unrepeated factor needs no parentheses
	if len(parts) == 1 && len(factors) == 1 && factors[0].power == 1 &&
		strings.HasPrefix(parts[0], "(") && strings.HasSuffix(parts[0], ")") {
		return parts[0][1 : len(parts[0])-1]
	}
	// "-1*(x + 1)" reads better as "-(x + 1)"
	joined := strings.Join(parts, "*")
	joined = strings.Replace(joined, "-1*(", "-(", 1)
	return joined
}

// SimplifyExpression expands and collects terms, returning the canonical
// form. It reports whether the output differs from the cleaned input.
func SimplifyExpression(input string) (string, bool, error) {
	p, err := ParseExpression(input)
	if err != nil {
		return "", false, err
	}
	out := p.String()
	normalizedIn := strings.Join(strings.Fields(strings.ReplaceAll(input, "^", "**")), " ")
	return out, out != normalizedIn, nil
}

// Derivative differentiates an expression, returning the derivative string.
func Derivative(expr, variable string, order int) (string, error) {
	if order < 1 {
		return "", errx.Newf(errx.KindDomain, "derivative order must be at least 1, got %d", order)
	}
	p, err := ParseExpression(expr)
	if err != nil {
		return "", err
	}
	if p.Var != "" && variable != "" && p.Var != variable {
		return "0", nil
	}
	return p.Derivative(order).String(), nil
}

// Integral integrates an expression. With limits it returns the exact
// definite value; otherwise the antiderivative plus the constant of
// integration.
func Integral(expr, variable string, lower, upper *big.Rat) (string, bool, error) {
	p, err := ParseExpression(expr)
	if err != nil {
		return "", false, err
	}
	if p.Var != "" && variable != "" && p.Var != variable {
		return "", false, errx.Newf(errx.KindDomain, "expression variable %q does not match integration variable %q", p.Var, variable)
	}
	anti := p.Integral(variable)
	if lower != nil && upper != nil {
		val := new(big.Rat).Sub(anti.Eval(upper), anti.Eval(lower))
		return ratString(val), true, nil
	}
	return anti.String() + " + C", false, nil
}
