package mathops

import (
	"fmt"
	"math/big"
	"sort"

	errx "github.com/padpal/server/internal/core/error"
)

// SolveEquation parses "lhs = rhs" and returns the real solutions of the
// resulting polynomial as exact strings. Irrational quadratic roots are
// rendered symbolically with sqrt(); higher degrees are handled as far as
// rational root deflation reaches.
func SolveEquation(equation string) ([]string, string, error) {
	p, err := ParseEquation(equation)
	if err != nil {
		return nil, "", err
	}
	if p.IsZero() {
		// identity: both sides cancel, every value satisfies it
		return []string{}, p.Var, nil
	}
	if p.IsConst() {
		return nil, "", errx.Newf(errx.KindDomain, "equation %q reduces to a false constant and is never satisfied", equation)
	}
	roots, err := solvePoly(p)
	if err != nil {
		return nil, "", err
	}
	return roots, p.Var, nil
}

func solvePoly(p *Poly) ([]string, error) {
	ints, err := intCoeffs(p)
	if err != nil {
		return nil, err
	}
	deg := len(ints) - 1
	switch {
	case deg == 0:
		return []string{}, nil
	case deg == 1:
		root := new(big.Rat).SetFrac(new(big.Int).Neg(ints[0]), ints[1])
		return []string{ratString(root)}, nil
	case deg == 2:
		return solveQuadratic(ints[2], ints[1], ints[0])
	default:
		return solveHighDegree(ints)
	}
}

// solveQuadratic returns exact roots of a*x^2 + b*x + c = 0.
func solveQuadratic(a, b, c *big.Int) ([]string, error) {
	disc := new(big.Int).Mul(b, b)
	disc.Sub(disc, new(big.Int).Mul(big.NewInt(4), new(big.Int).Mul(a, c)))

	twoA := new(big.Int).Mul(big.NewInt(2), a)
	negB := new(big.Int).Neg(b)

	if disc.Sign() < 0 {
		return nil, errx.Newf(errx.KindDomain, "equation has no real solutions (discriminant %s)", disc.String())
	}
	if s, ok := exactSqrt(disc); ok {
		r1 := new(big.Rat).SetFrac(new(big.Int).Add(negB, s), twoA)
		r2 := new(big.Rat).SetFrac(new(big.Int).Sub(negB, s), twoA)
		return sortedUniqueRats([]*big.Rat{r1, r2}), nil
	}
	// irrational pair rendered symbolically
	lo := fmt.Sprintf("(%s - sqrt(%s))/%s", negB.String(), disc.String(), twoA.String())
	hi := fmt.Sprintf("(%s + sqrt(%s))/%s", negB.String(), disc.String(), twoA.String())
	return []string{lo, hi}, nil
}

// solveHighDegree peels off rational roots; whatever remains must reduce to a
// quadratic or the equation is outside the supported subset.
func solveHighDegree(ints []*big.Int) ([]string, error) {
	rational, rest := deflateRationalRoots(ints)
	restDeg := len(rest) - 1

	var extra []string
	switch restDeg {
	case 0:
		// fully deflated
	case 1:
		root := new(big.Rat).SetFrac(new(big.Int).Neg(rest[0]), rest[1])
		rational = append(rational, root)
	case 2:
		q, err := solveQuadratic(rest[2], rest[1], rest[0])
		if err != nil {
			if !errx.IsKind(err, errx.KindDomain) || len(rational) == 0 {
				return nil, err
			}
			// complex residual pair; keep the real rational roots
		} else {
			for _, s := range q {
				if r, ok := new(big.Rat).SetString(s); ok {
					// rational quadratic roots are normally deflated
					// already, merge defensively
					rational = append(rational, r)
					continue
				}
				extra = append(extra, s)
			}
		}
	default:
		// An irreducible residual of degree 3+ has real roots this engine
		// cannot express. A partial solution set would be a wrong answer.
		return nil, errx.Newf(errx.KindDomain, "equation has an irreducible factor of degree %d that cannot be solved exactly", restDeg)
	}

	out := sortedUniqueRats(rational)
	out = append(out, extra...)
	return out, nil
}

// intCoeffs converts a Poly to dense ascending integer coefficients by
// clearing denominators. The leading coefficient is non-zero.
func intCoeffs(p *Poly) ([]*big.Int, error) {
	if p.IsZero() {
		return nil, errx.Newf(errx.KindDomain, "the zero polynomial has no meaningful solutions")
	}
	deg := p.Degree()
	lcm := big.NewInt(1)
	for e := 0; e <= deg; e++ {
		d := p.Coeff(e).Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Div(new(big.Int).Mul(lcm, d), g)
	}
	out := make([]*big.Int, deg+1)
	for e := 0; e <= deg; e++ {
		c := p.Coeff(e)
		scaled := new(big.Int).Mul(c.Num(), new(big.Int).Div(lcm, c.Denom()))
		out[e] = scaled
	}
	return out, nil
}

// exactSqrt returns the integer square root when n is a perfect square.
func exactSqrt(n *big.Int) (*big.Int, bool) {
	if n.Sign() < 0 {
		return nil, false
	}
	s := new(big.Int).Sqrt(n)
	if new(big.Int).Mul(s, s).Cmp(n) == 0 {
		return s, true
	}
	return nil, false
}

// rationalRootCandidates enumerates p/q with p dividing the constant term and
// q dividing the leading coefficient, both signs.
func rationalRootCandidates(ints []*big.Int) []*big.Rat {
	lead := ints[len(ints)-1]
	// skip leading zero-trimmed constant tail: find lowest non-zero coeff
	low := 0
	for low < len(ints)-1 && ints[low].Sign() == 0 {
		low++
	}
	constTerm := ints[low]

	ps := divisors(new(big.Int).Abs(constTerm))
	qs := divisors(new(big.Int).Abs(lead))

	seen := map[string]bool{}
	var out []*big.Rat
	for _, p := range ps {
		for _, q := range qs {
			for _, sign := range []int64{1, -1} {
				r := new(big.Rat).SetFrac(new(big.Int).Mul(p, big.NewInt(sign)), q)
				k := r.RatString()
				if !seen[k] {
					seen[k] = true
					out = append(out, r)
				}
			}
		}
	}
	return out
}

// divisors returns all positive divisors of |n|; bounded trial division is
// fine at the coefficient sizes conversational queries produce.
func divisors(n *big.Int) []*big.Int {
	if n.Sign() == 0 {
		return []*big.Int{big.NewInt(1)}
	}
	if !n.IsInt64() || n.Int64() > 1_000_000 {
		// too large to enumerate; fall back to +/-1 and n itself
		return []*big.Int{big.NewInt(1), new(big.Int).Set(n)}
	}
	v := n.Int64()
	var out []*big.Int
	for d := int64(1); d*d <= v; d++ {
		if v%d == 0 {
			out = append(out, big.NewInt(d))
			if d != v/d {
				out = append(out, big.NewInt(v/d))
			}
		}
	}
	return out
}

// deflateRationalRoots divides out every rational root (with multiplicity)
// and returns the roots found plus the remaining coefficients.
func deflateRationalRoots(ints []*big.Int) ([]*big.Rat, []*big.Int) {
	coeffs := make([]*big.Rat, len(ints))
	for i, c := range ints {
		coeffs[i] = new(big.Rat).SetInt(c)
	}

	var roots []*big.Rat
	// factor out x = 0 first
	for len(coeffs) > 1 && coeffs[0].Sign() == 0 {
		roots = append(roots, new(big.Rat))
		coeffs = coeffs[1:]
	}

	for len(coeffs) > 1 {
		intsNow := ratCoeffsToInts(coeffs)
		found := false
		for _, cand := range rationalRootCandidates(intsNow) {
			if evalDense(coeffs, cand).Sign() == 0 {
				roots = append(roots, cand)
				coeffs = syntheticDivide(coeffs, cand)
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return roots, ratCoeffsToInts(coeffs)
}

func ratCoeffsToInts(coeffs []*big.Rat) []*big.Int {
	lcm := big.NewInt(1)
	for _, c := range coeffs {
		d := c.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Div(new(big.Int).Mul(lcm, d), g)
	}
	out := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		out[i] = new(big.Int).Mul(c.Num(), new(big.Int).Div(lcm, c.Denom()))
	}
	return out
}

func evalDense(coeffs []*big.Rat, x *big.Rat) *big.Rat {
	acc := new(big.Rat)
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Add(acc, coeffs[i])
	}
	return acc
}

// syntheticDivide divides by (x - r), assuming r is a root.
func syntheticDivide(coeffs []*big.Rat, r *big.Rat) []*big.Rat {
	n := len(coeffs)
	out := make([]*big.Rat, n-1)
	carry := new(big.Rat).Set(coeffs[n-1])
	for i := n - 2; i >= 0; i-- {
		out[i] = new(big.Rat).Set(carry)
		carry = new(big.Rat).Add(coeffs[i], new(big.Rat).Mul(carry, r))
	}
	return out
}

func sortedUniqueRats(rs []*big.Rat) []string {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Cmp(rs[j]) < 0 })
	out := make([]string, 0, len(rs))
	var last *big.Rat
	for _, r := range rs {
		if last != nil && last.Cmp(r) == 0 {
			continue
		}
		out = append(out, ratString(r))
		last = r
	}
	return out
}
