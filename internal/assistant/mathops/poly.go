package mathops

import (
	"math/big"
	"sort"
	"strings"

	errx "github.com/padpal/server/internal/core/error"
)

// Poly is a univariate polynomial with exact rational coefficients. It is the
// canonical form every operation handler works on: parsing normalizes input
// into a Poly, and String() renders the expanded, collected representation.
type Poly struct {
	// Var is the variable name, or "" for a constant polynomial.
	Var    string
	coeffs map[int]*big.Rat // exponent -> coefficient, zero entries removed
}

func NewConstPoly(r *big.Rat) *Poly {
	p := &Poly{coeffs: map[int]*big.Rat{}}
	if r.Sign() != 0 {
		p.coeffs[0] = new(big.Rat).Set(r)
	}
	return p
}

func NewVarPoly(name string) *Poly {
	return &Poly{
		Var:    name,
		coeffs: map[int]*big.Rat{1: big.NewRat(1, 1)},
	}
}

func (p *Poly) Clone() *Poly {
	q := &Poly{Var: p.Var, coeffs: make(map[int]*big.Rat, len(p.coeffs))}
	for e, c := range p.coeffs {
		q.coeffs[e] = new(big.Rat).Set(c)
	}
	return q
}

// Coeff returns the coefficient for the given exponent (zero when absent).
func (p *Poly) Coeff(exp int) *big.Rat {
	if c, ok := p.coeffs[exp]; ok {
		return new(big.Rat).Set(c)
	}
	return new(big.Rat)
}

func (p *Poly) setCoeff(exp int, c *big.Rat) {
	if c.Sign() == 0 {
		delete(p.coeffs, exp)
		return
	}
	p.coeffs[exp] = new(big.Rat).Set(c)
}

// Degree returns the polynomial degree; the zero polynomial has degree 0.
func (p *Poly) Degree() int {
	d := 0
	for e := range p.coeffs {
		if e > d {
			d = e
		}
	}
	return d
}

func (p *Poly) IsZero() bool {
	return len(p.coeffs) == 0
}

func (p *Poly) IsConst() bool {
	_, hasHigher := p.maxNonConstExp()
	return !hasHigher
}

func (p *Poly) maxNonConstExp() (int, bool) {
	found := false
	max := 0
	for e := range p.coeffs {
		if e > 0 {
			found = true
			if e > max {
				max = e
			}
		}
	}
	return max, found
}

// ConstValue returns the value of a constant polynomial.
func (p *Poly) ConstValue() *big.Rat {
	return p.Coeff(0)
}

// mergeVar reconciles the variable names of two operands. Expressions over
// two distinct variables are outside the supported subset.
func mergeVar(a, b *Poly) (string, error) {
	switch {
	case a.Var == "" || a.Var == b.Var:
		return b.Var, nil
	case b.Var == "":
		return a.Var, nil
	default:
		return "", errx.Newf(errx.KindDomain, "multivariate expressions are not supported (%s, %s)", a.Var, b.Var)
	}
}

func (p *Poly) Add(q *Poly) (*Poly, error) {
	v, err := mergeVar(p, q)
	if err != nil {
		return nil, err
	}
	out := p.Clone()
	out.Var = v
	for e, c := range q.coeffs {
		sum := out.Coeff(e)
		sum.Add(sum, c)
		out.setCoeff(e, sum)
	}
	return out, nil
}

func (p *Poly) Sub(q *Poly) (*Poly, error) {
	neg := q.Clone()
	for e, c := range neg.coeffs {
		neg.coeffs[e] = new(big.Rat).Neg(c)
	}
	return p.Add(neg)
}

func (p *Poly) Mul(q *Poly) (*Poly, error) {
	v, err := mergeVar(p, q)
	if err != nil {
		return nil, err
	}
	out := &Poly{Var: v, coeffs: map[int]*big.Rat{}}
	for e1, c1 := range p.coeffs {
		for e2, c2 := range q.coeffs {
			prod := new(big.Rat).Mul(c1, c2)
			sum := out.Coeff(e1 + e2)
			sum.Add(sum, prod)
			out.setCoeff(e1+e2, sum)
		}
	}
	return out, nil
}

// Scale multiplies every coefficient by r.
func (p *Poly) Scale(r *big.Rat) *Poly {
	out := &Poly{Var: p.Var, coeffs: map[int]*big.Rat{}}
	for e, c := range p.coeffs {
		out.setCoeff(e, new(big.Rat).Mul(c, r))
	}
	return out
}

// PowInt raises the polynomial to a non-negative integer power.
func (p *Poly) PowInt(n int) (*Poly, error) {
	if n < 0 {
		if !p.IsConst() {
			return nil, errx.Newf(errx.KindDomain, "negative exponents are only supported for constants")
		}
		c := p.ConstValue()
		if c.Sign() == 0 {
			return nil, errx.Newf(errx.KindDomain, "division by zero")
		}
		inv := new(big.Rat).Inv(c)
		out := NewConstPoly(big.NewRat(1, 1))
		for i := 0; i < -n; i++ {
			out = out.Scale(inv)
		}
		return out, nil
	}
	out := NewConstPoly(big.NewRat(1, 1))
	out.Var = p.Var
	var err error
	for i := 0; i < n; i++ {
		out, err = out.Mul(p)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Derivative returns the n-th derivative.
func (p *Poly) Derivative(order int) *Poly {
	out := p.Clone()
	for i := 0; i < order; i++ {
		next := &Poly{Var: out.Var, coeffs: map[int]*big.Rat{}}
		for e, c := range out.coeffs {
			if e == 0 {
				continue
			}
			scaled := new(big.Rat).Mul(c, big.NewRat(int64(e), 1))
			next.setCoeff(e-1, scaled)
		}
		out = next
	}
	if out.IsConst() {
		out.Var = ""
	}
	return out
}

// Integral returns the antiderivative with zero constant term.
func (p *Poly) Integral(varname string) *Poly {
	v := p.Var
	if v == "" {
		v = varname
	}
	out := &Poly{Var: v, coeffs: map[int]*big.Rat{}}
	for e, c := range p.coeffs {
		scaled := new(big.Rat).Mul(c, big.NewRat(1, int64(e+1)))
		out.setCoeff(e+1, scaled)
	}
	return out
}

// Eval substitutes x for the variable.
func (p *Poly) Eval(x *big.Rat) *big.Rat {
	// Horner over the dense range up to Degree.
	deg := p.Degree()
	acc := new(big.Rat)
	for e := deg; e >= 0; e-- {
		acc.Mul(acc, x)
		acc.Add(acc, p.Coeff(e))
	}
	return acc
}

// ratString renders a rational exactly: integers without denominator,
// everything else as num/den.
func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.Num().String() + "/" + r.Denom().String()
}

// String renders the expanded canonical form, highest exponent first,
// e.g. "x**2 + 2*x + 1" or "2*x" or "-3".
func (p *Poly) String() string {
	if p.IsZero() {
		return "0"
	}
	exps := make([]int, 0, len(p.coeffs))
	for e := range p.coeffs {
		exps = append(exps, e)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(exps)))

	var b strings.Builder
	for i, e := range exps {
		c := p.coeffs[e]
		neg := c.Sign() < 0
		abs := new(big.Rat).Abs(c)

		if i == 0 {
			if neg {
				b.WriteString("-")
			}
		} else {
			if neg {
				b.WriteString(" - ")
			} else {
				b.WriteString(" + ")
			}
		}
		b.WriteString(termString(abs, p.Var, e))
	}
	return b.String()
}

// termString renders |coeff|*var**exp with the usual omissions.
func termString(abs *big.Rat, varname string, exp int) string {
	one := abs.Cmp(big.NewRat(1, 1)) == 0
	switch {
	case exp == 0:
		return ratString(abs)
	case exp == 1:
		if one {
			return varname
		}
		return ratString(abs) + "*" + varname
	default:
		base := varname + "**" + itoa(exp)
		if one {
			return base
		}
		return ratString(abs) + "*" + base
	}
}

func itoa(n int) string {
	return big.NewInt(int64(n)).String()
}
