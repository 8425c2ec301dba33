package mathops

import (
	"math/big"
	"strings"
	"unicode"

	errx "github.com/padpal/server/internal/core/error"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp    // + - * / ^
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	input string
	pos   int
}

// knownFunctions are names we recognize but do not evaluate. Naming them in
// errors beats a generic syntax failure.
var knownFunctions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"log": true, "ln": true, "exp": true, "sqrt": true, "abs": true,
	"sinh": true, "cosh": true, "tanh": true,
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.input[l.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		seenDot := false
		for l.pos < len(l.input) {
			ch := l.input[l.pos]
			if ch == '.' {
				if seenDot {
					return token{}, errx.Newf(errx.KindParse, "unexpected '.' at position %d", l.pos)
				}
				seenDot = true
				l.pos++
				continue
			}
			if ch < '0' || ch > '9' {
				break
			}
			l.pos++
		}
		return token{kind: tokNumber, text: l.input[start:l.pos], pos: start}, nil
	case unicode.IsLetter(rune(c)):
		for l.pos < len(l.input) && unicode.IsLetter(rune(l.input[l.pos])) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.input[start:l.pos], pos: start}, nil
	case c == '*':
		// normalize ** to ^
		if l.pos+1 < len(l.input) && l.input[l.pos+1] == '*' {
			l.pos += 2
			return token{kind: tokOp, text: "^", pos: start}, nil
		}
		l.pos++
		return token{kind: tokOp, text: "*", pos: start}, nil
	case c == '+' || c == '-' || c == '/' || c == '^':
		l.pos++
		return token{kind: tokOp, text: string(c), pos: start}, nil
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	default:
		return token{}, errx.Newf(errx.KindParse, "unexpected character %q at position %d", string(c), l.pos)
	}
}

type parser struct {
	lex *lexer
	cur token
}

func newParser(input string) (*parser, error) {
	p := &parser{lex: &lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

// ParseExpression parses an algebraic expression over a single variable into
// a Poly. Supported grammar: + - * / ^ (integer exponents), parentheses and
// implicit multiplication such as "2x" or "3(x+1)".
func ParseExpression(input string) (*Poly, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, errx.Newf(errx.KindParse, "empty expression")
	}
	p, err := newParser(trimmed)
	if err != nil {
		return nil, err
	}
	poly, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, errx.Newf(errx.KindParse, "unexpected %q at position %d", p.cur.text, p.cur.pos)
	}
	return poly, nil
}

// ParseEquation splits on a single "=" and returns lhs - rhs as one Poly.
func ParseEquation(input string) (*Poly, error) {
	parts := strings.Split(input, "=")
	if len(parts) != 2 {
		return nil, errx.Newf(errx.KindParse, "equation must contain exactly one '=': %q", input)
	}
	lhs, err := ParseExpression(parts[0])
	if err != nil {
		return nil, err
	}
	rhs, err := ParseExpression(parts[1])
	if err != nil {
		return nil, err
	}
	return lhs.Sub(rhs)
}

func (p *parser) parseExpr() (*Poly, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokOp && (p.cur.text == "+" || p.cur.text == "-") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left, err = left.Add(right)
		} else {
			left, err = left.Sub(right)
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseTerm() (*Poly, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.cur.kind == tokOp && p.cur.text == "*":
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			if left, err = left.Mul(right); err != nil {
				return nil, err
			}
		case p.cur.kind == tokOp && p.cur.text == "/":
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			if !right.IsConst() {
				return nil, errx.Newf(errx.KindDomain, "division by a variable expression is not supported")
			}
			d := right.ConstValue()
			if d.Sign() == 0 {
				return nil, errx.Newf(errx.KindDomain, "division by zero")
			}
			left = left.Scale(new(big.Rat).Inv(d))
		case p.cur.kind == tokNumber || p.cur.kind == tokIdent || p.cur.kind == tokLParen:
			// implicit multiplication: 2x, 3(x+1), (x+1)(x-1)
			right, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			if left, err = left.Mul(right); err != nil {
				return nil, err
			}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (*Poly, error) {
	if p.cur.kind == tokOp && (p.cur.text == "+" || p.cur.text == "-") {
		neg := p.cur.text == "-"
		if err := p.advance(); err != nil {
			return nil, err
		}
		poly, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if neg {
			poly = poly.Scale(big.NewRat(-1, 1))
		}
		return poly, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (*Poly, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokOp && p.cur.text == "^" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		// right-associative, exponent may carry a sign
		exp, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		return base.PowInt(exp)
	}
	return base, nil
}

func (p *parser) parseExponent() (int, error) {
	sign := 1
	for p.cur.kind == tokOp && (p.cur.text == "+" || p.cur.text == "-") {
		if p.cur.text == "-" {
			sign = -sign
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
	}
	if p.cur.kind == tokLParen {
		if err := p.advance(); err != nil {
			return 0, err
		}
		n, err := p.parseExponent()
		if err != nil {
			return 0, err
		}
		if p.cur.kind != tokRParen {
			return 0, errx.Newf(errx.KindParse, "missing ')' in exponent")
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		return sign * n, nil
	}
	if p.cur.kind != tokNumber {
		return 0, errx.Newf(errx.KindDomain, "exponents must be integer constants")
	}
	r, ok := new(big.Rat).SetString(p.cur.text)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return 0, errx.Newf(errx.KindDomain, "exponents must be integer constants, got %q", p.cur.text)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	n := int(r.Num().Int64())
	if n > 64 {
		return 0, errx.Newf(errx.KindDomain, "exponent %d is too large", n)
	}
	return sign * n, nil
}

func (p *parser) parseAtom() (*Poly, error) {
	switch p.cur.kind {
	case tokNumber:
		r, ok := new(big.Rat).SetString(p.cur.text)
		if !ok {
			return nil, errx.Newf(errx.KindParse, "invalid number %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return NewConstPoly(r), nil
	case tokIdent:
		name := p.cur.text
		if len(name) > 1 {
			if knownFunctions[strings.ToLower(name)] {
				return nil, errx.Newf(errx.KindDomain, "function %q is not supported; only polynomial expressions are", name)
			}
			return nil, errx.Newf(errx.KindParse, "unexpected identifier %q; variables must be a single letter", name)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return NewVarPoly(name), nil
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, errx.Newf(errx.KindParse, "missing ')' at position %d", p.cur.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, errx.Newf(errx.KindParse, "unexpected %q at position %d", p.cur.text, p.cur.pos)
	}
}
