package mathops

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Natural language queries carry the math embedded in prose. The extractors
// cut away the prose so the parsers see only the expression. They never fail:
// when nothing matches they hand back the whole query and let parsing report
// the real problem.

var (
	reEquationPrefix1 = regexp.MustCompile(`^(solve|find|what is|calculate)\s+`)
	reEquationPrefix2 = regexp.MustCompile(`^(for\s+|the\s+)?(equation|expression)\s+`)
	reEquationPrefix3 = regexp.MustCompile(`^for\s+`)
	reEquationBody    = regexp.MustCompile(`[0-9a-zA-Z+\-*/^=().\s]+`)

	reExprPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`^(simplify|derivative of|differentiate|integrate|factor|factorize)\s+`),
		regexp.MustCompile(`^(find the|calculate the|what is the)\s+`),
		regexp.MustCompile(`^(the\s+)?(derivative|integral|factor)\s+of\s+`),
	}
	reExprBody = regexp.MustCompile(`[0-9a-zA-Z+\-*/^().\s]+`)

	// presentation clauses ("in my notation", "like before") follow the math
	// and would otherwise leak into the expression body
	reTrailingPreference = regexp.MustCompile(`\s+(?:(?:in|with|using)\s+my\s+.*|my\s+preferred\s+.*|like\s+(?:before|last\s+time)\b.*|as\s+(?:usual|before|i\s+like\s+it)\b.*|the\s+way\s+i\s+like.*)$`)

	reArithmeticBody = regexp.MustCompile(`[0-9+\-*/().\s]+`)

	reWithRespectTo = regexp.MustCompile(`with respect to (\w+)`)
	reDifferential  = regexp.MustCompile(`d([a-wyz])\b`)
	reOrderNth      = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)?\s+derivative`)

	reLimitsFromTo     = regexp.MustCompile(`from\s+(\S+)\s+to\s+(\S+)`)
	reLimitsBetweenAnd = regexp.MustCompile(`between\s+(\S+)\s+and\s+(\S+)`)
	reLimitsBracket    = regexp.MustCompile(`\[([^,\]]+),\s*([^\]]+)\]`)
)

// ExtractEquation pulls the equation text out of a query like
// "solve 2x + 3 = 7".
func ExtractEquation(query string) string {
	cleaned := strings.ToLower(strings.TrimSpace(query))
	cleaned = reEquationPrefix1.ReplaceAllString(cleaned, "")
	cleaned = reEquationPrefix2.ReplaceAllString(cleaned, "")
	cleaned = reEquationPrefix3.ReplaceAllString(cleaned, "")
	cleaned = reTrailingPreference.ReplaceAllString(cleaned, "")
	if m := reEquationBody.FindString(cleaned); strings.TrimSpace(m) != "" {
		return strings.TrimSpace(m)
	}
	return query
}

// ExtractExpression pulls the expression from queries like
// "derivative of x^2" or "integrate x from 0 to 2" (limits removed).
func ExtractExpression(query string) string {
	cleaned := strings.ToLower(strings.TrimSpace(query))
	for _, re := range reExprPrefixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = reTrailingPreference.ReplaceAllString(cleaned, "")
	// definite-integral limits are parsed separately
	if strings.Contains(cleaned, "from") && strings.Contains(cleaned, "to") {
		if before := strings.TrimSpace(strings.SplitN(cleaned, "from", 2)[0]); before != "" {
			cleaned = before
		}
	}
	if m := reExprBody.FindString(cleaned); strings.TrimSpace(m) != "" {
		return strings.TrimSpace(m)
	}
	return query
}

// ExtractArithmetic pulls the numeric expression out of a query like
// "calculate 222222+555555*10000".
func ExtractArithmetic(query string) string {
	longest := ""
	for _, m := range reArithmeticBody.FindAllString(query, -1) {
		t := strings.TrimSpace(m)
		if strings.ContainsAny(t, "0123456789") && len(t) > len(longest) {
			longest = t
		}
	}
	if longest != "" {
		return longest
	}
	return query
}

// DerivativeParams reads the variable and order from a derivative query.
// Defaults: variable "x", order 1.
func DerivativeParams(query string) (string, int) {
	variable := "x"
	order := 1
	lower := strings.ToLower(query)

	if m := reWithRespectTo.FindStringSubmatch(lower); m != nil {
		variable = m[1]
	}
	switch {
	case strings.Contains(lower, "second derivative"):
		order = 2
	case strings.Contains(lower, "third derivative"):
		order = 3
	default:
		if m := reOrderNth.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				order = n
			}
		}
	}
	return variable, order
}

// IntegralParams reads the variable and optional [lower, upper] limits from
// an integral query. Limits come back nil when absent or non-numeric.
func IntegralParams(query string) (string, *big.Rat, *big.Rat) {
	variable := "x"
	lower := strings.ToLower(query)

	if m := reWithRespectTo.FindStringSubmatch(lower); m != nil {
		variable = m[1]
	} else if m := reDifferential.FindStringSubmatch(lower); m != nil {
		variable = m[1]
	}

	for _, re := range []*regexp.Regexp{reLimitsFromTo, reLimitsBetweenAnd, reLimitsBracket} {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		lo, okLo := new(big.Rat).SetString(strings.TrimSpace(m[1]))
		hi, okHi := new(big.Rat).SetString(strings.TrimSpace(m[2]))
		if okLo && okHi {
			return variable, lo, hi
		}
	}
	return variable, nil, nil
}
