package mathops

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// Operation identifies one deterministic math handler. The string values are
// the wire names the routing model must answer with.
type Operation string

const (
	OpSolveEquation      Operation = "solve_equation"
	OpSimplifyExpression Operation = "simplify_expression"
	OpDerivative         Operation = "calculate_derivative"
	OpIntegral           Operation = "calculate_integral"
	OpFactorExpression   Operation = "factor_expression"
	OpComplexArithmetic  Operation = "calculate_complex_arithmetic"
)

// Handler executes one operation. The context text is auxiliary user
// preference material; handlers only consult it for presentation choices.
type Handler func(query, contextText string) (map[string]any, error)

// Entry describes a registered operation: its wire name, the criteria line
// shown to the routing model, and the handler itself.
type Entry struct {
	Op       Operation
	Criteria string
	Handler  Handler
}

// Registry holds the operation table and enforces the per-handler timeout.
type Registry struct {
	entries map[Operation]Entry
	order   []Operation
	timeout time.Duration
}

// NewRegistry builds the standard six-operation registry.
func NewRegistry(timeout time.Duration) *Registry {
	r := &Registry{entries: map[Operation]Entry{}, timeout: timeout}
	r.register(Entry{
		Op:       OpSolveEquation,
		Criteria: "the query asks to solve an equation for a variable (contains '=' or 'solve')",
		Handler:  handleSolveEquation,
	})
	r.register(Entry{
		Op:       OpSimplifyExpression,
		Criteria: "the query asks to simplify, expand, or collect an algebraic expression",
		Handler:  handleSimplify,
	})
	r.register(Entry{
		Op:       OpDerivative,
		Criteria: "the query asks for a derivative or to differentiate",
		Handler:  handleDerivative,
	})
	r.register(Entry{
		Op:       OpIntegral,
		Criteria: "the query asks for an integral or to integrate, definite or indefinite",
		Handler:  handleIntegral,
	})
	r.register(Entry{
		Op:       OpFactorExpression,
		Criteria: "the query asks to factor or factorize a polynomial",
		Handler:  handleFactor,
	})
	r.register(Entry{
		Op:       OpComplexArithmetic,
		Criteria: "the query is pure numeric arithmetic, especially large numbers or many terms",
		Handler:  handleArithmetic,
	})
	return r
}

func (r *Registry) register(e Entry) {
	r.entries[e.Op] = e
	r.order = append(r.order, e.Op)
}

// Operations lists the wire names in registration order.
func (r *Registry) Operations() []string {
	out := make([]string, 0, len(r.order))
	for _, op := range r.order {
		out = append(out, string(op))
	}
	return out
}

// Resolve maps a wire name to its entry. Unknown names are a hard error so
// the router can report exactly what the classifier invented.
func (r *Registry) Resolve(name string) (Entry, error) {
	e, ok := r.entries[Operation(name)]
	if !ok {
		return Entry{}, errx.Newf(errx.KindUnknownTool, "unknown operation: %s", name)
	}
	return e, nil
}

// CriteriaPrompt renders the operation menu for the routing model.
func (r *Registry) CriteriaPrompt() string {
	var b strings.Builder
	for _, op := range r.order {
		e := r.entries[op]
		fmt.Fprintf(&b, "- %q: %s\n", string(e.Op), e.Criteria)
	}
	return b.String()
}

// Invoke runs one operation under the registry timeout. The handler runs in
// its own goroutine; a runaway parse cannot stall the conversation.
func (r *Registry) Invoke(ctx context.Context, op Operation, query, contextText string) (map[string]any, error) {
	entry, err := r.Resolve(string(op))
	if err != nil {
		return nil, err
	}

	type outcome struct {
		payload map[string]any
		err     error
	}
	ch := make(chan outcome, 1)
	start := time.Now()
	go func() {
		p, e := entry.Handler(query, contextText)
		ch <- outcome{payload: p, err: e}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, errx.New(ctx.Err(), errx.KindTimeout, fmt.Sprintf("operation %s canceled", op))
	case <-timer.C:
		logx.Warn().Str("operation", string(op)).Dur("timeout", r.timeout).Msg("math operation timed out")
		return nil, errx.Newf(errx.KindTimeout, "operation %s exceeded %s", op, r.timeout)
	case o := <-ch:
		logx.Debug().Str("operation", string(op)).Dur("elapsed", time.Since(start)).Bool("ok", o.err == nil).Msg("math operation finished")
		return o.payload, o.err
	}
}

var (
	reArithmeticTrigger = regexp.MustCompile(`\d\s*[+\-*/^]\s*\d`)
	reEquationTrigger   = regexp.MustCompile(`[0-9a-z)]\s*=\s*[0-9a-z(-]`)
)

var triggerKeywords = []string{
	"solve", "simplify", "derivative", "differentiate",
	"integrate", "integral", "factor", "factorize", "calculate",
}

// MatchesTrigger reports whether a query looks like a math request. The
// context provider uses it to refuse computational questions so they reach
// the router instead of being answered from stored notes.
func MatchesTrigger(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range triggerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return reArithmeticTrigger.MatchString(lower) || reEquationTrigger.MatchString(lower)
}

// notationPreference reads a rendering preference out of the fetched context.
// "caret" or "^ notation" switches power rendering from x**2 to x^2.
func notationPreference(contextText string) bool {
	lower := strings.ToLower(contextText)
	return strings.Contains(lower, "caret") || strings.Contains(lower, "^ notation")
}

func applyNotation(s string, caret bool) string {
	if caret {
		return strings.ReplaceAll(s, "**", "^")
	}
	return s
}

func handleSolveEquation(query, contextText string) (map[string]any, error) {
	equation := ExtractEquation(query)
	solutions, variable, err := SolveEquation(equation)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"equation":       equation,
		"variable":       variable,
		"solutions":      solutions,
		"solution_count": len(solutions),
		"solution_type":  "symbolic",
	}, nil
}

func handleSimplify(query, contextText string) (map[string]any, error) {
	expression := ExtractExpression(query)
	simplified, changed, err := SimplifyExpression(expression)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"original_expression":   expression,
		"simplified_expression": applyNotation(simplified, notationPreference(contextText)),
		"is_simplified":         changed,
	}, nil
}

func handleDerivative(query, contextText string) (map[string]any, error) {
	expression := ExtractExpression(query)
	variable, order := DerivativeParams(query)
	derivative, err := Derivative(expression, variable, order)
	if err != nil {
		return nil, err
	}
	rendered := applyNotation(derivative, notationPreference(contextText))
	return map[string]any{
		"original_expression":   expression,
		"variable":              variable,
		"order":                 order,
		"derivative":            rendered,
		"simplified_derivative": rendered,
	}, nil
}

func handleIntegral(query, contextText string) (map[string]any, error) {
	expression := ExtractExpression(query)
	variable, lower, upper := IntegralParams(query)
	integral, definite, err := Integral(expression, variable, lower, upper)
	if err != nil {
		return nil, err
	}
	integralType := "indefinite"
	var limits []string
	if definite {
		integralType = "definite"
		limits = []string{ratString(lower), ratString(upper)}
	}
	rendered := applyNotation(integral, notationPreference(contextText))
	return map[string]any{
		"original_expression": expression,
		"variable":            variable,
		"limits":              limits,
		"integral_type":       integralType,
		"integral":            rendered,
		"simplified_integral": rendered,
	}, nil
}

func handleFactor(query, contextText string) (map[string]any, error) {
	expression := ExtractExpression(query)
	factored, changed, err := FactorExpression(expression)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"original_expression": expression,
		"factored_expression": applyNotation(factored, notationPreference(contextText)),
		"is_factored":         changed,
	}, nil
}

func handleArithmetic(query, contextText string) (map[string]any, error) {
	expression := ExtractArithmetic(query)
	result, cleaned, err := EvaluateArithmetic(expression)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"original_expression": expression,
		"cleaned_expression":  cleaned,
		"result":              result,
		"result_type":         "arithmetic",
		"precision":           "high",
	}, nil
}
