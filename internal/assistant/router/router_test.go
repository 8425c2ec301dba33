package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padpal/server/internal/assistant/model"
	errx "github.com/padpal/server/internal/core/error"
)

type cannedFetcher struct {
	result *model.ContextResult
	err    error
	calls  int
}

func (f *cannedFetcher) FetchContext(ctx context.Context, query string) (*model.ContextResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestRouter(routingJSON string, fetcher ContextFetcher) *Router {
	classifier := NewClassifier(&cannedChatModel{content: routingJSON}, "routing prompt")
	return NewRouter(classifier, testRegistry(), fetcher)
}

func TestRouter_Route_SolveEquation(t *testing.T) {
	r := newTestRouter(`{"operation": "solve_equation", "needs_context": false}`, nil)

	res := r.Route(context.Background(), "solve 2x + 3 = 7")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, []string{"2"}, res.Payload["solutions"])
	require.NotNil(t, res.Routing)
	assert.Equal(t, "solve_equation", res.Routing.Operation)
	assert.False(t, res.Routing.ContextUsed)
}

func TestRouter_Route_Arithmetic(t *testing.T) {
	r := newTestRouter(`{"operation": "calculate_complex_arithmetic", "needs_context": false}`, nil)

	res := r.Route(context.Background(), "what is 222222+555555*10000")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, int64(5555772222), res.Payload["result"])
}

func TestRouter_Route_IsDeterministic(t *testing.T) {
	r := newTestRouter(`{"operation": "calculate_derivative", "needs_context": false}`, nil)

	first := r.Route(context.Background(), "derivative of x^2")
	second := r.Route(context.Background(), "derivative of x^2")
	assert.Equal(t, first.Payload["derivative"], second.Payload["derivative"])
	assert.Equal(t, "2*x", first.Payload["derivative"])
}

func TestRouter_Route_FetchesContextWhenNeeded(t *testing.T) {
	fetcher := &cannedFetcher{result: &model.ContextResult{
		Status:       model.StatusSuccess,
		RelevantText: "user prefers caret notation",
	}}
	r := newTestRouter(`{"operation": "calculate_derivative", "needs_context": true}`, fetcher)

	res := r.Route(context.Background(), "derivative of x^3 in my notation")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "3*x^2", res.Payload["derivative"], "caret preference applied")

	require.NotNil(t, res.Routing)
	assert.True(t, res.Routing.ContextUsed)
	assert.Equal(t, "user prefers caret notation", res.Routing.ContextSnippet)
}

func TestRouter_Route_SkipsFetchWhenNotNeeded(t *testing.T) {
	fetcher := &cannedFetcher{result: &model.ContextResult{Status: model.StatusSuccess}}
	r := newTestRouter(`{"operation": "solve_equation", "needs_context": false}`, fetcher)

	r.Route(context.Background(), "solve 2x + 3 = 7")
	assert.Equal(t, 0, fetcher.calls)
}

func TestRouter_Route_DegradesWhenContextFetchFails(t *testing.T) {
	fetcher := &cannedFetcher{err: errx.Newf(errx.KindContextFetch, "scratch pad unavailable")}
	r := newTestRouter(`{"operation": "solve_equation", "needs_context": true}`, fetcher)

	res := r.Route(context.Background(), "solve 2x + 3 = 7 like before")
	assert.Equal(t, model.StatusSuccess, res.Status, "operation still runs without context")
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, []string{"2"}, res.Payload["solutions"])
	assert.False(t, res.Routing.ContextUsed)
}

func TestRouter_Route_IgnoresComputationSentinelContext(t *testing.T) {
	fetcher := &cannedFetcher{result: &model.ContextResult{
		Status:              model.StatusSuccess,
		RelevantText:        model.ComputationRequiredMarker,
		ComputationRequired: true,
	}}
	r := newTestRouter(`{"operation": "solve_equation", "needs_context": true}`, fetcher)

	res := r.Route(context.Background(), "solve 2x + 3 = 7 as usual")
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.False(t, res.Routing.ContextUsed)
}

func TestRouter_Route_ClassifierFailure(t *testing.T) {
	r := newTestRouter("not json at all", nil)

	res := r.Route(context.Background(), "solve 2x + 3 = 7")
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "solve 2x + 3 = 7", res.Payload["query"])
	assert.NotEmpty(t, res.Payload["message"])
	assert.Nil(t, res.Routing)
}

func TestRouter_Route_UnknownOperation(t *testing.T) {
	r := newTestRouter(`{"operation": "compute_eigenvalues", "needs_context": false}`, nil)

	res := r.Route(context.Background(), "solve 2x + 3 = 7")
	assert.Equal(t, model.StatusError, res.Status)
	assert.Contains(t, res.Payload["message"], "compute_eigenvalues")
}

func TestRouter_Route_HandlerFailureBecomesErrorResult(t *testing.T) {
	r := newTestRouter(`{"operation": "simplify_expression", "needs_context": false}`, nil)

	res := r.Route(context.Background(), "simplify sin(x)/cos(x)")
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "simplify_expression", res.Payload["operation"])
	assert.Equal(t, "simplify sin(x)/cos(x)", res.Payload["query"])
	assert.NotEmpty(t, res.Payload["message"])
	require.NotNil(t, res.Routing, "routing metadata survives handler failure")
}
