package router

import (
	"context"

	"github.com/padpal/server/internal/assistant/mathops"
	"github.com/padpal/server/internal/assistant/model"
	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// ContextFetcher resolves stored user context for a query. The scratch pad
// provider implements it; the router only cares about the result shape.
type ContextFetcher interface {
	FetchContext(ctx context.Context, query string) (*model.ContextResult, error)
}

// Router turns one natural language math query into a structured result:
// classify, optionally fetch context, execute the chosen operation. It never
// panics past its boundary and converts handler failures into error results
// the persona model can narrate.
type Router struct {
	classifier *Classifier
	registry   *mathops.Registry
	fetcher    ContextFetcher
}

func NewRouter(classifier *Classifier, registry *mathops.Registry, fetcher ContextFetcher) *Router {
	return &Router{classifier: classifier, registry: registry, fetcher: fetcher}
}

const contextSnippetLimit = 100

// Route handles one math query end to end.
//
// Classification failures surface as error results: a query that cannot be
// routed cannot be half-answered. Context fetch failures degrade instead:
// the operation still runs, just without preference material.
func (r *Router) Route(ctx context.Context, query string) *model.OperationResult {
	decision, err := r.classifier.Classify(ctx, r.registry, query)
	if err != nil {
		logx.Warn().Err(err).Str("query", query).Msg("math routing failed")
		return errorResult(err, "", query)
	}

	contextText := ""
	if decision.NeedsContext && r.fetcher != nil {
		fetched, ferr := r.fetcher.FetchContext(ctx, query)
		switch {
		case ferr != nil:
			logx.Warn().Err(ferr).Msg("context fetch failed, routing without context")
		case fetched.Status == model.StatusSuccess && !fetched.ComputationRequired:
			contextText = fetched.RelevantText
		}
		decision.ContextUsed = contextText != ""
		decision.ContextSnippet = snippet(contextText, contextSnippetLimit)
	}

	payload, err := r.registry.Invoke(ctx, mathops.Operation(decision.Operation), query, contextText)
	if err != nil {
		logx.Warn().Err(err).Str("operation", decision.Operation).Msg("math operation failed")
		res := errorResult(err, decision.Operation, query)
		res.Routing = decision
		return res
	}

	return &model.OperationResult{
		Status:  model.StatusSuccess,
		Payload: payload,
		Routing: decision,
	}
}

func errorResult(err error, operation, query string) *model.OperationResult {
	payload := map[string]any{
		"message": errx.SafeMessage(err),
		"query":   query,
	}
	if operation != "" {
		payload["operation"] = operation
	}
	return &model.OperationResult{
		Status:  model.StatusError,
		Payload: payload,
	}
}

func snippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
