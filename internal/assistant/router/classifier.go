package router

import (
	"context"
	"encoding/json"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/mathops"
	"github.com/padpal/server/internal/assistant/model"
	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// ChatModel is the narrow slice of eino's model interface the router needs.
// Tests substitute a canned implementation.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Classifier asks a small routing model which operation a math query maps to
// and whether stored user context should inform the answer.
type Classifier struct {
	chatModel    ChatModel
	systemPrompt string
}

func NewClassifier(chatModel ChatModel, systemPrompt string) *Classifier {
	return &Classifier{chatModel: chatModel, systemPrompt: systemPrompt}
}

// routingPayload is the exact JSON contract the routing model must honor.
// Pointer fields distinguish "absent" from zero values.
type routingPayload struct {
	Operation    *string `json:"operation"`
	NeedsContext *bool   `json:"needs_context"`
}

// Classify returns the validated routing decision for one query. Any
// deviation from the two-field contract is a malformed-decision error; the
// caller decides whether to surface or degrade.
func (c *Classifier) Classify(ctx context.Context, registry *mathops.Registry, query string) (*model.RoutingDecision, error) {
	messages := []*schema.Message{
		schema.SystemMessage(c.systemPrompt),
		schema.UserMessage("Query: " + query),
	}
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, errx.New(err, errx.KindMalformedDecision, "routing model call failed")
	}

	raw := strings.TrimSpace(resp.Content)
	cleaned := stripMarkdownFence(raw)

	var payload routingPayload
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&payload); err != nil {
		logx.Warn().Str("routing_json", raw).Err(err).Msg("routing model returned invalid JSON")
		return nil, errx.Newf(errx.KindMalformedDecision, "invalid JSON from routing model: %s", raw)
	}
	if payload.Operation == nil || *payload.Operation == "" {
		return nil, errx.Newf(errx.KindMalformedDecision, "no operation specified in routing decision: %s", cleaned)
	}
	if payload.NeedsContext == nil {
		return nil, errx.Newf(errx.KindMalformedDecision, "needs_context missing in routing decision: %s", cleaned)
	}
	if _, err := registry.Resolve(*payload.Operation); err != nil {
		return nil, err
	}

	decision := &model.RoutingDecision{
		Operation: *payload.Operation,
		Raw:       raw,
	}

	// The model's needs_context bit drifts with temperature. The contract is
	// still enforced above (a missing or non-boolean bit is malformed), but
	// the decision itself comes from the query text: context is needed iff an
	// explicit personalization cue is present.
	decision.NeedsContext = HasPersonalizationCue(query)

	logx.Debug().Str("operation", decision.Operation).Bool("needs_context", decision.NeedsContext).Msg("routing decision")
	return decision, nil
}

// stripMarkdownFence removes a surrounding ```json ... ``` block if present.
func stripMarkdownFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// personalizationCues are phrases that reference stored preferences. Their
// presence forces a context fetch regardless of what the model decided.
var personalizationCues = []string{
	"like before",
	"like last time",
	"as usual",
	"as before",
	"my preferred",
	"my preference",
	"my notation",
	"as i like it",
	"the way i like",
}

func HasPersonalizationCue(query string) bool {
	lower := strings.ToLower(query)
	for _, cue := range personalizationCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}
