package router

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padpal/server/internal/assistant/mathops"
	errx "github.com/padpal/server/internal/core/error"
)

// cannedChatModel returns a fixed response (or error) for every Generate
// call and records what it was asked.
type cannedChatModel struct {
	content string
	err     error
	asked   []*schema.Message
}

func (m *cannedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	m.asked = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func testRegistry() *mathops.Registry {
	return mathops.NewRegistry(5 * time.Second)
}

func TestClassifier_Classify(t *testing.T) {
	chatModel := &cannedChatModel{content: `{"operation": "solve_equation", "needs_context": false}`}
	c := NewClassifier(chatModel, "routing prompt")

	decision, err := c.Classify(context.Background(), testRegistry(), "solve 2x + 3 = 7")
	require.NoError(t, err)
	assert.Equal(t, "solve_equation", decision.Operation)
	assert.False(t, decision.NeedsContext)
	assert.Equal(t, chatModel.content, decision.Raw)

	require.Len(t, chatModel.asked, 2)
	assert.Equal(t, schema.System, chatModel.asked[0].Role)
	assert.Equal(t, "Query: solve 2x + 3 = 7", chatModel.asked[1].Content)
}

func TestClassifier_Classify_StripsMarkdownFence(t *testing.T) {
	chatModel := &cannedChatModel{content: "```json\n{\"operation\": \"simplify_expression\", \"needs_context\": true}\n```"}
	c := NewClassifier(chatModel, "routing prompt")

	decision, err := c.Classify(context.Background(), testRegistry(), "simplify x^2 + 2x + 1 in my preferred form")
	require.NoError(t, err)
	assert.Equal(t, "simplify_expression", decision.Operation)
	assert.True(t, decision.NeedsContext)
}

func TestClassifier_Classify_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
		kind    errx.Kind
	}{
		{"not json", "definitely the solve operation", errx.KindMalformedDecision},
		{"missing operation", `{"needs_context": false}`, errx.KindMalformedDecision},
		{"empty operation", `{"operation": "", "needs_context": false}`, errx.KindMalformedDecision},
		{"missing needs_context", `{"operation": "solve_equation"}`, errx.KindMalformedDecision},
		{"non boolean needs_context", `{"operation": "solve_equation", "needs_context": "yes"}`, errx.KindMalformedDecision},
		{"unknown operation", `{"operation": "compute_eigenvalues", "needs_context": false}`, errx.KindUnknownTool},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClassifier(&cannedChatModel{content: tc.content}, "routing prompt")
			_, err := c.Classify(context.Background(), testRegistry(), "solve 2x + 3 = 7")
			require.Error(t, err)
			assert.Equal(t, tc.kind, errx.KindOf(err))
		})
	}
}

func TestClassifier_Classify_ModelError(t *testing.T) {
	c := NewClassifier(&cannedChatModel{err: errors.New("quota exceeded")}, "routing prompt")
	_, err := c.Classify(context.Background(), testRegistry(), "solve 2x + 3 = 7")
	require.Error(t, err)
	assert.Equal(t, errx.KindMalformedDecision, errx.KindOf(err))
}

func TestClassifier_PersonalizationCueForcesContext(t *testing.T) {
	chatModel := &cannedChatModel{content: `{"operation": "calculate_derivative", "needs_context": false}`}
	c := NewClassifier(chatModel, "routing prompt")

	decision, err := c.Classify(context.Background(), testRegistry(), "derivative of x^2 in my notation like before")
	require.NoError(t, err)
	assert.True(t, decision.NeedsContext, "personalization cues override the model bit")
}

func TestClassifier_ModelDriftCannotForceContext(t *testing.T) {
	// the model claims context is needed, but the query carries no
	// personalization cue; the deterministic rule wins in both directions
	chatModel := &cannedChatModel{content: `{"operation": "solve_equation", "needs_context": true}`}
	c := NewClassifier(chatModel, "routing prompt")

	decision, err := c.Classify(context.Background(), testRegistry(), "solve 2x + 3 = 7")
	require.NoError(t, err)
	assert.False(t, decision.NeedsContext, "no cue in the query means no context fetch")
}

func TestHasPersonalizationCue(t *testing.T) {
	assert.True(t, HasPersonalizationCue("solve it like last time"))
	assert.True(t, HasPersonalizationCue("use MY PREFERRED format"))
	assert.False(t, HasPersonalizationCue("solve 2x + 3 = 7"))
}
