package nodes

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padpal/server/internal/assistant/graph/conversations"
	"github.com/padpal/server/internal/assistant/model"
)

type memoryRepo struct {
	messages map[string][]*schema.Message
	addErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{messages: map[string][]*schema.Message{}}
}

func (r *memoryRepo) AddMessage(_ context.Context, conversationID string, message *schema.Message) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.messages[conversationID] = append(r.messages[conversationID], message)
	return nil
}

func (r *memoryRepo) LoadHistory(_ context.Context, conversationID string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{
		ConversationID: conversationID,
		Messages:       r.messages[conversationID],
	}, nil
}

func (r *memoryRepo) ClearHistory(_ context.Context, conversationID string) error {
	delete(r.messages, conversationID)
	return nil
}

func (r *memoryRepo) GetMessageCount(_ context.Context, conversationID string) (int, error) {
	return len(r.messages[conversationID]), nil
}

func TestNormalizeMaxToolCalls(t *testing.T) {
	assert.Equal(t, DefaultMaxToolCalls, normalizeMaxToolCalls(0))
	assert.Equal(t, DefaultMaxToolCalls, normalizeMaxToolCalls(-5))
	assert.Equal(t, 3, normalizeMaxToolCalls(3))
}

func TestCheckAndMarkToolLimit(t *testing.T) {
	state := &model.AppState{ToolCallCount: 2}
	assert.False(t, checkAndMarkToolLimit(state, 3))
	assert.False(t, state.ToolCallLimitReached)

	state.ToolCallCount = 3
	assert.True(t, checkAndMarkToolLimit(state, 3))
	assert.True(t, state.ToolCallLimitReached)

	// already marked: not marked "now" again
	assert.False(t, checkAndMarkToolLimit(state, 3))
}

func TestIncrementToolCallAndCheck(t *testing.T) {
	state := &model.AppState{}
	for i := 1; i <= 2; i++ {
		assert.False(t, incrementToolCallAndCheck(state, 2))
	}
	assert.True(t, incrementToolCallAndCheck(state, 2))
	assert.Equal(t, 3, state.ToolCallCount)
	assert.True(t, state.ToolCallLimitReached)
}

func TestAppendForcedToolExchangePairing(t *testing.T) {
	state := &model.AppState{}

	appendForcedToolExchange(state, "get_scratch_pad_context", `{"query":"q"}`, `{"status":"success"}`)
	appendForcedToolExchange(state, "analyze_media_file", `{"reference":"media/a.png"}`, `{"status":"success"}`)

	require.Len(t, state.History, 4)

	first, second := state.History[0], state.History[1]
	assert.Equal(t, schema.Assistant, first.Role)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, "call_1", first.ToolCalls[0].ID)
	assert.Equal(t, "get_scratch_pad_context", first.ToolCalls[0].Function.Name)
	assert.Equal(t, schema.Tool, second.Role)
	assert.Equal(t, "call_1", second.ToolCallID)
	assert.Equal(t, `{"status":"success"}`, second.Content)

	third := state.History[2]
	assert.Equal(t, "call_2", third.ToolCalls[0].ID)
	assert.Equal(t, "analyze_media_file", third.ToolCalls[0].Function.Name)
	assert.Equal(t, 2, state.ToolCallIDSeq)
}

func TestContextStagePreHandlerResetsTurnState(t *testing.T) {
	handler := NewContextStagePreHandler()
	state := &model.AppState{
		ConversationID:       "conv-1",
		History:              []*schema.Message{schema.UserMessage("old")},
		Context:              &model.ContextResult{Status: model.StatusSuccess},
		ToolCallCount:        7,
		ToolCallLimitReached: true,
		ToolCallIDSeq:        4,
		TotalCostUSD:         0.12,
	}

	in := model.QueryInput{ConversationID: "conv-1", Query: "what's my rent?"}
	out, err := handler(context.Background(), in, state)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	assert.Equal(t, "conv-1", state.ConversationID)
	assert.Equal(t, "what's my rent?", state.Query)
	assert.Nil(t, state.History)
	assert.Nil(t, state.Context)
	assert.Zero(t, state.ToolCallCount)
	assert.False(t, state.ToolCallLimitReached)
	assert.Zero(t, state.ToolCallIDSeq)
	assert.Zero(t, state.TotalCostUSD)
}

func TestMediaStageCondition(t *testing.T) {
	cond := NewMediaStageCondition()

	node, err := cond(context.Background(), &model.ContextResult{
		MediaNeeded:      true,
		RecommendedMedia: []string{"media/apartment.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, NodeMediaStage, node)

	// flagged but no concrete recommendation: skip the stage
	node, err = cond(context.Background(), &model.ContextResult{MediaNeeded: true})
	require.NoError(t, err)
	assert.Equal(t, NodeResponseAssembler, node)

	node, err = cond(context.Background(), &model.ContextResult{})
	require.NoError(t, err)
	assert.Equal(t, NodeResponseAssembler, node)

	node, err = cond(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NodeResponseAssembler, node)
}

func TestToolExecutorCondition(t *testing.T) {
	cond := NewToolExecutorCondition()

	node, err := cond(context.Background(), &schema.Message{
		Role:      schema.Assistant,
		ToolCalls: []schema.ToolCall{{ID: "call_1", Function: schema.FunctionCall{Name: "solve_math"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, NodeToolExecutor, node)

	node, err = cond(context.Background(), schema.AssistantMessage("all done", nil))
	require.NoError(t, err)
	assert.Equal(t, compose.END, node)
}

func TestResponseChatModelPreHandlerFreshAssemblyReplaces(t *testing.T) {
	handler := NewResponseChatModelPreHandler(10)
	state := &model.AppState{
		History: []*schema.Message{schema.UserMessage("stale in-turn pair")},
	}

	in := []*schema.Message{
		schema.SystemMessage("you are an assistant"),
		schema.UserMessage("hello"),
	}
	out, err := handler(context.Background(), in, state)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, schema.System, out[0].Role)
	assert.Equal(t, in, state.History)
}

func TestResponseChatModelPreHandlerToolResultsAppend(t *testing.T) {
	handler := NewResponseChatModelPreHandler(10)
	state := &model.AppState{
		History: []*schema.Message{
			schema.SystemMessage("sys"),
			schema.UserMessage("hello"),
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{ID: "call_9", Function: schema.FunctionCall{Name: "solve_math"}}}},
		},
	}

	toolResult := &schema.Message{Role: schema.Tool, Content: `{"status":"success"}`}
	out, err := handler(context.Background(), []*schema.Message{toolResult}, state)
	require.NoError(t, err)

	require.Len(t, out, 4)
	// missing tool_call_id backfilled from the last assistant tool call
	assert.Equal(t, "call_9", out[3].ToolCallID)
}

func TestResponseChatModelPreHandlerLimitAppendsWrapUp(t *testing.T) {
	handler := NewResponseChatModelPreHandler(2)
	state := &model.AppState{
		ToolCallCount: 2,
		History:       []*schema.Message{schema.SystemMessage("sys")},
	}

	out, err := handler(context.Background(), []*schema.Message{{Role: schema.Tool, ToolCallID: "call_1", Content: "{}"}}, state)
	require.NoError(t, err)

	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.Equal(t, schema.System, last.Role)
	assert.Contains(t, last.Content, "maximum tool call limit")
	assert.True(t, state.ToolCallLimitReached)
}

func TestResponseChatModelPostHandlerSynthesizesToolCallIDs(t *testing.T) {
	repo := newMemoryRepo()
	mm := conversations.NewMessagesManager(repo)
	handler := NewResponseChatModelPostHandler(mm, "gemini-2.5-flash")

	state := &model.AppState{ConversationID: "conv-1", ToolCallIDSeq: 2}
	out := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{Function: schema.FunctionCall{Name: "solve_math"}},
			{ID: "call_keep", Function: schema.FunctionCall{Name: "generate_image"}},
		},
	}

	res, err := handler(context.Background(), out, state)
	require.NoError(t, err)
	assert.Equal(t, "call_3", res.ToolCalls[0].ID)
	assert.Equal(t, "call_keep", res.ToolCalls[1].ID)

	// tool-call turns are not persisted as final responses
	assert.Empty(t, repo.messages["conv-1"])
	require.NotEmpty(t, state.History)
	assert.Same(t, out, state.History[len(state.History)-1])
}

func TestResponseChatModelPostHandlerSavesFinalResponse(t *testing.T) {
	repo := newMemoryRepo()
	mm := conversations.NewMessagesManager(repo)
	handler := NewResponseChatModelPostHandler(mm, "gemini-2.5-flash")

	state := &model.AppState{ConversationID: "conv-1"}
	out := schema.AssistantMessage("Your rent is $1800.", nil)

	_, err := handler(context.Background(), out, state)
	require.NoError(t, err)

	require.Len(t, repo.messages["conv-1"], 1)
	assert.Equal(t, "Your rent is $1800.", repo.messages["conv-1"][0].Content)
}

func TestResponseChatModelPostHandlerSkipsEmptyContent(t *testing.T) {
	repo := newMemoryRepo()
	mm := conversations.NewMessagesManager(repo)
	handler := NewResponseChatModelPostHandler(mm, "gemini-2.5-flash")

	state := &model.AppState{ConversationID: "conv-1"}
	_, err := handler(context.Background(), schema.AssistantMessage("   ", nil), state)
	require.NoError(t, err)
	assert.Empty(t, repo.messages["conv-1"])
}

func TestResponseChatModelPostHandlerSavesOnLimitWithContent(t *testing.T) {
	repo := newMemoryRepo()
	mm := conversations.NewMessagesManager(repo)
	handler := NewResponseChatModelPostHandler(mm, "gemini-2.5-flash")

	state := &model.AppState{ConversationID: "conv-1", ToolCallLimitReached: true}
	out := &schema.Message{
		Role:      schema.Assistant,
		Content:   "I gathered what I could; here is a partial answer.",
		ToolCalls: []schema.ToolCall{{ID: "call_1", Function: schema.FunctionCall{Name: "solve_math"}}},
	}

	_, err := handler(context.Background(), out, state)
	require.NoError(t, err)
	require.Len(t, repo.messages["conv-1"], 1)
}

func TestMessagesManagerRecentTurn(t *testing.T) {
	repo := newMemoryRepo()
	mm := conversations.NewMessagesManager(repo)
	ctx := context.Background()

	require.NoError(t, mm.RecordUserMessage(ctx, "conv-1", "first question"))
	require.NoError(t, mm.SaveResponse(ctx, "conv-1", "first answer"))
	require.NoError(t, mm.RecordUserMessage(ctx, "conv-1", "second question"))
	require.NoError(t, mm.SaveResponse(ctx, "conv-1", "second answer"))

	user, assistant, err := mm.RecentTurn(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "second question", user)
	assert.Equal(t, "second answer", assistant)
}

func TestMessagesManagerBuildResponseContext(t *testing.T) {
	repo := newMemoryRepo()
	mm := conversations.NewMessagesManager(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, mm.RecordUserMessage(ctx, "conv-1", fmt.Sprintf("q%d", i)))
	}

	messages, err := mm.BuildResponseContext(ctx, "conv-1", "system prompt")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, schema.System, messages[0].Role)
	assert.Equal(t, "system prompt", messages[0].Content)
	assert.Equal(t, "q0", messages[1].Content)
}
