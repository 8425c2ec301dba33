package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padpal/server/internal/assistant/mathops"
	"github.com/padpal/server/internal/assistant/model"
	"github.com/padpal/server/internal/assistant/router"
	"github.com/padpal/server/internal/assistant/scratchpad"
)

type cannedChatModel struct {
	response string
	err      error
	calls    int
}

func (c *cannedChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return schema.AssistantMessage(c.response, nil), nil
}

func invokable(t *testing.T, bt tool.BaseTool) tool.InvokableTool {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	require.True(t, ok)
	return it
}

func TestGetToolInfos(t *testing.T) {
	baseTools := GetAssistantTools(Deps{})
	infos, err := GetToolInfos(context.Background(), baseTools)
	require.NoError(t, err)
	require.Len(t, infos, 4)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{ToolFetchContext, ToolAnalyzeMedia, ToolRouteMath, ToolGenerateImage}, names)
}

func TestFetchContextToolReturnsStructuredError(t *testing.T) {
	store := scratchpad.NewStore(filepath.Join(t.TempDir(), "missing.txt"))
	chatModel := &cannedChatModel{}
	provider := scratchpad.NewProvider(store, chatModel, "extract")

	it := invokable(t, createFetchContextTool(Deps{Provider: provider}))
	out, err := it.InvokableRun(context.Background(), `{"query":"where do I live?"}`)
	require.NoError(t, err)

	var res model.ContextResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "where do I live?", res.Query)
	assert.NotEmpty(t, res.Message)
	assert.Zero(t, chatModel.calls)
}

func TestRouteMathToolNeverErrors(t *testing.T) {
	registry := mathops.NewRegistry(2 * time.Second)

	t.Run("successful arithmetic", func(t *testing.T) {
		chatModel := &cannedChatModel{response: `{"operation":"calculate_complex_arithmetic","needs_context":false}`}
		rt := router.NewRouter(router.NewClassifier(chatModel, "route"), registry, nil)

		it := invokable(t, createRouteMathTool(Deps{Router: rt}))
		out, err := it.InvokableRun(context.Background(), `{"query":"what is 12345 * 6789?"}`)
		require.NoError(t, err)

		var res model.OperationResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, model.StatusSuccess, res.Status)
		assert.Contains(t, out, "83810205")
	})

	t.Run("classifier failure becomes error result", func(t *testing.T) {
		chatModel := &cannedChatModel{err: errors.New("model unavailable")}
		rt := router.NewRouter(router.NewClassifier(chatModel, "route"), registry, nil)

		it := invokable(t, createRouteMathTool(Deps{Router: rt}))
		out, err := it.InvokableRun(context.Background(), `{"query":"solve x + 1 = 2"}`)
		require.NoError(t, err)

		var res model.OperationResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, model.StatusError, res.Status)
	})
}

func TestGenerateImageToolRejectsEmptyPrompt(t *testing.T) {
	it := invokable(t, createGenerateImageTool(Deps{}))
	out, err := it.InvokableRun(context.Background(), `{"prompt":"   "}`)
	require.NoError(t, err)

	var res model.ImageResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, model.StatusError, res.Status)
	assert.Equal(t, "prompt is required", res.Message)
}
