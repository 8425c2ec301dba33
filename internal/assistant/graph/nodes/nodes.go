package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/graph/conversations"
	"github.com/padpal/server/internal/assistant/graph/prompts"
	"github.com/padpal/server/internal/assistant/graph/tools"
	"github.com/padpal/server/internal/assistant/media"
	"github.com/padpal/server/internal/assistant/model"
	"github.com/padpal/server/internal/assistant/scratchpad"
	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// Graph node names.
const (
	NodeContextStage      = "ContextStage"
	NodeMediaStage        = "MediaStage"
	NodeResponseAssembler = "ResponseAssembler"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
)

// NewContextStagePreHandler creates the pre-handler for the ContextStage node
func NewContextStagePreHandler() func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if s.ConversationID == "" {
			s.ConversationID = in.ConversationID
		}
		s.Query = in.Query
		// Reset per-turn bookkeeping
		s.History = nil
		s.Context = nil
		s.ToolCallCount = 0
		s.ToolCallLimitReached = false
		s.ToolCallIDSeq = 0
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewContextStageNode creates the ContextStage node. It runs before any
// persona model call on every turn: the user message is persisted, the scratch
// pad is consulted, and the exchange is recorded in the turn history as a
// matched tool-call pair so the persona model always starts from stored
// context it appears to have requested itself.
func NewContextStageNode(
	mm *conversations.MessagesManager,
	provider *scratchpad.Provider,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) (*model.ContextResult, error) {
		if err := mm.RecordUserMessage(ctx, input.ConversationID, input.Query); err != nil {
			return nil, fmt.Errorf("record user message: %w", err)
		}

		result, err := provider.FetchContext(ctx, input.Query)
		if err != nil {
			// degrade: the turn proceeds with an error-status context the
			// persona model can acknowledge
			logx.Warn().Err(err).Str("conversation_id", input.ConversationID).Msg("mandatory context fetch failed")
			result = &model.ContextResult{
				Status:  model.StatusError,
				Query:   input.Query,
				Message: errx.SafeMessage(err),
			}
		}

		args, _ := json.Marshal(tools.FetchContextInput{Query: input.Query})
		resultJSON, merr := json.Marshal(result)
		if merr != nil {
			return nil, fmt.Errorf("marshal context result: %w", merr)
		}

		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			state.Context = result
			appendForcedToolExchange(state, tools.ToolFetchContext, string(args), string(resultJSON))
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		return result, nil
	})
}

// NewMediaStageCondition routes to automatic media analysis only when the
// context stage recommended files.
func NewMediaStageCondition() func(context.Context, *model.ContextResult) (string, error) {
	return func(ctx context.Context, input *model.ContextResult) (string, error) {
		if input != nil && input.MediaNeeded && len(input.RecommendedMedia) > 0 {
			logx.Debug().Int("media_count", len(input.RecommendedMedia)).Msg("Routing to MediaStage")
			return NodeMediaStage, nil
		}
		return NodeResponseAssembler, nil
	}
}

// NewMediaStageNode creates the MediaStage node. Recommended media files are
// analyzed up front, capped at maxAutoAnalyze, and each analysis joins the
// turn history as a forced tool-call pair. Failed analyses are recorded too;
// the persona model should know a recommended file could not be read.
func NewMediaStageNode(analyzer *media.Analyzer, maxAutoAnalyze int) *compose.Lambda {
	if maxAutoAnalyze <= 0 {
		maxAutoAnalyze = 3
	}
	return compose.InvokableLambda(func(ctx context.Context, input *model.ContextResult) (*model.ContextResult, error) {
		refs := input.RecommendedMedia
		if len(refs) > maxAutoAnalyze {
			logx.Debug().Int("recommended", len(refs)).Int("cap", maxAutoAnalyze).Msg("Capping automatic media analysis")
			refs = refs[:maxAutoAnalyze]
		}

		for _, ref := range refs {
			analysis := analyzer.AnalyzeFile(ctx, ref, input.Query)

			args, _ := json.Marshal(tools.AnalyzeMediaInput{Reference: ref})
			resultJSON, err := json.Marshal(analysis)
			if err != nil {
				return nil, fmt.Errorf("marshal media analysis: %w", err)
			}
			if err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
				appendForcedToolExchange(state, tools.ToolAnalyzeMedia, string(args), string(resultJSON))
				return nil
			}); err != nil {
				return nil, fmt.Errorf("failed to access state: %w", err)
			}

			if analysis.Status != model.StatusSuccess {
				logx.Warn().Str("reference", ref).Str("message", analysis.Message).Msg("Automatic media analysis failed")
			}
		}

		return input, nil
	})
}

// NewResponseAssemblerNode creates the ResponseAssembler node: persona system
// prompt, persisted conversation history, then the forced tool exchanges from
// the current turn, in that order.
func NewResponseAssemblerNode(
	mm *conversations.MessagesManager,
	personaPromptConfig *model.PersonaPromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *model.ContextResult) ([]*schema.Message, error) {
		var conversationID string
		var turnMessages []*schema.Message
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			conversationID = state.ConversationID
			turnMessages = append([]*schema.Message(nil), state.History...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		systemPrompt, err := prompts.RenderPersonaSystem(ctx, *personaPromptConfig)
		if err != nil {
			return nil, fmt.Errorf("generate persona prompt: %w", err)
		}

		messages, err := mm.BuildResponseContext(ctx, conversationID, systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("build response context: %w", err)
		}

		messages = append(messages, turnMessages...)
		return messages, nil
	})
}

// NewResponseChatModelPreHandler creates the pre-handler for ResponseChatModel node.
//
// Input arrives on two paths: a full assembly from ResponseAssembler (starts
// with the system prompt) which replaces the turn history, and tool results
// from ToolExecutor which append to it.
func NewResponseChatModelPreHandler(maxToolCalls int) func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		if len(in) > 0 && in[0] != nil && in[0].Role == schema.System {
			state.History = append([]*schema.Message(nil), in...)
		} else {
			// Heuristic fix for Gemini OpenAI-compat: ensure tool results carry tool_call_id
			if len(in) > 0 {
				last := in[len(in)-1]
				if last != nil && last.Role == schema.Tool && strings.TrimSpace(last.ToolCallID) == "" {
					for i := len(state.History) - 1; i >= 0; i-- {
						msg := state.History[i]
						if msg == nil || msg.Role != schema.Assistant || len(msg.ToolCalls) == 0 {
							continue
						}
						if id := msg.ToolCalls[0].ID; strings.TrimSpace(id) != "" {
							last.ToolCallID = id
						}
						break
					}
				}
			}
			state.History = append(state.History, in...)
		}

		if checkAndMarkToolLimit(state, maxToolCalls) {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			wrapUp := &schema.Message{
				Role: schema.System,
				Content: fmt.Sprintf(
					"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
						"Please synthesize a helpful response using the information you've already gathered. "+
						"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
					maxToolCalls,
				),
			}
			state.History = append(state.History, wrapUp)
		}

		logx.Debug().Msg("AI thinking...")

		return state.History, nil
	}
}

// NewResponseChatModelPostHandler creates the post-handler for ResponseChatModel node
func NewResponseChatModelPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		// Compute usage cost if available
		if model.CostEnabled() && out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra["usage_cost"] = map[string]any{
				"currency":          "USD",
				"model":             modelName,
				"prompt_tokens":     out.ResponseMeta.Usage.PromptTokens,
				"completion_tokens": out.ResponseMeta.Usage.CompletionTokens,
				"total_tokens":      out.ResponseMeta.Usage.TotalTokens,
				"input_cost":        inC,
				"output_cost":       outC,
				"total_cost":        totalC,
			}
			logx.Debug().
				Str("conversation_id", state.ConversationID).
				Str("node", NodeResponseChatModel).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Int("total_tokens", out.ResponseMeta.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")

			state.TotalCostUSD += totalC
			out.Extra["usage_cost_total_usd"] = state.TotalCostUSD
		}

		// Normalize tool calls: some providers (Gemini OpenAI-compat) may omit tool_call IDs.
		if out != nil && len(out.ToolCalls) > 0 {
			for i := range out.ToolCalls {
				if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					out.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
		}

		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		} else {
			logx.Debug().Msg("AI response ready")
		}

		// Save only when it's a final assistant message (no further tool calls),
		// or when we've reached the tool-call limit but still have a content response.
		if out.Role == schema.Assistant && (len(out.ToolCalls) == 0 || state.ToolCallLimitReached) && strings.TrimSpace(out.Content) != "" {
			if err := mm.SaveResponse(ctx, state.ConversationID, out.Content); err != nil {
				logx.Error().
					Str("conversation_id", state.ConversationID).
					Err(err).
					Msg("Error saving assistant response in postHandlerResponse")
			} else {
				logx.Debug().
					Str("conversation_id", state.ConversationID).
					Msg("Successfully saved assistant response to Redis")
			}
		}

		return out, nil
	}
}

// NewToolExecutorCondition creates the condition function for tool execution routing
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		var limitReached bool
		compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
			limitReached = state.ToolCallLimitReached
			return nil
		})

		if limitReached {
			logx.Debug().Msg("Tool limit reached previously - routing to end")
			return compose.END, nil
		}

		if len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}

		logx.Debug().Msg("No tool calls - continuing to end")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler creates the pre-handler for ToolExecutor node
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		exceeded := incrementToolCallAndCheck(state, maxToolCalls)

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("conversation_id", state.ConversationID).
			Msg("Tool execution attempt")

		if exceeded {
			maxToolCalls = normalizeMaxToolCalls(maxToolCalls)
			logx.Warn().
				Int("tool_call_count", state.ToolCallCount).
				Int("max_tool_calls", maxToolCalls).
				Str("conversation_id", state.ConversationID).
				Msg("Tool call limit exceeded - flagging and continuing")
		}

		return in, nil
	}
}
