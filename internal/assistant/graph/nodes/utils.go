package nodes

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/model"
)

const DefaultMaxToolCalls = 10

// ===== Small helpers to keep handlers simple/readable =====

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// checkAndMarkToolLimit evaluates whether another tool call would exceed the
// limit and, if so, marks the state accordingly. Returns true when marked now.
func checkAndMarkToolLimit(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	if !state.ToolCallLimitReached && state.ToolCallCount >= max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// incrementToolCallAndCheck increments the count and marks the state if it
// exceeds the limit after incrementing. Returns true when exceeded.
func incrementToolCallAndCheck(state *model.AppState, max int) bool {
	max = normalizeMaxToolCalls(max)
	state.ToolCallCount++
	if state.ToolCallCount > max {
		state.ToolCallLimitReached = true
		return true
	}
	return false
}

// appendForcedToolExchange records a tool invocation the dispatcher performed
// itself (the mandatory context stage and automatic media analysis) as a
// matched assistant/tool message pair in the turn history. The pairing is what
// lets the persona model see these results exactly as if it had called the
// tool, and keeps providers that validate tool_call_id happy.
func appendForcedToolExchange(state *model.AppState, toolName, arguments, resultJSON string) {
	state.ToolCallIDSeq++
	id := fmt.Sprintf("call_%d", state.ToolCallIDSeq)

	state.History = append(state.History,
		&schema.Message{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{
				{
					ID: id,
					Function: schema.FunctionCall{
						Name:      toolName,
						Arguments: arguments,
					},
				},
			},
		},
		&schema.Message{
			Role:       schema.Tool,
			ToolCallID: id,
			Content:    resultJSON,
		},
	)
}
