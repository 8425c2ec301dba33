package scratchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/schema"

	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// TurnSummary is what the update manager sees of one finished exchange.
type TurnSummary struct {
	UserMessage string
	Response    string
	ToolNotes   []string
}

// Update is one proposed scratch pad edit from the analysis model.
type Update struct {
	Action   string `json:"action"` // update | add | remove
	Section  string `json:"section,omitempty"`
	Replaces string `json:"replaces,omitempty"`
	Content  string `json:"content"`
	Reason   string `json:"reason,omitempty"`
}

// updateAnalysis is the analysis model's JSON verdict.
type updateAnalysis struct {
	ShouldUpdate bool     `json:"should_update"`
	Updates      []Update `json:"updates"`
}

// UpdateManager keeps the scratch pad current. After every turn it asks a
// small analysis model whether the exchange revealed anything durable, then
// applies the proposed edits. Restrictions (PII categories that must never
// be stored) are injected into every analysis call.
type UpdateManager struct {
	store        *Store
	chatModel    ChatModel
	systemPrompt string
	restrictions string
	enabled      bool
}

func NewUpdateManager(store *Store, chatModel ChatModel, systemPrompt, restrictionsFile string, enabled bool) *UpdateManager {
	restrictions := ""
	if restrictionsFile != "" {
		b, err := os.ReadFile(restrictionsFile)
		if err != nil {
			logx.Warn().Err(err).Str("file", restrictionsFile).Msg("no-update restrictions file unavailable, continuing without")
		} else {
			restrictions = string(b)
		}
	}
	return &UpdateManager{
		store:        store,
		chatModel:    chatModel,
		systemPrompt: systemPrompt,
		restrictions: restrictions,
		enabled:      enabled,
	}
}

const analysisTemplate = `CONVERSATION TO ANALYZE:
%s

CURRENT SCRATCHPAD:
%s

NO-UPDATE RESTRICTIONS:
%s

Analyze this conversation and determine if any updates to the scratchpad are needed.`

// Apply analyzes one finished turn and persists any resulting edits. It only
// returns an error for observability; callers must treat failures as
// non-fatal since a missed note never justifies breaking the conversation.
func (u *UpdateManager) Apply(ctx context.Context, turn TurnSummary) error {
	if !u.enabled {
		return nil
	}

	current, err := u.store.Load()
	if err != nil {
		if !errx.IsKind(err, errx.KindContextFetch) {
			return err
		}
		current = ""
	}

	messages := []*schema.Message{
		schema.SystemMessage(u.systemPrompt),
		schema.UserMessage(fmt.Sprintf(analysisTemplate, renderTurn(turn), current, u.restrictions)),
	}
	resp, err := u.chatModel.Generate(ctx, messages)
	if err != nil {
		return errx.New(err, errx.KindInternal, "update analysis model call failed")
	}

	analysis, err := parseUpdateAnalysis(resp.Content)
	if err != nil {
		return err
	}
	if !analysis.ShouldUpdate || len(analysis.Updates) == 0 {
		logx.Debug().Msg("no scratch pad updates for this turn")
		return nil
	}

	updated := current
	for _, up := range analysis.Updates {
		updated = applyUpdate(updated, up)
	}
	if updated == current {
		return nil
	}
	if err := u.store.Write(updated); err != nil {
		return err
	}
	logx.Info().Int("updates", len(analysis.Updates)).Msg("scratch pad updated")
	return nil
}

func renderTurn(turn TurnSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\n", turn.UserMessage)
	fmt.Fprintf(&b, "Assistant: %s\n", turn.Response)
	for i, note := range turn.ToolNotes {
		fmt.Fprintf(&b, "Tool %d: %s\n", i+1, note)
	}
	return b.String()
}

func parseUpdateAnalysis(content string) (*updateAnalysis, error) {
	trimmed := strings.TrimSpace(content)
	if i := strings.Index(trimmed, "```json"); i != -1 {
		rest := trimmed[i+len("```json"):]
		if j := strings.Index(rest, "```"); j != -1 {
			trimmed = strings.TrimSpace(rest[:j])
		}
	} else if i := strings.Index(trimmed, "{"); i != -1 {
		if j := strings.LastIndex(trimmed, "}"); j > i {
			trimmed = trimmed[i : j+1]
		}
	}

	var analysis updateAnalysis
	if err := json.Unmarshal([]byte(trimmed), &analysis); err != nil {
		return nil, errx.New(err, errx.KindInternal, "update analysis returned invalid JSON")
	}
	return &analysis, nil
}

// applyUpdate performs one edit. Unknown actions and missing anchors are
// skipped silently: a bad proposal must not corrupt the pad.
func applyUpdate(content string, up Update) string {
	switch up.Action {
	case "update":
		if up.Replaces != "" && strings.Contains(content, up.Replaces) {
			return strings.Replace(content, up.Replaces, up.Content, 1)
		}
	case "add":
		if up.Section != "" {
			header := "## " + up.Section
			if start := strings.Index(content, header); start != -1 {
				next := strings.Index(content[start+len(header):], "##")
				if next == -1 {
					return content + "\n" + up.Content
				}
				insertAt := start + len(header) + next
				return content[:insertAt] + "\n" + up.Content + "\n\n" + content[insertAt:]
			}
		}
		return content + "\n" + up.Content
	case "remove":
		if up.Content != "" && strings.Contains(content, up.Content) {
			return strings.Replace(content, up.Content, "", 1)
		}
	}
	return content
}
