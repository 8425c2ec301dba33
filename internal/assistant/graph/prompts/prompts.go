package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/graph/tools"
	"github.com/padpal/server/internal/assistant/model"
)

//go:embed template/persona_prompt.txt
var personaSystemPrompt string

//go:embed template/extractor_prompt.txt
var extractorSystemPrompt string

//go:embed template/routing_prompt.txt
var routingSystemPrompt string

//go:embed template/update_prompt.txt
var updateSystemPrompt string

// RenderPersonaSystem renders the persona system prompt and triggers prompt callbacks.
func RenderPersonaSystem(ctx context.Context, config model.PersonaPromptConfig) (string, error) {
	// Render via Eino prompt component (Go template) to both format and emit callbacks
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(personaSystemPrompt),
	)
	vars := map[string]any{
		"AssistantName": config.AssistantName,
		"ContextTool":   tools.ToolFetchContext,
		"MediaTool":     tools.ToolAnalyzeMedia,
		"MathTool":      tools.ToolRouteMath,
		"ImageTool":     tools.ToolGenerateImage,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("persona prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("persona prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// RenderRoutingSystem renders the math classifier prompt with the operation
// criteria menu substituted in.
func RenderRoutingSystem(ctx context.Context, criteria string) (string, error) {
	// Replace the known token only; the template's JSON braces must survive
	content := strings.NewReplacer(
		"{criteria}", criteria,
	).Replace(routingSystemPrompt)
	return renderStatic(ctx, content, "routing")
}

// RenderExtractorSystem renders the scratch pad extractor prompt.
func RenderExtractorSystem(ctx context.Context) (string, error) {
	return renderStatic(ctx, extractorSystemPrompt, "extractor")
}

// RenderUpdateSystem renders the scratch pad update analysis prompt.
func RenderUpdateSystem(ctx context.Context) (string, error) {
	return renderStatic(ctx, updateSystemPrompt, "update")
}

// renderStatic wraps a fixed prompt in the Eino prompt component using a
// messages placeholder, so prompt callbacks fire without FString touching the
// JSON braces inside the template.
func renderStatic(ctx context.Context, content, name string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt callbacks: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt callbacks: empty result", name)
	}
	return msgs[0].Content, nil
}
