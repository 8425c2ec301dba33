package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/media"
	"github.com/padpal/server/internal/assistant/model"
	"github.com/padpal/server/internal/assistant/router"
	"github.com/padpal/server/internal/assistant/scratchpad"
	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// Tool names as the persona model sees them.
const (
	ToolFetchContext  = "get_scratch_pad_context"
	ToolAnalyzeMedia  = "analyze_media_file"
	ToolRouteMath     = "solve_math"
	ToolGenerateImage = "generate_image"
)

// Deps carries the backing services the assistant tools close over.
type Deps struct {
	Provider  *scratchpad.Provider
	Analyzer  *media.Analyzer
	Generator *media.Generator
	Router    *router.Router
}

// ===================================
// Scratch pad context tool
// ===================================

type FetchContextInput struct {
	Query string `json:"query"`
}

func createFetchContextTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolFetchContext,
			Desc: "Retrieve the user's stored notes relevant to a query, plus recommendations for stored media files that could help answer it. Already called once per turn; call again only when the topic changes.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The user's question or topic to look up in the stored notes.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *FetchContextInput) (*model.ContextResult, error) {
			res, err := deps.Provider.FetchContext(ctx, in.Query)
			if err != nil {
				// structured error so the persona model can explain it
				logx.Warn().Err(err).Msg("context fetch tool failed")
				return &model.ContextResult{
					Status:  model.StatusError,
					Query:   in.Query,
					Message: errx.SafeMessage(err),
				}, nil
			}
			return res, nil
		},
	)
}

// ===================================
// Media analysis tool
// ===================================

type AnalyzeMediaInput struct {
	Reference string `json:"reference"`
	FocusHint string `json:"focus_hint,omitempty"`
}

func createAnalyzeMediaTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolAnalyzeMedia,
			Desc: "Look at one stored media file (image or PDF) and describe its content. Use the file paths recommended by " + ToolFetchContext + ".",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reference": {
					Type:     "string",
					Desc:     "File path of the media file, exactly as recommended (e.g. media/apartment.jpg).",
					Required: true,
				},
				"focus_hint": {
					Type: "string",
					Desc: "Optional aspect to focus the description on.",
				},
			}),
		},
		func(ctx context.Context, in *AnalyzeMediaInput) (*model.AnalysisResult, error) {
			return deps.Analyzer.AnalyzeFile(ctx, in.Reference, in.FocusHint), nil
		},
	)
}

// ===================================
// Math routing tool
// ===================================

type RouteMathInput struct {
	Query string `json:"query"`
}

func createRouteMathTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRouteMath,
			Desc: "Answer ANY computational question deterministically: solve equations, simplify, differentiate, integrate, factor, and exact arithmetic with large numbers. Pass the user's question through unchanged.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The mathematical question, verbatim from the user.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *RouteMathInput) (*model.OperationResult, error) {
			// Route never raises: failures are error-status results
			return deps.Router.Route(ctx, in.Query), nil
		},
	)
}

// ===================================
// Image generation tool
// ===================================

type GenerateImageInput struct {
	Prompt  string `json:"prompt"`
	Enhance bool   `json:"enhance,omitempty"`
}

func createGenerateImageTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolGenerateImage,
			Desc: "Generate a new image from a description and save it to the user's media collection. Set enhance to true unless the user gave a fully detailed prompt.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"prompt": {
					Type:     "string",
					Desc:     "Description of the image to generate.",
					Required: true,
				},
				"enhance": {
					Type: "boolean",
					Desc: "Enrich the prompt with a language model before generating (default false).",
				},
			}),
		},
		func(ctx context.Context, in *GenerateImageInput) (*model.ImageResult, error) {
			prompt := strings.TrimSpace(in.Prompt)
			if prompt == "" {
				return &model.ImageResult{
					Status:  model.StatusError,
					Message: "prompt is required",
				}, nil
			}
			return deps.Generator.Generate(ctx, prompt, in.Enhance), nil
		},
	)
}

// GetAssistantTools returns the assistant tool set in binding order.
func GetAssistantTools(deps Deps) []tool.BaseTool {
	return []tool.BaseTool{
		createFetchContextTool(deps),
		createAnalyzeMediaTool(deps),
		createRouteMathTool(deps),
		createGenerateImageTool(deps),
	}
}

// GetToolInfos resolves ToolInfo for every tool, for model binding.
func GetToolInfos(ctx context.Context, baseTools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(baseTools))
	for _, t := range baseTools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
