package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/graph/conversations"
	"github.com/padpal/server/internal/assistant/graph/nodes"
	"github.com/padpal/server/internal/assistant/graph/observers"
	"github.com/padpal/server/internal/assistant/graph/prompts"
	"github.com/padpal/server/internal/assistant/graph/tools"
	"github.com/padpal/server/internal/assistant/mathops"
	"github.com/padpal/server/internal/assistant/media"
	"github.com/padpal/server/internal/assistant/model"
	"github.com/padpal/server/internal/assistant/router"
	"github.com/padpal/server/internal/assistant/scratchpad"
	logx "github.com/padpal/server/pkg/logger"
)

// Runner is a thin wrapper to execute the compiled graph with the public QueryInput.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (string, error)
}

// Config holds everything needed to compose the full assistant graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels,
// the scratch pad services, the math router, and the MessagesManager.
type Config struct {
	APIKey  string
	BaseURL string

	PersonaModel   model.PersonaModelConfig
	ExtractorModel model.ExtractorModelConfig
	RouterModel    model.RouterModelConfig

	PersonaPrompt model.PersonaPromptConfig
	Conversation  model.ConversationConfig
	Scratchpad    model.ScratchpadConfig
	Media         model.MediaConfig
	Ops           model.OperationConfig

	ConversationRepo model.ConversationRepository
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels          *nodes.ChatModels
	MessagesManager     *conversations.MessagesManager
	PersonaPromptConfig *model.PersonaPromptConfig
	ToolDeps            tools.Deps
	ToolMaxCalls        int
	MediaMaxAutoAnalyze int
}

// GraphBuilder handles the construction of the assistant conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	mm       *conversations.MessagesManager
	updater  *scratchpad.UpdateManager
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (string, error) {
	out, err := r.runnable.Invoke(ctx, model.QueryInput{
		ConversationID: in.ConversationID,
		Query:          in.Query,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}

	if len(out.Extra) > 0 {
		if b, merr := json.Marshal(out.Extra); merr == nil {
			logx.Debug().RawJSON("extra", b).Msg("turn extras")
		}
	}

	// Post-turn scratch pad maintenance is best-effort: a failed update never
	// affects the response the user already got.
	r.applyScratchpadUpdates(ctx, in.ConversationID)

	return out.Content, nil
}

func (r *graphRunner) applyScratchpadUpdates(ctx context.Context, conversationID string) {
	if r.updater == nil {
		return
	}
	user, assistant, err := r.mm.RecentTurn(ctx, conversationID)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("skipping scratch pad update: no recent turn")
		return
	}
	if user == "" || assistant == "" {
		return
	}
	if err := r.updater.Apply(ctx, scratchpad.TurnSummary{
		UserMessage: user,
		Response:    assistant,
	}); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("scratch pad update failed")
	}
}

// BuildAssistantGraph composes chat models, the scratch pad services, the math
// router, and the tool set, builds the graph, and returns a Runner.
func BuildAssistantGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		PersonaConfig:   &cfg.PersonaModel,
		ExtractorConfig: &cfg.ExtractorModel,
		RouterConfig:    &cfg.RouterModel,
	})
	if err != nil {
		return nil, err
	}

	handlerTimeout, err := time.ParseDuration(cfg.Ops.HandlerTimeout)
	if err != nil {
		logx.Warn().Str("value", cfg.Ops.HandlerTimeout).Msg("invalid operation timeout, using 5s")
		handlerTimeout = 5 * time.Second
	}
	registry := mathops.NewRegistry(handlerTimeout)

	store := scratchpad.NewStore(cfg.Scratchpad.File)

	extractorPrompt, err := prompts.RenderExtractorSystem(ctx)
	if err != nil {
		return nil, fmt.Errorf("render extractor prompt: %w", err)
	}
	provider := scratchpad.NewProvider(store, cms.Extractor, extractorPrompt)

	updatePrompt, err := prompts.RenderUpdateSystem(ctx)
	if err != nil {
		return nil, fmt.Errorf("render update prompt: %w", err)
	}
	updater := scratchpad.NewUpdateManager(store, cms.Extractor, updatePrompt,
		cfg.Scratchpad.RestrictionsFile, cfg.Scratchpad.UpdatesEnabled)

	routingPrompt, err := prompts.RenderRoutingSystem(ctx, registry.CriteriaPrompt())
	if err != nil {
		return nil, fmt.Errorf("render routing prompt: %w", err)
	}
	classifier := router.NewClassifier(cms.Router, routingPrompt)
	mathRouter := router.NewRouter(classifier, registry, provider)

	// The extractor model doubles as the vision and prompt-enhancement model:
	// same family, no tools bound, cheap.
	analyzer := media.NewAnalyzer(cms.Extractor, cfg.Media.Dir)
	generator := media.NewGenerator(cms.Client, cfg.Media.ImageModel, cms.Extractor, cfg.Media.Dir)

	mm := conversations.NewMessagesManager(cfg.ConversationRepo)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:          cms,
		MessagesManager:     mm,
		PersonaPromptConfig: &cfg.PersonaPrompt,
		ToolDeps: tools.Deps{
			Provider:  provider,
			Analyzer:  analyzer,
			Generator: generator,
			Router:    mathRouter,
		},
		ToolMaxCalls:        cfg.Conversation.Tools.MaxCalls,
		MediaMaxAutoAnalyze: cfg.Conversation.Media.MaxAutoAnalyze,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Assistant graph built successfully")
	return &graphRunner{runnable: runnable, mm: mm, updater: updater}, nil
}

// BuildGraph constructs and returns the compiled assistant graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Basic config validation
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Persona == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if config.PersonaPromptConfig == nil {
		return nil, fmt.Errorf("persona prompt config is nil")
	}
	if config.ToolDeps.Provider == nil {
		return nil, fmt.Errorf("scratch pad provider is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools configures assistant tools and binds them to the persona model
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	assistantTools := tools.GetAssistantTools(b.config.ToolDeps)
	toolInfos, err := tools.GetToolInfos(ctx, assistantTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToPersonaModel(ctx, toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to persona model")
		return fmt.Errorf("failed to bind tools to persona model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               assistantTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls (e.g., empty name)
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			// Best-effort sanitize; never fail hard here
			var m map[string]any
			if err := json.Unmarshal([]byte(arguments), &m); err != nil {
				// keep original if not JSON
				return arguments, nil
			}

			switch name {
			case tools.ToolFetchContext, tools.ToolRouteMath:
				coerceString(m, "query")
			case tools.ToolAnalyzeMedia:
				coerceString(m, "reference")
				coerceString(m, "focus_hint")
			case tools.ToolGenerateImage:
				coerceString(m, "prompt")
			}

			out, err := json.Marshal(m)
			if err != nil {
				// fallback to original
				return arguments, nil
			}
			return string(out), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	)

	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeContextStage,
		nodes.NewContextStageNode(b.config.MessagesManager, b.config.ToolDeps.Provider),
		compose.WithStatePreHandler(nodes.NewContextStagePreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeMediaStage,
		nodes.NewMediaStageNode(b.config.ToolDeps.Analyzer, b.config.MediaMaxAutoAnalyze),
	)

	b.graph.AddLambdaNode(nodes.NodeResponseAssembler,
		nodes.NewResponseAssemblerNode(b.config.MessagesManager, b.config.PersonaPromptConfig),
	)

	b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
		nodes.NewPersonaChatModelNode(b.config.ChatModels.Persona),
		compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(b.config.ToolMaxCalls)),
		compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(b.config.MessagesManager, b.config.ChatModels.PersonaModelName)),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeContextStage},
		{nodes.NodeMediaStage, nodes.NodeResponseAssembler},
		{nodes.NodeResponseAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeToolExecutor, nodes.NodeResponseChatModel},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	mediaBranch := compose.NewGraphBranch(
		nodes.NewMediaStageCondition(),
		map[string]bool{
			nodes.NodeMediaStage:        true,
			nodes.NodeResponseAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeContextStage, mediaBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding media stage branch")
		return fmt.Errorf("error adding media stage branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + b.config.ToolMaxCalls*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// coerceString trims the named argument, stringifying non-string values.
func coerceString(m map[string]any, key string) {
	v, ok := m[key]
	if !ok {
		return
	}
	switch vv := v.(type) {
	case string:
		m[key] = strings.TrimSpace(vv)
	default:
		m[key] = strings.TrimSpace(fmt.Sprint(v))
	}
}
