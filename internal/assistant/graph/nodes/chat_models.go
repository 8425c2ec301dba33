package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/padpal/server/internal/assistant/model"
	logx "github.com/padpal/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey          string
	BaseURL         string
	PersonaConfig   *model.PersonaModelConfig
	ExtractorConfig *model.ExtractorModelConfig
	RouterConfig    *model.RouterModelConfig
}

// ChatModels holds the three chat models the assistant runs on, plus the
// shared genai client for non-chat calls (image generation).
type ChatModels struct {
	Persona   *gemini.ChatModel
	Extractor *gemini.ChatModel
	Router    *gemini.ChatModel
	Client    *genai.Client

	PersonaModelName   string
	ExtractorModelName string
	RouterModelName    string
}

// NewChatModels creates all chat models on one shared Gemini client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	persona, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.PersonaConfig.Model,
		Temperature: &config.PersonaConfig.Temperature,
		MaxTokens:   &config.PersonaConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating persona model")
		return nil, fmt.Errorf("error creating persona model: %w", err)
	}

	extractor, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ExtractorConfig.Model,
		Temperature: &config.ExtractorConfig.Temperature,
		MaxTokens:   &config.ExtractorConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating extractor model")
		return nil, fmt.Errorf("error creating extractor model: %w", err)
	}

	routerModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RouterConfig.Model,
		Temperature: &config.RouterConfig.Temperature,
		MaxTokens:   &config.RouterConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating router model")
		return nil, fmt.Errorf("error creating router model: %w", err)
	}

	return &ChatModels{
		Persona:            persona,
		Extractor:          extractor,
		Router:             routerModel,
		Client:             client,
		PersonaModelName:   config.PersonaConfig.Model,
		ExtractorModelName: config.ExtractorConfig.Model,
		RouterModelName:    config.RouterConfig.Model,
	}, nil
}

// BindToolsToPersonaModel binds the assistant tool set to the persona model.
func (cm *ChatModels) BindToolsToPersonaModel(ctx context.Context, tools []*schema.ToolInfo) error {
	if err := cm.Persona.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	logx.Debug().Msg("Successfully bound tools to persona model")
	return nil
}

// NewPersonaChatModelNode creates a wrapper for the persona chat model to be used as a node
func NewPersonaChatModelNode(chatModel *gemini.ChatModel) *gemini.ChatModel {
	return chatModel
}
