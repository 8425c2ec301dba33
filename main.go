package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/padpal/server/internal/assistant/graph"
	"github.com/padpal/server/internal/assistant/model"
	"github.com/padpal/server/internal/assistant/repo"
	"github.com/padpal/server/internal/core"
	logx "github.com/padpal/server/pkg/logger"
	pkgredis "github.com/padpal/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Assistant configs
	Persona      model.PersonaModelConfig
	Extractor    model.ExtractorModelConfig
	Router       model.RouterModelConfig
	Prompt       model.PersonaPromptConfig
	Conversation model.ConversationConfig
	Scratchpad   model.ScratchpadConfig
	Media        model.MediaConfig
	Ops          model.OperationConfig
}

func main() {
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.AppEnv)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	logx.Info().Msg("Connected to Redis")

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	cfg := graph.Config{
		APIKey:           envCfg.APIKey,
		BaseURL:          envCfg.BaseURL,
		PersonaModel:     envCfg.Persona,
		ExtractorModel:   envCfg.Extractor,
		RouterModel:      envCfg.Router,
		PersonaPrompt:    envCfg.Prompt,
		Conversation:     envCfg.Conversation,
		Scratchpad:       envCfg.Scratchpad,
		Media:            envCfg.Media,
		Ops:              envCfg.Ops,
		ConversationRepo: repo.NewRedisConversationRepository(rdb, ttl),
	}

	runner, err := graph.BuildAssistantGraph(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	conversationID := uuid.NewString()
	fmt.Printf("%s ready. Type your message, 'trace' to toggle verbose logging, or 'exit' to quit.\n", envCfg.Prompt.AssistantName)

	trace := true

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}
		if query == "trace" {
			trace = !trace
			if trace {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				fmt.Println("Trace on.")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
				fmt.Println("Trace off.")
			}
			continue
		}

		response, err := runner.Invoke(ctx, model.QueryInput{
			ConversationID: conversationID,
			Query:          query,
		})
		if err != nil {
			logx.Error().Err(err).Msg("turn failed")
			fmt.Println("Sorry, something went wrong with that one. Try again?")
			continue
		}

		fmt.Printf("\n%s\n\n", response)
	}

	fmt.Println("Bye.")
}
