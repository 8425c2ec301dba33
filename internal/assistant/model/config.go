package model

// ================ Config ================
type ConversationConfig struct {
	TTL   string `envconfig:"CONVERSATION_TTL" default:"15m"`
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"10"`
	}
	Media struct {
		MaxAutoAnalyze int `envconfig:"CONVERSATION_MEDIA_MAX_AUTO_ANALYZE" default:"3"`
	}
}

// PersonaModelConfig configures the primary response model that drives each
// turn and owns the tool-calling loop.
type PersonaModelConfig struct {
	Model       string  `envconfig:"PERSONA_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"PERSONA_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"PERSONA_TEMPERATURE" default:"0.7"`
}

// ExtractorModelConfig configures the low-cost model that extracts relevant
// context from the scratch pad document.
type ExtractorModelConfig struct {
	Model       string  `envconfig:"EXTRACTOR_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"EXTRACTOR_MAX_TOKENS" default:"800"`
	Temperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" default:"0.1"`
}

// RouterModelConfig configures the classifier model behind math routing. The
// tiny token budget is deliberate: the decision is a two-field JSON object.
type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"100"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0.1"`
}

type PersonaPromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"Noa"`
}

type ScratchpadConfig struct {
	File             string `envconfig:"SCRATCHPAD_FILE" default:"scratchpad.txt"`
	RestrictionsFile string `envconfig:"NO_UPDATE_FILE" default:"config/no_update.txt"`
	UpdatesEnabled   bool   `envconfig:"SCRATCHPAD_UPDATES" default:"true"`
}

type MediaConfig struct {
	Dir        string `envconfig:"MEDIA_DIR" default:"media"`
	ImageModel string `envconfig:"IMAGE_MODEL" default:"imagen-3.0-generate-002"`
}

type OperationConfig struct {
	HandlerTimeout string `envconfig:"OPERATION_TIMEOUT" default:"5s"`
}
