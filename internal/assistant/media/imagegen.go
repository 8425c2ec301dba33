package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/padpal/server/internal/assistant/model"
	logx "github.com/padpal/server/pkg/logger"
)

// Generator creates images from prompts and stores them in the media
// directory so later turns can reference and analyze them.
type Generator struct {
	client   *genai.Client
	model    string
	enhancer ChatModel
	dir      string
}

func NewGenerator(client *genai.Client, modelName string, enhancer ChatModel, dir string) *Generator {
	return &Generator{client: client, model: modelName, enhancer: enhancer, dir: dir}
}

const enhancePromptTemplate = `Rewrite the following image request as a single vivid, specific image
generation prompt. Keep the subject and intent, add composition, lighting and
style detail. Reply with the prompt only.

Request: %s`

// enhancePrompt asks a small model to enrich the user's request. Any failure
// falls back to the original prompt; enhancement is best effort.
func (g *Generator) enhancePrompt(ctx context.Context, prompt string) (string, bool) {
	if g.enhancer == nil {
		return prompt, false
	}
	resp, err := g.enhancer.Generate(ctx, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(enhancePromptTemplate, prompt)),
	})
	if err != nil || resp.Content == "" {
		logx.Warn().Err(err).Msg("prompt enhancement failed, using original prompt")
		return prompt, false
	}
	return resp.Content, true
}

// Generate renders one image and writes it into the media directory. Errors
// come back as error-status results for the persona model to narrate.
func (g *Generator) Generate(ctx context.Context, prompt string, enhance bool) *model.ImageResult {
	finalPrompt := prompt
	enhanced := false
	if enhance {
		finalPrompt, enhanced = g.enhancePrompt(ctx, prompt)
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.model, finalPrompt, nil)
	if err != nil {
		logx.Error().Err(err).Str("model", g.model).Msg("image generation failed")
		return imageError(prompt, fmt.Errorf("image generation failed: %w", err))
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return imageError(prompt, fmt.Errorf("image model returned no images"))
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return imageError(prompt, fmt.Errorf("failed to create media directory: %w", err))
	}
	path := filepath.Join(g.dir, fmt.Sprintf("generated_%s.png", uuid.NewString()))
	if err := os.WriteFile(path, resp.GeneratedImages[0].Image.ImageBytes, 0o644); err != nil {
		return imageError(prompt, fmt.Errorf("failed to save generated image: %w", err))
	}

	logx.Info().Str("file", path).Bool("enhanced", enhanced).Msg("image generated")
	return &model.ImageResult{
		Status:         model.StatusSuccess,
		FilePath:       path,
		Prompt:         finalPrompt,
		OriginalPrompt: prompt,
		Enhanced:       enhanced,
	}
}

func imageError(prompt string, err error) *model.ImageResult {
	return &model.ImageResult{
		Status:  model.StatusError,
		Prompt:  prompt,
		Message: err.Error(),
	}
}
