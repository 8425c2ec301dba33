package scratchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/mathops"
	"github.com/padpal/server/internal/assistant/model"
	errx "github.com/padpal/server/internal/core/error"
	logx "github.com/padpal/server/pkg/logger"
)

// ChatModel is the narrow model surface the provider needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Provider extracts query-relevant context from the scratch pad with a small
// extractor model and assesses whether stored media would help answer.
//
// Computational queries are refused up front with a sentinel result so the
// math router stays the only place arithmetic gets answered.
type Provider struct {
	store        *Store
	chatModel    ChatModel
	systemPrompt string
}

func NewProvider(store *Store, chatModel ChatModel, systemPrompt string) *Provider {
	return &Provider{store: store, chatModel: chatModel, systemPrompt: systemPrompt}
}

// extractorPayload mirrors the JSON the extractor model is instructed to
// return. Unknown fields are ignored; missing fields fall back to zero values.
type extractorPayload struct {
	RelevantContext  string   `json:"relevant_context"`
	MediaFilesNeeded bool     `json:"media_files_needed"`
	RecommendedMedia []string `json:"recommended_media"`
	Reasoning        string   `json:"reasoning"`
}

const userMessageTemplate = `USER QUERY: %s

SCRATCH PAD CONTENT:
%s

Follow the system rules to decide whether media files are needed and respond in JSON:
{
    "relevant_context": "extracted relevant information",
    "media_files_needed": true/false,
    "recommended_media": ["list", "of", "file", "paths"],
    "reasoning": "why these media files would be helpful (or why not needed)"
}`

// FetchContext resolves stored context for one query.
func (p *Provider) FetchContext(ctx context.Context, query string) (*model.ContextResult, error) {
	if mathops.MatchesTrigger(query) {
		logx.Debug().Str("query", query).Msg("computational query, declining scratch pad answer")
		return &model.ContextResult{
			Status:              model.StatusSuccess,
			Query:               query,
			RelevantText:        model.ComputationRequiredMarker,
			ComputationRequired: true,
			Reasoning:           "computational queries are resolved by the math router, not stored notes",
		}, nil
	}

	content, err := p.store.Load()
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{
		schema.SystemMessage(p.systemPrompt),
		schema.UserMessage(fmt.Sprintf(userMessageTemplate, query, content)),
	}
	resp, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, errx.New(err, errx.KindContextFetch, "context extraction model call failed")
	}

	payload := parseExtractorResponse(resp.Content)
	return &model.ContextResult{
		Status:           model.StatusSuccess,
		Query:            query,
		RelevantText:     payload.RelevantContext,
		MediaNeeded:      payload.MediaFilesNeeded,
		RecommendedMedia: payload.RecommendedMedia,
		Reasoning:        payload.Reasoning,
	}, nil
}

// parseExtractorResponse pulls the JSON object out of the model reply. When
// no parseable JSON is present the raw text becomes the context verbatim;
// a sloppy model reply should degrade, not fail the turn.
func parseExtractorResponse(content string) extractorPayload {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		var payload extractorPayload
		if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err == nil {
			return payload
		}
	}
	logx.Warn().Msg("extractor reply had no parseable JSON, using raw text as context")
	return extractorPayload{
		RelevantContext: content,
		Reasoning:       "JSON parsing failed, using raw response",
	}
}
