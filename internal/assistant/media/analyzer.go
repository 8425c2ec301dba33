package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/padpal/server/internal/assistant/model"
	logx "github.com/padpal/server/pkg/logger"
)

// ChatModel is the narrow model surface the analyzer needs; the persona
// vision model satisfies it.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Analyzer reads stored media files and describes them with a vision model.
// Results are structured, never raised: a missing or unreadable file becomes
// an error-status result the persona model can explain to the user.
type Analyzer struct {
	chatModel ChatModel
	baseDir   string
}

func NewAnalyzer(chatModel ChatModel, baseDir string) *Analyzer {
	return &Analyzer{chatModel: chatModel, baseDir: baseDir}
}

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// Resolve maps a user-facing reference ("biscuit.jpg", "media/biscuit.jpg"
// or an absolute path) to a path inside the media directory. References that
// escape the directory are rejected.
func (a *Analyzer) Resolve(reference string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(reference))
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty media reference")
	}
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(a.baseDir, strings.TrimPrefix(cleaned, a.baseDir+string(filepath.Separator)))
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", err
	}
	baseAbs, err := filepath.Abs(a.baseDir)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(abs, baseAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("media reference %q escapes the media directory", reference)
	}
	return abs, nil
}

const defaultAnalysisPrompt = "Describe this file's content in detail so it can be used to answer questions about it."

// AnalyzeFile loads one media file and asks the vision model about it. An
// optional focus hint narrows the description to what the query needs.
func (a *Analyzer) AnalyzeFile(ctx context.Context, reference, focusHint string) *model.AnalysisResult {
	path, err := a.Resolve(reference)
	if err != nil {
		return analysisError(reference, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeByExt[ext]
	if !ok {
		return analysisError(reference, fmt.Errorf("unsupported media type %q", ext))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return analysisError(reference, fmt.Errorf("failed to read media file: %w", err))
	}

	prompt := defaultAnalysisPrompt
	if focusHint != "" {
		prompt = fmt.Sprintf("%s Focus on: %s", defaultAnalysisPrompt, focusHint)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: prompt},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      dataURL,
					MIMEType: mime,
				},
			},
		},
	}

	resp, err := a.chatModel.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		logx.Error().Err(err).Str("file", path).Msg("media analysis model call failed")
		return analysisError(reference, fmt.Errorf("analysis model call failed: %w", err))
	}

	return &model.AnalysisResult{
		Status:   model.StatusSuccess,
		FilePath: path,
		FileType: strings.TrimPrefix(ext, "."),
		MimeType: mime,
		Analysis: resp.Content,
	}
}

func analysisError(reference string, err error) *model.AnalysisResult {
	return &model.AnalysisResult{
		Status:   model.StatusError,
		FilePath: reference,
		Message:  err.Error(),
	}
}
