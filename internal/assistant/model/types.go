package model

// ResultStatus tags every tool payload so the persona model can tell success
// from failure without inspecting operation-specific fields.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// ComputationRequiredMarker is the sentinel the context provider returns in
// place of an answer when a query matches operation trigger criteria. The
// scratch pad lookup must never resolve computational questions itself; doing
// so would make the math router unreachable.
const ComputationRequiredMarker = "computation required"

// RoutingDecision is the classifier's verdict for one math query. It is
// transient metadata: produced per routing call and attached to the resulting
// OperationResult for observability, never persisted.
type RoutingDecision struct {
	Operation    string `json:"operation"`
	NeedsContext bool   `json:"needs_context"`

	// Observability extras filled in by the router, not the classifier.
	ContextUsed    bool   `json:"context_used,omitempty"`
	ContextSnippet string `json:"context_content,omitempty"`
	Raw            string `json:"routing_json,omitempty"`
}

// OperationResult is the single structured outcome of routing one math query.
// The router never raises past this boundary: handler failures become
// Status == StatusError with {message, operation, query} in the payload.
type OperationResult struct {
	Status  ResultStatus     `json:"status"`
	Payload map[string]any   `json:"payload"`
	Routing *RoutingDecision `json:"routing_decision,omitempty"`
}

// ContextResult is what the scratch pad lookup yields for one query.
type ContextResult struct {
	Status              ResultStatus `json:"status"`
	Query               string       `json:"query,omitempty"`
	RelevantText        string       `json:"relevant_context"`
	MediaNeeded         bool         `json:"media_files_needed"`
	RecommendedMedia    []string     `json:"recommended_media,omitempty"`
	Reasoning           string       `json:"reasoning,omitempty"`
	ComputationRequired bool         `json:"computation_required,omitempty"`
	Message             string       `json:"message,omitempty"`
}

// AnalysisResult describes one analyzed media asset.
type AnalysisResult struct {
	Status   ResultStatus `json:"status"`
	FilePath string       `json:"file_path,omitempty"`
	FileType string       `json:"file_type,omitempty"`
	MimeType string       `json:"mime_type,omitempty"`
	Analysis string       `json:"analysis"`
	Message  string       `json:"message,omitempty"`
}

// ImageResult describes one generated image asset.
type ImageResult struct {
	Status         ResultStatus `json:"status"`
	FilePath       string       `json:"file_path,omitempty"`
	Prompt         string       `json:"prompt"`
	OriginalPrompt string       `json:"original_prompt,omitempty"`
	Enhanced       bool         `json:"enhanced"`
	Message        string       `json:"message,omitempty"`
}
