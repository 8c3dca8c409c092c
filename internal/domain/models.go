package domain

import "time"

// ContentFormatText is the only content format the pipeline emits.
const ContentFormatText = "text"

// FetchedPage is the result of one HTTP fetch, shared across strategies.
type FetchedPage struct {
	RequestedURL string            `json:"requested_url"`
	FinalURL     string            `json:"final_url"`
	ContentType  string            `json:"content_type"`
	Payload      string            `json:"payload"`
	StatusCode   int               `json:"status_code"`
	Headers      map[string]string `json:"headers"`
}

// ExtractionContext carries per-request state through the strategy chain.
// The page slot is filled by the first strategy that needs it and reused
// by the rest.
type ExtractionContext struct {
	URL      string
	TaskID   string
	Timeout  time.Duration
	MaxChars int
	Page     *FetchedPage
}

// NewExtractionContext builds a context with the standard budgets.
func NewExtractionContext(url, taskID string, timeout time.Duration, maxChars int) *ExtractionContext {
	return &ExtractionContext{
		URL:      url,
		TaskID:   taskID,
		Timeout:  timeout,
		MaxChars: maxChars,
	}
}

// ExtractionCandidate is one strategy's produced document.
type ExtractionCandidate struct {
	StrategyName      string         `json:"strategy_name"`
	URL               string         `json:"url"`
	CanonicalURL      string         `json:"canonical_url"`
	Title             string         `json:"title"`
	ContentFormat     string         `json:"content_format"`
	RawContent        string         `json:"raw_content"`
	ExtractionMeta    map[string]any `json:"extraction_meta"`
	Blocks            []Block        `json:"blocks"`
	QualityScore      float64        `json:"quality_score"`
	QualityConfidence float64        `json:"quality_confidence"`
}

// ExtractionAttempt records one strategy run for the trace.
type ExtractionAttempt struct {
	StrategyName string   `json:"strategy_name"`
	Success      bool     `json:"success"`
	DurationMS   int64    `json:"duration_ms"`
	Score        *float64 `json:"score"`
	Confidence   *float64 `json:"confidence"`
	Reason       string   `json:"reason,omitempty"`
}

// ExtractionDecision is the orchestrator's final outcome.
type ExtractionDecision struct {
	Candidate       *ExtractionCandidate
	Attempts        []ExtractionAttempt
	DurationSeconds float64
}

// WebhookResult is the DTO delivered to the external job system.
type WebhookResult struct {
	Success           bool                `json:"success"`
	URL               string              `json:"url"`
	CanonicalURL      string              `json:"canonical_url"`
	Title             string              `json:"title"`
	ContentFormat     string              `json:"content_format"`
	RawContent        string              `json:"raw_content"`
	Blocks            []Block             `json:"blocks"`
	QualityScore      float64             `json:"quality_score"`
	QualityConfidence float64             `json:"quality_confidence"`
	StrategyUsed      string              `json:"strategy_used"`
	ExtractionTrace   []ExtractionAttempt `json:"extraction_trace"`
	ExtractionMeta    map[string]any      `json:"extraction_meta"`
	Duration          float64             `json:"duration"`
	ProjectID         string              `json:"project_id,omitempty"`
}

// ToWebhookResult projects the decision into the external DTO.
func (d *ExtractionDecision) ToWebhookResult(projectID string) *WebhookResult {
	c := d.Candidate
	return &WebhookResult{
		Success:           true,
		URL:               c.URL,
		CanonicalURL:      c.CanonicalURL,
		Title:             c.Title,
		ContentFormat:     c.ContentFormat,
		RawContent:        c.RawContent,
		Blocks:            c.Blocks,
		QualityScore:      c.QualityScore,
		QualityConfidence: c.QualityConfidence,
		StrategyUsed:      c.StrategyName,
		ExtractionTrace:   d.Attempts,
		ExtractionMeta:    c.ExtractionMeta,
		Duration:          d.DurationSeconds,
		ProjectID:         projectID,
	}
}

// AdaptiveRule is a host-specific extraction recipe learned from the LLM.
type AdaptiveRule struct {
	Host             string   `json:"host"`
	ContainerRegexes []string `json:"container_regexes"`
	DropTextPatterns []string `json:"drop_text_patterns"`
	Confidence       float64  `json:"confidence"`
	Model            string   `json:"model"`
	GeneratedAt      float64  `json:"generated_at"`
}

// ReplaySample is one captured payload used to evaluate a learned rule.
type ReplaySample struct {
	URL         string  `json:"url"`
	ContentType string  `json:"content_type"`
	Payload     string  `json:"payload"`
	CapturedAt  float64 `json:"captured_at"`
}

// PromotedAdapter is a learned rule certified as a first-class adapter.
type PromotedAdapter struct {
	Name             string         `json:"name"`
	Host             string         `json:"host,omitempty"`
	HostSuffixes     []string       `json:"host_suffixes"`
	ContainerRegexes []string       `json:"container_regexes"`
	DropTextPatterns []string       `json:"drop_text_patterns"`
	SourceModel      string         `json:"source_model"`
	SourceConfidence float64        `json:"source_confidence"`
	GeneratedAt      float64        `json:"generated_at"`
	PromotedAt       float64        `json:"promoted_at,omitempty"`
	Evaluation       map[string]any `json:"evaluation"`
}

// StatusCallback receives short human-readable progress strings.
type StatusCallback func(status string)
