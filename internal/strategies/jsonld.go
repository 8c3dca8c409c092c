package strategies

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// JSONLDStrategy pulls the article body out of the page's structured
// data blocks, tolerating malformed scripts.
type JSONLDStrategy struct {
	fetcher domain.Fetcher
	logger  *utils.Logger
}

func NewJSONLDStrategy(fetcher domain.Fetcher, logger *utils.Logger) *JSONLDStrategy {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &JSONLDStrategy{
		fetcher: fetcher,
		logger:  logger.WithStrategy("json_ld"),
	}
}

// Name implements domain.Strategy.
func (s *JSONLDStrategy) Name() string {
	return "json_ld"
}

func decodeJSONLDObjects(payload string) []map[string]any {
	var decoded []map[string]any
	for _, script := range htmlx.ExtractJSONLDScripts(payload) {
		body := strings.TrimSpace(script)
		if body == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			continue
		}
		switch v := parsed.(type) {
		case map[string]any:
			decoded = append(decoded, v)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					decoded = append(decoded, m)
				}
			}
		}
	}
	return decoded
}

var jsonLDTextKeys = []string{"articleBody", "text", "description"}

// findLongTextField walks the object depth-first for the first string
// of at least 120 chars under a known body key. Map keys are visited in
// sorted order so the result is deterministic.
func findLongTextField(node any) string {
	switch v := node.(type) {
	case map[string]any:
		for _, key := range jsonLDTextKeys {
			if value, ok := v[key].(string); ok && len(strings.TrimSpace(value)) >= minContentChars {
				return value
			}
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if nested := findLongTextField(v[key]); nested != "" {
				return nested
			}
		}
	case []any:
		for _, item := range v {
			if nested := findLongTextField(item); nested != "" {
				return nested
			}
		}
	}
	return ""
}

// Extract implements domain.Strategy.
func (s *JSONLDStrategy) Extract(ctx context.Context, ec *domain.ExtractionContext) (*domain.ExtractionCandidate, error) {
	page, err := ensurePage(ctx, s.fetcher, ec)
	if err != nil {
		return nil, err
	}
	payload := page.Payload

	objects := decodeJSONLDObjects(payload)
	if len(objects) == 0 {
		return nil, domain.NewStrategyError(s.Name(), nil, "no JSON-LD payload found")
	}

	bestText := ""
	title := ""
	for _, object := range objects {
		if title == "" {
			for _, titleKey := range []string{"headline", "name", "title"} {
				if value, ok := object[titleKey].(string); ok {
					title = value
					break
				}
			}
		}
		if text := findLongTextField(object); text != "" && len(text) > len(bestText) {
			bestText = text
		}
	}
	if bestText == "" {
		return nil, domain.NewStrategyError(s.Name(), nil, "JSON-LD did not contain a usable article body")
	}

	rawContent := htmlx.NormalizeTextPreserveParagraphs(bestText)
	if len(rawContent) < minContentChars {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrContentTooShort, "JSON-LD content too short")
	}

	if title == "" {
		title = htmlx.ExtractTitle(payload)
	}
	return &domain.ExtractionCandidate{
		StrategyName:  s.Name(),
		URL:           ec.URL,
		CanonicalURL:  htmlx.ExtractCanonicalURL(payload, finalURLOf(page, ec)),
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    truncateContent(rawContent, ec.MaxChars),
		ExtractionMeta: map[string]any{
			"method":       "json_ld",
			"host":         hostOf(finalURLOf(page, ec)),
			"content_type": page.ContentType,
		},
		Blocks: htmlx.BuildReaderBlocks(rawContent),
	}, nil
}
