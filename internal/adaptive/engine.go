// Package adaptive learns host-specific extraction rules from an LLM,
// persists them, and promotes rules that prove themselves on replayed
// payloads.
package adaptive

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/quantmind-br/webextract-go/internal/config"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/rules"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

const (
	maxContainerRegexes = 5
	maxDropPatterns     = 10
)

// Engine coordinates rule synthesis and reuse for the adaptive
// strategy. It is safe for concurrent use; synthesis for the same host
// is collapsed into a single in-flight LLM call.
type Engine struct {
	provider  domain.LLMProvider
	store     *rules.Store
	cache     *rules.Cache
	adaptive  config.AdaptiveConfig
	promotion config.PromotionConfig
	logger    *utils.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewEngine creates an engine. The provider may be nil, in which case
// synthesis is skipped and only stored rules are served.
func NewEngine(provider domain.LLMProvider, store *rules.Store, cfg *config.Config, logger *utils.Logger) *Engine {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Engine{
		provider:  provider,
		store:     store,
		cache:     rules.NewCache(cfg.Adaptive.CacheSize, cfg.Adaptive.CacheTTL),
		adaptive:  cfg.Adaptive,
		promotion: cfg.Promotion,
		logger:    logger.WithComponent("adaptive"),
		now:       time.Now,
	}
}

// CachedRule returns a previously learned rule for a host, checking
// the memory cache first and falling back to the persistent store.
func (e *Engine) CachedRule(host string) *domain.AdaptiveRule {
	lowered := strings.ToLower(strings.TrimSpace(host))
	if lowered == "" {
		return nil
	}
	if rule := e.cache.Get(lowered); rule != nil {
		return rule
	}
	stored, err := e.store.GeneratedRule(lowered)
	if err != nil {
		e.logger.Warn().Err(err).Str("host", lowered).Msg("rule store read failed")
		return nil
	}
	if stored == nil || len(stored.ContainerRegexes) == 0 {
		return nil
	}
	e.cache.Put(*stored)
	return stored
}

// RecordReplaySample captures a payload for later rule evaluation.
func (e *Engine) RecordReplaySample(host, url, contentType, payload string) {
	lowered := strings.ToLower(strings.TrimSpace(host))
	if lowered == "" {
		return
	}
	err := e.store.RecordReplaySample(lowered, domain.ReplaySample{
		URL:         url,
		ContentType: contentType,
		Payload:     payload,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("host", lowered).Msg("failed to record replay sample")
	}
}

// SynthesizeRule asks the LLM for a rule covering the host. Transient
// conditions (disabled engine, no provider, low confidence, model
// failure) yield (nil, nil) so callers simply move on.
func (e *Engine) SynthesizeRule(ctx context.Context, host, url, payload string) (*domain.AdaptiveRule, error) {
	if !e.adaptive.Enabled {
		return nil, nil
	}
	lowered := strings.ToLower(strings.TrimSpace(host))
	if lowered == "" {
		return nil, nil
	}
	if cached := e.CachedRule(lowered); cached != nil {
		return cached, nil
	}
	if payload == "" || e.provider == nil {
		return nil, nil
	}

	result, err, _ := e.group.Do(lowered, func() (any, error) {
		// another goroutine may have finished while we queued
		if cached := e.CachedRule(lowered); cached != nil {
			return cached, nil
		}
		return e.synthesize(ctx, lowered, url, payload)
	})
	if err != nil {
		return nil, err
	}
	rule, _ := result.(*domain.AdaptiveRule)
	return rule, nil
}

func (e *Engine) synthesize(ctx context.Context, host, url, payload string) (*domain.AdaptiveRule, error) {
	sample := payload
	if len(sample) > e.adaptive.MaxHTMLChars {
		sample = sample[:e.adaptive.MaxHTMLChars]
	}

	raw, err := e.provider.Complete(ctx, rulePrompt(url, host, sample))
	if err != nil {
		e.logger.Warn().Err(err).Str("host", host).Msg("rule synthesis failed")
		return nil, nil
	}

	parsed, err := extractJSONBlock(raw)
	if err != nil {
		e.logger.Warn().Err(err).Str("host", host).Msg("model output was not valid JSON")
		return nil, nil
	}

	containerRegexes := cleanPatterns(parsed.ContainerRegexes, maxContainerRegexes)
	if len(containerRegexes) == 0 {
		return nil, nil
	}
	if parsed.Confidence < e.adaptive.MinConfidence {
		e.logger.Info().
			Str("host", host).
			Float64("confidence", parsed.Confidence).
			Msg("adaptive rule rejected on confidence")
		return nil, nil
	}

	rule := domain.AdaptiveRule{
		Host:             host,
		ContainerRegexes: containerRegexes,
		DropTextPatterns: cleanPatterns(parsed.DropTextPatterns, maxDropPatterns),
		Confidence:       parsed.Confidence,
		Model:            e.adaptive.Model,
		GeneratedAt:      float64(e.now().UnixNano()) / float64(time.Second),
	}
	e.cache.Put(rule)
	if err := e.store.SaveGeneratedRule(host, rule); err != nil {
		e.logger.Warn().Err(err).Str("host", host).Msg("failed to persist generated rule")
	}
	return &rule, nil
}

func rulePrompt(url, host, htmlSample string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are an expert web content extraction engineer.
You need to create robust parsing rules for the host: %s
URL: %s

Return ONLY valid JSON with this exact schema:
{
  "container_regexes": ["..."],
  "drop_text_patterns": ["..."],
  "confidence": 0.0
}

Constraints:
- container_regexes: 1-5 regex patterns. Prefer non-greedy patterns. Include a capture group for main content.
- drop_text_patterns: 0-10 regex patterns to remove boilerplate.
- confidence: 0-1 float indicating reliability.
- Do NOT include explanation text.

The HTML sample is truncated:
%s`, host, url, htmlSample))
}

type rulePayload struct {
	ContainerRegexes []string `json:"container_regexes"`
	DropTextPatterns []string `json:"drop_text_patterns"`
	Confidence       float64  `json:"confidence"`
}

var fencedBlockRe = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)```")

// extractJSONBlock parses model output that is either bare JSON or
// JSON wrapped in a fenced code block.
func extractJSONBlock(raw string) (*rulePayload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty model output")
	}

	var payload rulePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
		return &payload, nil
	}

	for _, match := range fencedBlockRe.FindAllStringSubmatch(trimmed, -1) {
		candidate := strings.TrimSpace(match[1])
		var fenced rulePayload
		if err := json.Unmarshal([]byte(candidate), &fenced); err == nil {
			return &fenced, nil
		}
	}
	return nil, fmt.Errorf("model did not return valid JSON")
}

func cleanPatterns(patterns []string, max int) []string {
	var out []string
	for _, pattern := range patterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == max {
			break
		}
	}
	return out
}
