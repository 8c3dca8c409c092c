package adaptive

import (
	"strings"
	"time"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/scoring"
)

// Evaluation summarizes a promotion run over replayed samples.
type Evaluation struct {
	Promoted    bool    `json:"promoted"`
	Reason      string  `json:"reason,omitempty"`
	SampleCount int     `json:"sample_count"`
	Successful  int     `json:"successful"`
	Errors      int     `json:"errors"`
	SuccessRate float64 `json:"success_rate"`
	AvgScore    float64 `json:"avg_score"`
	EvaluatedAt float64 `json:"evaluated_at"`
}

func (e Evaluation) asMap() map[string]any {
	m := map[string]any{
		"promoted":     e.Promoted,
		"sample_count": e.SampleCount,
		"successful":   e.Successful,
		"errors":       e.Errors,
		"success_rate": e.SuccessRate,
		"avg_score":    e.AvgScore,
		"evaluated_at": e.EvaluatedAt,
	}
	if e.Reason != "" {
		m["reason"] = e.Reason
	}
	return m
}

// EvaluateAndPromote replays stored samples through a rule and, when
// the rule holds up, certifies it as a promoted adapter. Promotion is
// write-once per host.
func (e *Engine) EvaluateAndPromote(host string, rule *domain.AdaptiveRule, maxChars int) Evaluation {
	lowered := strings.ToLower(strings.TrimSpace(host))
	if lowered == "" {
		return Evaluation{Reason: "invalid_host"}
	}
	if !e.promotion.Enabled {
		return Evaluation{Reason: "promotion_disabled"}
	}

	existing, err := e.store.PromotedAdapterForHost(lowered)
	if err != nil {
		e.logger.Warn().Err(err).Str("host", lowered).Msg("promoted adapter lookup failed")
		return Evaluation{Reason: "store_error"}
	}
	if existing != nil {
		return Evaluation{Reason: "already_promoted"}
	}

	samples, err := e.store.ReplaySamples(lowered, e.promotion.MaxSamples)
	if err != nil {
		e.logger.Warn().Err(err).Str("host", lowered).Msg("replay sample read failed")
		return Evaluation{Reason: "store_error"}
	}
	if len(samples) < e.promotion.MinSamples {
		return Evaluation{Reason: "insufficient_samples", SampleCount: len(samples)}
	}

	successful := 0
	errorCount := 0
	var scores []float64
	for _, sample := range samples {
		candidate, err := ApplyRule(sample.URL, sample.Payload, sample.ContentType, rule, false, maxChars)
		if err != nil {
			errorCount++
			continue
		}
		result := scoring.ScoreCandidate(candidate)
		scores = append(scores, result.Score)
		if result.Score >= e.promotion.MinSampleScore {
			successful++
		}
	}

	sampleCount := len(samples)
	successRate := float64(successful) / float64(sampleCount)
	avgScore := 0.0
	if len(scores) > 0 {
		sum := 0.0
		for _, score := range scores {
			sum += score
		}
		avgScore = sum / float64(len(scores))
	}

	evaluation := Evaluation{
		Promoted:    successRate >= e.promotion.MinSuccessRate && avgScore >= e.promotion.MinAvgScore,
		SampleCount: sampleCount,
		Successful:  successful,
		Errors:      errorCount,
		SuccessRate: successRate,
		AvgScore:    avgScore,
		EvaluatedAt: float64(e.now().UnixNano()) / float64(time.Second),
	}

	if evaluation.Promoted {
		err := e.store.SavePromotedAdapter(lowered, domain.PromotedAdapter{
			Name:             "llm-promoted:" + lowered,
			HostSuffixes:     []string{lowered},
			ContainerRegexes: rule.ContainerRegexes,
			DropTextPatterns: rule.DropTextPatterns,
			SourceModel:      rule.Model,
			SourceConfidence: rule.Confidence,
			GeneratedAt:      rule.GeneratedAt,
			Evaluation:       evaluation.asMap(),
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("host", lowered).Msg("failed to persist promoted adapter")
		} else {
			e.logger.Info().
				Str("host", lowered).
				Float64("success_rate", successRate).
				Float64("avg_score", avgScore).
				Msg("adaptive rule promoted to adapter")
		}
	}
	return evaluation
}
