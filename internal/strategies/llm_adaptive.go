package strategies

import (
	"context"

	"github.com/quantmind-br/webextract-go/internal/adaptive"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// LLMAdaptiveStrategy is the last resort: it replays a learned
// host-specific rule when one exists, otherwise asks the LLM oracle to
// synthesize one, and feeds successful generated rules into the
// promotion loop.
type LLMAdaptiveStrategy struct {
	fetcher domain.Fetcher
	engine  *adaptive.Engine
	logger  *utils.Logger
}

func NewLLMAdaptiveStrategy(fetcher domain.Fetcher, engine *adaptive.Engine, logger *utils.Logger) *LLMAdaptiveStrategy {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &LLMAdaptiveStrategy{
		fetcher: fetcher,
		engine:  engine,
		logger:  logger.WithStrategy("llm_adaptive"),
	}
}

// Name implements domain.Strategy.
func (s *LLMAdaptiveStrategy) Name() string {
	return "llm_adaptive"
}

// Extract implements domain.Strategy.
func (s *LLMAdaptiveStrategy) Extract(ctx context.Context, ec *domain.ExtractionContext) (*domain.ExtractionCandidate, error) {
	page, err := ensurePage(ctx, s.fetcher, ec)
	if err != nil {
		return nil, err
	}
	payload := page.Payload
	host := hostOf(finalURLOf(page, ec))
	contentType := page.ContentType

	s.engine.RecordReplaySample(host, finalURLOf(page, ec), contentType, payload)

	if cached := s.engine.CachedRule(host); cached != nil {
		candidate, err := adaptive.ApplyRule(ec.URL, payload, contentType, cached, false, ec.MaxChars)
		if err == nil {
			return candidate, nil
		}
		// stale rule; fall through to a fresh synthesis
		s.logger.WithHost(host).Debug().Err(err).Msg("cached rule did not apply")
	}

	generated, err := s.engine.SynthesizeRule(ctx, host, ec.URL, payload)
	if err != nil {
		return nil, domain.NewStrategyError(s.Name(), err, "rule synthesis failed")
	}
	if generated == nil {
		return nil, domain.NewStrategyError(s.Name(), domain.ErrLLMRejected, "no valid LLM adaptive rule available")
	}

	candidate, err := adaptive.ApplyRule(ec.URL, payload, contentType, generated, true, ec.MaxChars)
	if err != nil {
		return nil, domain.NewStrategyError(s.Name(), err, "generated rule did not apply")
	}

	promotion := s.engine.EvaluateAndPromote(host, generated, ec.MaxChars)
	candidate.ExtractionMeta["promotion"] = promotion
	return candidate, nil
}
