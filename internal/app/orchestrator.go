// Package app wires the extraction pipeline together and runs one
// orchestration per URL: validate, fetch through the strategy chain,
// score, and return the webhook result.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantmind-br/webextract-go/internal/adapters"
	"github.com/quantmind-br/webextract-go/internal/adaptive"
	"github.com/quantmind-br/webextract-go/internal/config"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/fetcher"
	"github.com/quantmind-br/webextract-go/internal/llm"
	"github.com/quantmind-br/webextract-go/internal/rules"
	"github.com/quantmind-br/webextract-go/internal/safety"
	"github.com/quantmind-br/webextract-go/internal/scoring"
	"github.com/quantmind-br/webextract-go/internal/strategies"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// Orchestrator runs the strategy chain for one URL at a time. It is
// safe for concurrent use; each Run owns its own extraction context.
type Orchestrator struct {
	config     *config.Config
	guard      *safety.Guard
	strategies []domain.Strategy
	logger     *utils.Logger
}

// OrchestratorOptions contains options for creating an orchestrator.
// Strategies and Guard are injectable for tests; when nil they are
// built from the config.
type OrchestratorOptions struct {
	Config     *config.Config
	Logger     *utils.Logger
	Guard      *safety.Guard
	Strategies []domain.Strategy
}

// NewOrchestrator creates an orchestrator with the given configuration,
// assembling the fetcher, rule store, adaptive engine, adapter registry
// and strategy chain from it.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewLogger(utils.LoggerOptions{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})
	}

	guard := opts.Guard
	if guard == nil {
		guard = safety.NewGuard(cfg.Safety.AllowedPrivateCIDRs)
	}

	chain := opts.Strategies
	if chain == nil {
		client, err := fetcher.NewClient(fetcher.ClientOptions{
			Timeout: cfg.Extraction.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher: %w", err)
		}

		store := rules.NewStore(cfg.State.RuleStorePath, logger)

		provider, err := llm.NewProviderFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm provider: %w", err)
		}
		engine := adaptive.NewEngine(provider, store, cfg, logger)

		registry := adapters.NewRegistry(store, logger)
		if err := registry.LoadOverlay(cfg.Adapters.OverlayPath); err != nil {
			return nil, err
		}

		chain = strategies.Chain(strategies.Dependencies{
			Fetcher:  client,
			Registry: registry,
			Engine:   engine,
			Logger:   logger,
		})
	}

	return &Orchestrator{
		config:     cfg,
		guard:      guard,
		strategies: chain,
		logger:     logger.WithComponent("orchestrator"),
	}, nil
}

// RunOptions are the per-request inputs.
type RunOptions struct {
	URL       string
	TaskID    string
	ProjectID string
	Status    domain.StatusCallback
}

// strategyReason extracts the human-readable failure reason without
// duplicating the strategy name the trace already carries.
func strategyReason(err error) string {
	var se *domain.StrategyError
	if errors.As(err, &se) {
		if se.Reason != "" {
			return se.Reason
		}
		if se.Err != nil {
			return se.Err.Error()
		}
	}
	return err.Error()
}

// Run executes the strategy chain for one URL and returns the webhook
// result DTO, or a terminal error when nothing publishable came out.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*domain.WebhookResult, error) {
	if err := o.guard.ValidatePublicURL(ctx, opts.URL); err != nil {
		return nil, err
	}

	ec := domain.NewExtractionContext(opts.URL, opts.TaskID, o.config.Extraction.Timeout, o.config.Extraction.MaxChars)
	startedAt := time.Now()

	var attempts []domain.ExtractionAttempt
	var best *domain.ExtractionCandidate

	for _, strategy := range o.strategies {
		// stop at the strategy boundary when the caller cancelled
		if ctx.Err() != nil {
			break
		}

		if opts.Status != nil {
			opts.Status(fmt.Sprintf("Extracting content (%s)", strategy.Name()))
		}

		strategyStarted := time.Now()
		candidate, err := strategy.Extract(ctx, ec)
		durationMS := time.Since(strategyStarted).Milliseconds()

		if err != nil {
			reason := strategyReason(err)
			o.logger.WithStrategy(strategy.Name()).Debug().
				Str("reason", reason).
				Int64("duration_ms", durationMS).
				Msg("strategy failed")
			attempts = append(attempts, domain.ExtractionAttempt{
				StrategyName: strategy.Name(),
				Success:      false,
				DurationMS:   durationMS,
				Reason:       reason,
			})
			continue
		}

		result := scoring.ScoreCandidate(candidate)
		candidate.QualityScore = result.Score
		candidate.QualityConfidence = result.Confidence
		if candidate.ExtractionMeta == nil {
			candidate.ExtractionMeta = map[string]any{}
		}
		candidate.ExtractionMeta["quality_features"] = result.Features

		score := result.Score
		confidence := result.Confidence
		attempts = append(attempts, domain.ExtractionAttempt{
			StrategyName: strategy.Name(),
			Success:      true,
			DurationMS:   durationMS,
			Score:        &score,
			Confidence:   &confidence,
		})
		o.logger.WithStrategy(strategy.Name()).Info().
			Float64("score", score).
			Int64("duration_ms", durationMS).
			Msg("strategy produced a candidate")

		if best == nil || candidate.QualityScore > best.QualityScore {
			best = candidate
		}
		if candidate.QualityScore >= o.config.Extraction.AcceptanceThreshold {
			break
		}
	}

	if best == nil {
		var reasons []string
		for _, attempt := range attempts {
			if attempt.Success {
				continue
			}
			reason := attempt.Reason
			if reason == "" {
				reason = "unknown error"
			}
			reasons = append(reasons, fmt.Sprintf("%s: %s", attempt.StrategyName, reason))
		}
		return nil, &domain.ExtractionFailedError{URL: opts.URL, Reasons: reasons}
	}
	if best.QualityScore < o.config.Extraction.MinimumAcceptableScore {
		return nil, &domain.QualityError{
			URL:     opts.URL,
			Score:   best.QualityScore,
			Minimum: o.config.Extraction.MinimumAcceptableScore,
		}
	}

	decision := domain.ExtractionDecision{
		Candidate:       best,
		Attempts:        attempts,
		DurationSeconds: time.Since(startedAt).Seconds(),
	}
	return decision.ToWebhookResult(opts.ProjectID), nil
}
