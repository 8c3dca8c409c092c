package strategies

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/webextract-go/internal/adaptive"
	"github.com/quantmind-br/webextract-go/internal/config"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/rules"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

type fakeOracle struct {
	output string
	err    error
	calls  int
}

func (f *fakeOracle) Name() string { return "fake" }

func (f *fakeOracle) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

const adaptiveRuleJSON = `{
  "container_regexes": ["<article[^>]*>(.*?)</article>"],
  "drop_text_patterns": [],
  "confidence": 0.9
}`

func newAdaptiveTestSetup(t *testing.T, oracle *fakeOracle) (*LLMAdaptiveStrategy, *rules.Store, *fakeFetcher) {
	t.Helper()
	store := rules.NewStore(filepath.Join(t.TempDir(), "rules.json"), utils.NewNopLogger())
	var provider domain.LLMProvider
	if oracle != nil {
		provider = oracle
	}
	engine := adaptive.NewEngine(provider, store, config.Default(), nil)

	body := "<html><head><title>Rule Target</title></head><body><article><p>" +
		articleSentences(6) + "</p></article></body></html>"
	fetcher := &fakeFetcher{page: htmlPage("https://rules.example.com/post", body)}
	return NewLLMAdaptiveStrategy(fetcher, engine, nil), store, fetcher
}

func TestLLMAdaptiveSynthesizesAndApplies(t *testing.T) {
	oracle := &fakeOracle{output: adaptiveRuleJSON}
	strategy, store, _ := newAdaptiveTestSetup(t, oracle)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://rules.example.com/post"))
	require.NoError(t, err)

	assert.Equal(t, adaptive.StrategyNameGenerated, candidate.StrategyName)
	assert.Equal(t, "Rule Target", candidate.Title)
	assert.Equal(t, 1, oracle.calls)
	assert.Contains(t, candidate.RawContent, "Paragraph 1")

	promotion, ok := candidate.ExtractionMeta["promotion"].(adaptive.Evaluation)
	require.True(t, ok)
	assert.False(t, promotion.Promoted)
	assert.Equal(t, "insufficient_samples", promotion.Reason)

	// the generated rule and the replay sample both land in the store
	stored, err := store.GeneratedRule("rules.example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0.9, stored.Confidence)

	samples, err := store.ReplaySamples("rules.example.com", 0)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}

func TestLLMAdaptiveUsesStoredRuleWithoutOracle(t *testing.T) {
	oracle := &fakeOracle{output: adaptiveRuleJSON}
	strategy, store, _ := newAdaptiveTestSetup(t, oracle)

	require.NoError(t, store.SaveGeneratedRule("rules.example.com", domain.AdaptiveRule{
		ContainerRegexes: []string{`<article[^>]*>(.*?)</article>`},
		Confidence:       0.8,
		Model:            "gemini-2.5-flash",
	}))

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://rules.example.com/post"))
	require.NoError(t, err)
	assert.Equal(t, adaptive.StrategyNameCached, candidate.StrategyName)
	assert.Zero(t, oracle.calls)
	assert.Equal(t, false, candidate.ExtractionMeta["rule_generated"])
}

func TestLLMAdaptiveNoRuleAvailable(t *testing.T) {
	// low confidence rules are rejected during synthesis
	oracle := &fakeOracle{output: `{"container_regexes": ["<article>(.*?)</article>"], "confidence": 0.1}`}
	strategy, _, _ := newAdaptiveTestSetup(t, oracle)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://rules.example.com/post"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMRejected)
}

func TestLLMAdaptiveWithoutProvider(t *testing.T) {
	strategy, store, _ := newAdaptiveTestSetup(t, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://rules.example.com/post"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMRejected)

	// the replay sample is still captured for future synthesis
	samples, sampleErr := store.ReplaySamples("rules.example.com", 0)
	require.NoError(t, sampleErr)
	assert.Len(t, samples, 1)
}

func TestLLMAdaptiveStaleCachedRuleStillWins(t *testing.T) {
	oracle := &fakeOracle{output: adaptiveRuleJSON}
	strategy, store, _ := newAdaptiveTestSetup(t, oracle)

	// a stored rule that matches nothing keeps being served by the
	// synthesis path too, so the strategy reports the failure instead
	// of burning an oracle call
	require.NoError(t, store.SaveGeneratedRule("rules.example.com", domain.AdaptiveRule{
		ContainerRegexes: []string{`<section class="missing">(.*?)</section>`},
		Confidence:       0.8,
	}))

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://rules.example.com/post"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoMatch)
	assert.Zero(t, oracle.calls)
}

func TestLLMAdaptivePropagatesFetchError(t *testing.T) {
	strategy, _, fetcher := newAdaptiveTestSetup(t, &fakeOracle{output: adaptiveRuleJSON})
	fetcher.err = fmt.Errorf("connection reset")
	fetcher.page = nil

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://rules.example.com/post"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
}
