package adaptive

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

func testRule(containers ...string) *domain.AdaptiveRule {
	return &domain.AdaptiveRule{
		Host:             "example.com",
		ContainerRegexes: containers,
		Confidence:       0.8,
		Model:            "gemini-2.5-flash",
	}
}

func longParagraph(lead string) string {
	return lead + " " + strings.Repeat("The reader keeps following the argument through each worked section. ", 3)
}

func TestApplyRuleCaptureGroup(t *testing.T) {
	payload := "<html><head><title>Worked Example</title></head><body>" +
		"<article>" + longParagraph("Worked example content begins here and continues at length.") + "</article>" +
		"<footer>Subscribe for more</footer></body></html>"

	rule := testRule(`<article[^>]*>(.*?)</article>`)
	candidate, err := ApplyRule("https://example.com/a", payload, "text/html", rule, true, 120_000)
	require.NoError(t, err)

	assert.Equal(t, StrategyNameGenerated, candidate.StrategyName)
	assert.Equal(t, "Worked Example", candidate.Title)
	assert.Contains(t, candidate.RawContent, "Worked example content begins")
	assert.NotContains(t, candidate.RawContent, "Subscribe for more")
	assert.Equal(t, "llm_adaptive", candidate.ExtractionMeta["method"])
	assert.Equal(t, "example.com", candidate.ExtractionMeta["host"])
	assert.Equal(t, true, candidate.ExtractionMeta["rule_generated"])
	assert.NotEmpty(t, candidate.Blocks)
}

func TestApplyRuleWholeMatchWithoutGroup(t *testing.T) {
	body := longParagraph("Ungrouped pattern content still works fine in practice today.")
	payload := "<main>" + body + "</main>"

	// no capture group: the whole match is the fragment
	rule := testRule(`<main>.*?</main>`)
	candidate, err := ApplyRule("https://example.com/b", payload, "text/html", rule, false, 120_000)
	require.NoError(t, err)

	assert.Equal(t, StrategyNameCached, candidate.StrategyName)
	assert.Contains(t, candidate.RawContent, "Ungrouped pattern content")
}

func TestApplyRuleDropPatterns(t *testing.T) {
	payload := "<article>" + longParagraph("Real article body with analysis.") +
		" SIGN UP for our newsletter today</article>"

	rule := testRule(`<article[^>]*>(.*?)</article>`)
	rule.DropTextPatterns = []string{`sign up.*?today`}

	candidate, err := ApplyRule("https://example.com/c", payload, "text/html", rule, true, 120_000)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(candidate.RawContent), "sign up")
}

func TestApplyRuleLongestFragmentWins(t *testing.T) {
	short := "<article>Tiny.</article>"
	long := "<article>" + longParagraph("Longer fragment should be selected for projection.") + "</article>"
	payload := short + long

	rule := testRule(`<article[^>]*>(.*?)</article>`)
	candidate, err := ApplyRule("https://example.com/d", payload, "text/html", rule, true, 120_000)
	require.NoError(t, err)
	assert.Contains(t, candidate.RawContent, "Longer fragment")
}

func TestApplyRuleNoMatch(t *testing.T) {
	rule := testRule(`<article[^>]*>(.*?)</article>`)
	_, err := ApplyRule("https://example.com/e", "<div>nothing here</div>", "text/html", rule, true, 120_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoMatch))
}

func TestApplyRuleTooShort(t *testing.T) {
	rule := testRule(`<article[^>]*>(.*?)</article>`)
	_, err := ApplyRule("https://example.com/f", "<article>too short</article>", "text/html", rule, true, 120_000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrContentTooShort))
}

func TestApplyRuleInvalidPatternsAreSkipped(t *testing.T) {
	payload := "<article>" + longParagraph("Valid pattern rescues the invalid one.") + "</article>"

	rule := testRule(`<article(`, `<article[^>]*>(.*?)</article>`)
	rule.DropTextPatterns = []string{`[unclosed`}

	candidate, err := ApplyRule("https://example.com/g", payload, "text/html", rule, true, 120_000)
	require.NoError(t, err)
	assert.Contains(t, candidate.RawContent, "Valid pattern")
}

func TestApplyRuleTruncatesToMaxChars(t *testing.T) {
	payload := "<article>" + strings.Repeat("Plenty of repeated narrative text flows here. ", 50) + "</article>"

	rule := testRule(`<article[^>]*>(.*?)</article>`)
	candidate, err := ApplyRule("https://example.com/h", payload, "text/html", rule, true, 200)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(candidate.RawContent), 200)
}
