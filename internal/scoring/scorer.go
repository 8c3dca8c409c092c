// Package scoring rates extraction candidates on a bounded [0,1] scale
// from seven weighted text and structure features.
package scoring

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

// ScoreResult carries the score, the derived confidence, and the raw
// feature values for the extraction trace.
type ScoreResult struct {
	Score      float64
	Confidence float64
	Features   map[string]float64
}

var (
	tokenPattern          = regexp.MustCompile(`[a-z0-9][a-z0-9_-]+`)
	paragraphSplitPattern = regexp.MustCompile(`\n{2,}`)
)

var noiseMarkers = map[string]bool{
	"cookie":        true,
	"subscribe":     true,
	"javascript":    true,
	"privacy":       true,
	"advertisement": true,
}

var blockedMarkers = []string{
	"verify you are human",
	"access denied",
	"captcha",
	"request blocked",
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, item := range paragraphSplitPattern.Split(text, -1) {
		if strings.TrimSpace(item) != "" {
			paragraphs = append(paragraphs, item)
		}
	}
	return paragraphs
}

func scoreLength(text string) float64 {
	return clamp(float64(len(text)) / 8000.0)
}

func scoreParagraphDensity(text string) float64 {
	return clamp(float64(len(splitParagraphs(text))) / 18.0)
}

func scoreNoiseRatio(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0.0
	}
	noisy := 0
	for _, token := range tokens {
		if noiseMarkers[token] || strings.HasPrefix(token, "http") || strings.Contains(token, ".com") {
			noisy++
		}
	}
	ratio := float64(noisy) / float64(len(tokens))
	return clamp(1.0 - ratio*3.0)
}

func scoreTitleCoherence(title, text string) float64 {
	if title == "" {
		return 0.4
	}
	titleTokens := make(map[string]bool)
	for _, token := range tokenize(title) {
		titleTokens[token] = true
	}
	if len(titleTokens) == 0 {
		return 0.4
	}
	lead := text
	if len(lead) > 1200 {
		lead = lead[:1200]
	}
	overlap := 0
	seen := make(map[string]bool)
	for _, token := range tokenize(lead) {
		if titleTokens[token] && !seen[token] {
			overlap++
			seen[token] = true
		}
	}
	denom := len(titleTokens)
	if denom < 2 {
		denom = 2
	}
	return clamp(float64(overlap) / float64(denom))
}

func scoreLanguageContinuity(text string) float64 {
	if text == "" {
		return 0.0
	}
	letters, printable := 0, 0
	for _, ch := range text {
		if unicode.IsLetter(ch) {
			letters++
		}
		if unicode.IsPrint(ch) {
			printable++
		}
	}
	if printable < 1 {
		printable = 1
	}
	return clamp(float64(letters) / float64(printable) * 2.0)
}

func scoreDedup(text string) float64 {
	var paragraphs []string
	for _, item := range paragraphSplitPattern.Split(text, -1) {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return 0.0
	}
	unique := make(map[string]bool, len(paragraphs))
	for _, p := range paragraphs {
		unique[p] = true
	}
	return clamp(float64(len(unique)) / float64(len(paragraphs)))
}

func scoreStructureDiversity(candidate *domain.ExtractionCandidate) float64 {
	if len(candidate.Blocks) == 0 {
		return 0.25
	}
	switch types := domain.DistinctBlockTypes(candidate.Blocks); {
	case types >= 3:
		return 1.0
	case types == 2:
		return 0.7
	default:
		return 0.45
	}
}

func blockedContentPenalty(text string) float64 {
	lowered := strings.ToLower(text)
	for _, marker := range blockedMarkers {
		if strings.Contains(lowered, marker) {
			return 0.35
		}
	}
	return 0.0
}

// ScoreCandidate computes the weighted quality score and confidence for
// a candidate.
func ScoreCandidate(candidate *domain.ExtractionCandidate) ScoreResult {
	text := candidate.RawContent
	features := map[string]float64{
		"length":              scoreLength(text),
		"paragraph_density":   scoreParagraphDensity(text),
		"noise_ratio":         scoreNoiseRatio(text),
		"title_coherence":     scoreTitleCoherence(candidate.Title, text),
		"language_continuity": scoreLanguageContinuity(text),
		"deduplication":       scoreDedup(text),
		"structure_diversity": scoreStructureDiversity(candidate),
	}

	weighted := 0.20*features["length"] +
		0.15*features["paragraph_density"] +
		0.20*features["noise_ratio"] +
		0.15*features["title_coherence"] +
		0.10*features["language_continuity"] +
		0.10*features["deduplication"] +
		0.10*features["structure_diversity"]
	score := clamp(weighted - blockedContentPenalty(text))

	density := features["paragraph_density"]
	if features["length"] > density {
		density = features["length"]
	}
	confidence := clamp(0.40 + 0.45*score + 0.15*density)

	return ScoreResult{Score: score, Confidence: confidence, Features: features}
}
