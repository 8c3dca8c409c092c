package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Extraction defaults
	DefaultAcceptanceThreshold    = 0.78
	DefaultMinimumAcceptableScore = 0.55
	DefaultExtractionTimeout      = 30 * time.Second
	DefaultMaxChars               = 120000

	// Adaptive rule synthesis defaults
	DefaultAdaptiveEnabled = true
	DefaultAdaptiveModel   = "gemini-2.5-flash"
	DefaultAdaptiveTimeout = 20 * time.Second
	DefaultMaxHTMLChars    = 80000
	DefaultMinConfidence   = 0.45
	DefaultCacheSize       = 200
	DefaultCacheTTL        = 24 * time.Hour

	// Promotion defaults
	DefaultPromotionEnabled        = true
	DefaultPromotionMinSamples     = 3
	DefaultPromotionMaxSamples     = 6
	DefaultPromotionMinSuccessRate = 0.80
	DefaultPromotionMinAvgScore    = 0.72
	DefaultPromotionMinSampleScore = 0.60

	// State defaults
	DefaultRuleStorePath = ".state/webextract_rules.json"

	// LLM defaults
	DefaultLLMProvider = "google"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// DefaultAllowedPrivateCIDRs lists private ranges treated as public for
// benchmark and lab deployments.
var DefaultAllowedPrivateCIDRs = []string{"198.18.0.0/15"}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webextract"
	}
	return filepath.Join(home, ".webextract")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			AcceptanceThreshold:    DefaultAcceptanceThreshold,
			MinimumAcceptableScore: DefaultMinimumAcceptableScore,
			Timeout:                DefaultExtractionTimeout,
			MaxChars:               DefaultMaxChars,
		},
		Adaptive: AdaptiveConfig{
			Enabled:       DefaultAdaptiveEnabled,
			Model:         DefaultAdaptiveModel,
			Timeout:       DefaultAdaptiveTimeout,
			MaxHTMLChars:  DefaultMaxHTMLChars,
			MinConfidence: DefaultMinConfidence,
			CacheSize:     DefaultCacheSize,
			CacheTTL:      DefaultCacheTTL,
		},
		Promotion: PromotionConfig{
			Enabled:        DefaultPromotionEnabled,
			MinSamples:     DefaultPromotionMinSamples,
			MaxSamples:     DefaultPromotionMaxSamples,
			MinSuccessRate: DefaultPromotionMinSuccessRate,
			MinAvgScore:    DefaultPromotionMinAvgScore,
			MinSampleScore: DefaultPromotionMinSampleScore,
		},
		Safety: SafetyConfig{
			AllowedPrivateCIDRs: DefaultAllowedPrivateCIDRs,
		},
		State: StateConfig{
			RuleStorePath: DefaultRuleStorePath,
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
