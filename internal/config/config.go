package config

import (
	"time"
)

// Config represents the application configuration
type Config struct {
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Adaptive   AdaptiveConfig   `mapstructure:"adaptive" yaml:"adaptive"`
	Promotion  PromotionConfig  `mapstructure:"promotion" yaml:"promotion"`
	Safety     SafetyConfig     `mapstructure:"safety" yaml:"safety"`
	State      StateConfig      `mapstructure:"state" yaml:"state"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Adapters   AdaptersConfig   `mapstructure:"adapters" yaml:"adapters"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ExtractionConfig contains orchestrator settings
type ExtractionConfig struct {
	AcceptanceThreshold    float64       `mapstructure:"acceptance_threshold" yaml:"acceptance_threshold"`
	MinimumAcceptableScore float64       `mapstructure:"minimum_acceptable_score" yaml:"minimum_acceptable_score"`
	Timeout                time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxChars               int           `mapstructure:"max_chars" yaml:"max_chars"`
}

// AdaptiveConfig contains LLM rule synthesis settings
type AdaptiveConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Model         string        `mapstructure:"model" yaml:"model"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxHTMLChars  int           `mapstructure:"max_html_chars" yaml:"max_html_chars"`
	MinConfidence float64       `mapstructure:"min_confidence" yaml:"min_confidence"`
	CacheSize     int           `mapstructure:"cache_size" yaml:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// PromotionConfig gates when a generated rule becomes a promoted adapter
type PromotionConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	MinSamples     int     `mapstructure:"min_samples" yaml:"min_samples"`
	MaxSamples     int     `mapstructure:"max_samples" yaml:"max_samples"`
	MinSuccessRate float64 `mapstructure:"min_success_rate" yaml:"min_success_rate"`
	MinAvgScore    float64 `mapstructure:"min_avg_score" yaml:"min_avg_score"`
	MinSampleScore float64 `mapstructure:"min_sample_score" yaml:"min_sample_score"`
}

// SafetyConfig contains URL guard settings
type SafetyConfig struct {
	AllowedPrivateCIDRs []string `mapstructure:"allowed_private_cidrs" yaml:"allowed_private_cidrs"`
}

// StateConfig contains persistent state settings
type StateConfig struct {
	RuleStorePath string `mapstructure:"rule_store_path" yaml:"rule_store_path"`
}

// LLMConfig contains LLM provider settings
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

// AdaptersConfig contains domain adapter overlay settings
type AdaptersConfig struct {
	OverlayPath string `mapstructure:"overlay_path" yaml:"overlay_path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration and clamps invalid values
func (c *Config) Validate() error {
	if c.Extraction.AcceptanceThreshold <= 0 || c.Extraction.AcceptanceThreshold > 1 {
		c.Extraction.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if c.Extraction.MinimumAcceptableScore <= 0 || c.Extraction.MinimumAcceptableScore > 1 {
		c.Extraction.MinimumAcceptableScore = DefaultMinimumAcceptableScore
	}
	if c.Extraction.Timeout < time.Second {
		c.Extraction.Timeout = DefaultExtractionTimeout
	}
	if c.Extraction.MaxChars < 1000 {
		c.Extraction.MaxChars = DefaultMaxChars
	}
	if c.Adaptive.Model == "" {
		c.Adaptive.Model = DefaultAdaptiveModel
	}
	if c.Adaptive.Timeout < time.Second {
		c.Adaptive.Timeout = DefaultAdaptiveTimeout
	}
	if c.Adaptive.MaxHTMLChars < 1000 {
		c.Adaptive.MaxHTMLChars = DefaultMaxHTMLChars
	}
	if c.Adaptive.MinConfidence <= 0 || c.Adaptive.MinConfidence > 1 {
		c.Adaptive.MinConfidence = DefaultMinConfidence
	}
	if c.Adaptive.CacheSize < 1 {
		c.Adaptive.CacheSize = DefaultCacheSize
	}
	if c.Adaptive.CacheTTL < time.Minute {
		c.Adaptive.CacheTTL = DefaultCacheTTL
	}
	if c.Promotion.MinSamples < 1 {
		c.Promotion.MinSamples = DefaultPromotionMinSamples
	}
	if c.Promotion.MaxSamples < c.Promotion.MinSamples {
		c.Promotion.MaxSamples = DefaultPromotionMaxSamples
	}
	if c.Promotion.MinSuccessRate <= 0 || c.Promotion.MinSuccessRate > 1 {
		c.Promotion.MinSuccessRate = DefaultPromotionMinSuccessRate
	}
	if c.Promotion.MinAvgScore <= 0 || c.Promotion.MinAvgScore > 1 {
		c.Promotion.MinAvgScore = DefaultPromotionMinAvgScore
	}
	if c.Promotion.MinSampleScore <= 0 || c.Promotion.MinSampleScore > 1 {
		c.Promotion.MinSampleScore = DefaultPromotionMinSampleScore
	}
	if c.State.RuleStorePath == "" {
		c.State.RuleStorePath = DefaultRuleStorePath
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultLLMProvider
	}
	return nil
}
