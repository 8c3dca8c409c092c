package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults
func Load() (*Config, error) {
	cfg, _, err := LoadWithViper()
	return cfg, err
}

// LoadWithViper loads configuration and returns the viper instance
// so callers can merge CLI flags afterwards
func LoadWithViper() (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Ignore a missing config file; anything else is a real error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
	}

	// Environment variables (WEBEXTRACT_*)
	v.SetEnvPrefix("WEBEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Extraction defaults
	v.SetDefault("extraction.acceptance_threshold", DefaultAcceptanceThreshold)
	v.SetDefault("extraction.minimum_acceptable_score", DefaultMinimumAcceptableScore)
	v.SetDefault("extraction.timeout", DefaultExtractionTimeout)
	v.SetDefault("extraction.max_chars", DefaultMaxChars)

	// Adaptive defaults
	v.SetDefault("adaptive.enabled", DefaultAdaptiveEnabled)
	v.SetDefault("adaptive.model", DefaultAdaptiveModel)
	v.SetDefault("adaptive.timeout", DefaultAdaptiveTimeout)
	v.SetDefault("adaptive.max_html_chars", DefaultMaxHTMLChars)
	v.SetDefault("adaptive.min_confidence", DefaultMinConfidence)
	v.SetDefault("adaptive.cache_size", DefaultCacheSize)
	v.SetDefault("adaptive.cache_ttl", DefaultCacheTTL)

	// Promotion defaults
	v.SetDefault("promotion.enabled", DefaultPromotionEnabled)
	v.SetDefault("promotion.min_samples", DefaultPromotionMinSamples)
	v.SetDefault("promotion.max_samples", DefaultPromotionMaxSamples)
	v.SetDefault("promotion.min_success_rate", DefaultPromotionMinSuccessRate)
	v.SetDefault("promotion.min_avg_score", DefaultPromotionMinAvgScore)
	v.SetDefault("promotion.min_sample_score", DefaultPromotionMinSampleScore)

	// Safety defaults
	v.SetDefault("safety.allowed_private_cidrs", DefaultAllowedPrivateCIDRs)

	// State defaults
	v.SetDefault("state.rule_store_path", DefaultRuleStorePath)

	// LLM defaults
	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	// Adapter overlay defaults
	v.SetDefault("adapters.overlay_path", "")

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}
