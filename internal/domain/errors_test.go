package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyErrorUnwrapsSentinel(t *testing.T) {
	err := NewStrategyError("http_readability", ErrBlockedPage, "page looks blocked")

	assert.True(t, errors.Is(err, ErrBlockedPage))
	assert.Contains(t, err.Error(), "http_readability")
	assert.Contains(t, err.Error(), "page looks blocked")

	var serr *StrategyError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "http_readability", serr.Strategy)
}

func TestExtractionFailedErrorJoinsReasons(t *testing.T) {
	err := &ExtractionFailedError{
		URL:     "https://example.com",
		Reasons: []string{"a: no match", "b: too short"},
	}

	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assert.Contains(t, err.Error(), "a: no match | b: too short")
}

func TestQualityError(t *testing.T) {
	err := &QualityError{URL: "https://example.com", Score: 0.41, Minimum: 0.55}

	assert.True(t, errors.Is(err, ErrQualityBelowThreshold))
	assert.Contains(t, err.Error(), "0.41")
}

func TestFetchErrorTrail(t *testing.T) {
	err := &FetchError{URL: "https://example.com", Attempts: []string{"timeout", "status 503"}}
	assert.Contains(t, err.Error(), "timeout; status 503")
}
