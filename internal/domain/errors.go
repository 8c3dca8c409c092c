package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the pipeline's failure kinds.
var (
	ErrDisallowedURL         = errors.New("url disallowed by safety policy")
	ErrUnresolvableHost      = errors.New("host could not be resolved")
	ErrNoMatch               = errors.New("no container pattern matched")
	ErrContentTooShort       = errors.New("extracted content too short")
	ErrBinaryPayload         = errors.New("payload is binary")
	ErrBlockedPage           = errors.New("page looks blocked by anti-bot protection")
	ErrLLMUnavailable        = errors.New("llm provider unavailable")
	ErrLLMRejected           = errors.New("llm returned no acceptable rule")
	ErrExtractionFailed      = errors.New("no strategy produced a candidate")
	ErrQualityBelowThreshold = errors.New("best candidate below minimum quality")
)

// FetchError carries the per-attempt error trail after all transport
// attempts failed.
type FetchError struct {
	URL      string
	Attempts []string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %s", e.URL, strings.Join(e.Attempts, "; "))
}

// StrategyError records why one strategy rejected the request. Err is a
// sentinel from this package when the failure maps onto a known kind.
type StrategyError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *StrategyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
	}
	return e.Strategy + ": extraction failed"
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// NewStrategyError builds a StrategyError wrapping a sentinel.
func NewStrategyError(strategy string, err error, reason string) *StrategyError {
	return &StrategyError{Strategy: strategy, Reason: reason, Err: err}
}

// ExtractionFailedError is the terminal error when no strategy produced
// any candidate. Reasons holds one entry per failed strategy.
type ExtractionFailedError struct {
	URL     string
	Reasons []string
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, strings.Join(e.Reasons, " | "))
}

func (e *ExtractionFailedError) Unwrap() error {
	return ErrExtractionFailed
}

// QualityError is the terminal error when the best candidate scored
// under the publishable minimum.
type QualityError struct {
	URL     string
	Score   float64
	Minimum float64
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("best candidate for %s scored %.2f, below minimum %.2f", e.URL, e.Score, e.Minimum)
}

func (e *QualityError) Unwrap() error {
	return ErrQualityBelowThreshold
}
