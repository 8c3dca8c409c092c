package domain

import (
	"context"
	"time"
)

// Fetcher retrieves one page. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchedPage, error)
}

// Strategy is one extraction approach. Extract either returns a
// candidate or an error describing why the strategy does not apply.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, ec *ExtractionContext) (*ExtractionCandidate, error)
}

// LLMProvider is a minimal completion client.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// RuleSynthesizer produces a host-specific extraction rule, or nil when
// the oracle cannot supply an acceptable one. Transient failures return
// (nil, nil) so callers degrade instead of aborting.
type RuleSynthesizer interface {
	Synthesize(ctx context.Context, host, url, htmlSample string) (*AdaptiveRule, error)
}
