// Package strategies implements the ordered extraction approaches the
// orchestrator runs against a URL: the X status proxy APIs, host
// adapters, the arXiv structural parser, JSON-LD, generic readability,
// and the LLM adaptive rule engine.
package strategies

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quantmind-br/webextract-go/internal/adapters"
	"github.com/quantmind-br/webextract-go/internal/adaptive"
	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// minContentChars is the uniform floor under which extracted content is
// rejected as unusable.
const minContentChars = 120

// Dependencies bundles the collaborators shared across strategies.
type Dependencies struct {
	Fetcher      domain.Fetcher
	Registry     *adapters.Registry
	Engine       *adaptive.Engine
	Logger       *utils.Logger
	StatusClient *http.Client
}

func (d *Dependencies) logger() *utils.Logger {
	if d.Logger == nil {
		return utils.NewNopLogger()
	}
	return d.Logger
}

// Chain returns the strategies in execution order.
func Chain(deps Dependencies) []domain.Strategy {
	logger := deps.logger()
	return []domain.Strategy{
		NewXStatusStrategy(deps.StatusClient, logger),
		NewDomainAdapterStrategy(deps.Fetcher, deps.Registry, logger),
		NewArxivHTMLStrategy(deps.Fetcher, logger),
		NewJSONLDStrategy(deps.Fetcher, logger),
		NewHTTPReadabilityStrategy(deps.Fetcher, logger),
		NewLLMAdaptiveStrategy(deps.Fetcher, deps.Engine, logger),
	}
}

// ensurePage fetches the page once per extraction context; later
// strategies reuse the shared result.
func ensurePage(ctx context.Context, fetcher domain.Fetcher, ec *domain.ExtractionContext) (*domain.FetchedPage, error) {
	if ec.Page != nil {
		return ec.Page, nil
	}
	page, err := fetcher.Fetch(ctx, ec.URL, ec.Timeout)
	if err != nil {
		return nil, err
	}
	ec.Page = page
	return page, nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

func finalURLOf(page *domain.FetchedPage, ec *domain.ExtractionContext) string {
	if page.FinalURL != "" {
		return page.FinalURL
	}
	return ec.URL
}

func truncateContent(content string, maxChars int) string {
	if maxChars > 0 && len(content) > maxChars {
		return content[:maxChars]
	}
	return content
}

// clampProviderTimeout bounds per-provider JSON API calls to a window
// independent of the overall extraction budget.
func clampProviderTimeout(budget time.Duration) time.Duration {
	const (
		floor   = 6 * time.Second
		ceiling = 20 * time.Second
	)
	if budget > ceiling {
		budget = ceiling
	}
	if budget < floor {
		budget = floor
	}
	return budget
}
