package strategies

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/webextract-go/internal/adapters"
	"github.com/quantmind-br/webextract-go/internal/domain"
)

type fakeFetcher struct {
	page  *domain.FetchedPage
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*domain.FetchedPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

func htmlPage(finalURL, body string) *domain.FetchedPage {
	return &domain.FetchedPage{
		RequestedURL: finalURL,
		FinalURL:     finalURL,
		ContentType:  "text/html; charset=utf-8",
		Payload:      body,
		StatusCode:   200,
	}
}

func newExtractionContext(url string) *domain.ExtractionContext {
	return domain.NewExtractionContext(url, "task-1", 10*time.Second, 120000)
}

func articleSentences(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Paragraph %d explains how the extraction pipeline selects its container. ", i+1)
	}
	return strings.TrimSpace(sb.String())
}

func TestEnsurePageFetchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{page: htmlPage("https://example.com/a", "<html><body><p>x</p></body></html>")}
	ec := newExtractionContext("https://example.com/a")

	first, err := ensurePage(context.Background(), fetcher, ec)
	require.NoError(t, err)
	second, err := ensurePage(context.Background(), fetcher, ec)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.calls)
}

func TestEnsurePagePropagatesFetchError(t *testing.T) {
	fetchErr := &domain.FetchError{URL: "https://example.com", Attempts: []string{"attempt=1: HTTP 503"}}
	fetcher := &fakeFetcher{err: fetchErr}
	ec := newExtractionContext("https://example.com")

	_, err := ensurePage(context.Background(), fetcher, ec)
	require.Error(t, err)
	assert.ErrorContains(t, err, "HTTP 503")
	assert.Nil(t, ec.Page)
}

func TestClampProviderTimeout(t *testing.T) {
	assert.Equal(t, 6*time.Second, clampProviderTimeout(time.Second))
	assert.Equal(t, 10*time.Second, clampProviderTimeout(10*time.Second))
	assert.Equal(t, 20*time.Second, clampProviderTimeout(45*time.Second))
}

func TestDomainAdapterStrategyExtractsMediumArticle(t *testing.T) {
	body := "<html><head><title>A Medium Story</title></head><body><article>" +
		"<p>" + articleSentences(6) + "</p><p>Sign up</p>" +
		"</article></body></html>"
	fetcher := &fakeFetcher{page: htmlPage("https://blog.medium.com/a-story", body)}
	strategy := NewDomainAdapterStrategy(fetcher, adapters.NewRegistry(nil, nil), nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://blog.medium.com/a-story"))
	require.NoError(t, err)

	assert.Equal(t, "domain_adapter", candidate.StrategyName)
	assert.Equal(t, "A Medium Story", candidate.Title)
	assert.Equal(t, "medium", candidate.ExtractionMeta["adapter_name"])
	assert.Equal(t, "blog.medium.com", candidate.ExtractionMeta["host"])
	assert.Contains(t, candidate.RawContent, "Paragraph 1")
	assert.NotContains(t, candidate.RawContent, "Sign up")
	assert.NotEmpty(t, candidate.Blocks)
}

func TestDomainAdapterStrategyNoAdapterForHost(t *testing.T) {
	fetcher := &fakeFetcher{page: htmlPage("https://unknown.example.com/x", "<html><body></body></html>")}
	strategy := NewDomainAdapterStrategy(fetcher, adapters.NewRegistry(nil, nil), nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://unknown.example.com/x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no domain adapter")
}

func TestDomainAdapterStrategyNoMatchingContainer(t *testing.T) {
	fetcher := &fakeFetcher{page: htmlPage("https://blog.medium.com/x", "<html><body><div>nothing</div></body></html>")}
	strategy := NewDomainAdapterStrategy(fetcher, adapters.NewRegistry(nil, nil), nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://blog.medium.com/x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestJSONLDStrategyPicksLongestBody(t *testing.T) {
	short := `{"@type":"Article","headline":"Ignored","articleBody":"too short"}`
	long := fmt.Sprintf(`{"@type":"Article","headline":"Chosen Headline","articleBody":%q}`, articleSentences(5))
	body := "<html><head><title>Fallback</title>" +
		`<script type="application/ld+json">` + short + `</script>` +
		`<script type="application/ld+json">` + long + `</script>` +
		"</head><body></body></html>"
	fetcher := &fakeFetcher{page: htmlPage("https://news.example.com/item", body)}
	strategy := NewJSONLDStrategy(fetcher, nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://news.example.com/item"))
	require.NoError(t, err)
	assert.Equal(t, "json_ld", candidate.StrategyName)
	assert.Equal(t, "Ignored", candidate.Title)
	assert.Contains(t, candidate.RawContent, "Paragraph 1")
	assert.Equal(t, "news.example.com", candidate.ExtractionMeta["host"])
}

func TestJSONLDStrategyFindsNestedBody(t *testing.T) {
	nested := fmt.Sprintf(`[{"@graph":[{"@type":"NewsArticle","name":"Nested","mainEntity":{"text":%q}}]}]`, articleSentences(5))
	body := `<html><head><script type="application/ld+json">` + nested + `</script></head><body></body></html>`
	fetcher := &fakeFetcher{page: htmlPage("https://news.example.com/nested", body)}
	strategy := NewJSONLDStrategy(fetcher, nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://news.example.com/nested"))
	require.NoError(t, err)
	assert.Contains(t, candidate.RawContent, "Paragraph 2")
}

func TestJSONLDStrategyToleratesMalformedScripts(t *testing.T) {
	long := fmt.Sprintf(`{"headline":"Valid","articleBody":%q}`, articleSentences(5))
	body := `<html><head>` +
		`<script type="application/ld+json">{not json</script>` +
		`<script type="application/ld+json">` + long + `</script>` +
		`</head><body></body></html>`
	fetcher := &fakeFetcher{page: htmlPage("https://news.example.com/mixed", body)}
	strategy := NewJSONLDStrategy(fetcher, nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://news.example.com/mixed"))
	require.NoError(t, err)
	assert.Equal(t, "Valid", candidate.Title)
}

func TestJSONLDStrategyNoPayload(t *testing.T) {
	fetcher := &fakeFetcher{page: htmlPage("https://news.example.com/plain", "<html><body><p>hi</p></body></html>")}
	strategy := NewJSONLDStrategy(fetcher, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://news.example.com/plain"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON-LD payload")
}

func TestHTTPReadabilityStrategyExtractsArticle(t *testing.T) {
	body := "<html><head><title>Readable Page</title>" +
		`<link rel="canonical" href="https://example.com/canonical">` +
		"</head><body><article><p>" + articleSentences(6) + "</p></article></body></html>"
	fetcher := &fakeFetcher{page: htmlPage("https://example.com/page", body)}
	strategy := NewHTTPReadabilityStrategy(fetcher, nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://example.com/page"))
	require.NoError(t, err)
	assert.Equal(t, "http_readability", candidate.StrategyName)
	assert.Equal(t, "Readable Page", candidate.Title)
	assert.Equal(t, "https://example.com/canonical", candidate.CanonicalURL)
	assert.Contains(t, candidate.RawContent, "Paragraph 1")
}

func TestHTTPReadabilityStrategyPlainText(t *testing.T) {
	page := &domain.FetchedPage{
		FinalURL:    "https://example.com/notes.txt",
		ContentType: "text/plain",
		Payload:     articleSentences(6),
		StatusCode:  200,
	}
	strategy := NewHTTPReadabilityStrategy(&fakeFetcher{page: page}, nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext("https://example.com/notes.txt"))
	require.NoError(t, err)
	assert.Empty(t, candidate.Title)
	assert.Equal(t, "https://example.com/notes.txt", candidate.CanonicalURL)
	assert.Contains(t, candidate.RawContent, "Paragraph 3")
}

func TestHTTPReadabilityStrategyRejectsBinary(t *testing.T) {
	page := &domain.FetchedPage{
		FinalURL:    "https://example.com/paper.pdf",
		ContentType: "application/pdf",
		StatusCode:  200,
	}
	strategy := NewHTTPReadabilityStrategy(&fakeFetcher{page: page}, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://example.com/paper.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBinaryPayload)
}

func TestHTTPReadabilityStrategyRejectsBlockedPage(t *testing.T) {
	body := "<html><body><h1>Access denied</h1><p>Verify you are human to continue.</p></body></html>"
	strategy := NewHTTPReadabilityStrategy(&fakeFetcher{page: htmlPage("https://example.com/blocked", body)}, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://example.com/blocked"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBlockedPage)
}

func TestHTTPReadabilityStrategyRejectsShortContent(t *testing.T) {
	body := "<html><body><p>tiny</p></body></html>"
	strategy := NewHTTPReadabilityStrategy(&fakeFetcher{page: htmlPage("https://example.com/short", body)}, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://example.com/short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContentTooShort)
}

const arxivPaperHTML = `<html><head><title>Adaptive Extraction Systems</title></head><body>
<article class="ltx_document">
<h1 class="ltx_title">Adaptive Extraction Systems</h1>
<div class="ltx_para">
<p>This paper studies how layered extraction strategies trade recall against precision when parsing scholarly documents rendered to structured markup.</p>
</div>
</article>
</body></html>`

func TestArxivHTMLStrategyParsesPaper(t *testing.T) {
	url := "https://arxiv.org/html/2401.01234v1"
	fetcher := &fakeFetcher{page: htmlPage(url, arxivPaperHTML)}
	strategy := NewArxivHTMLStrategy(fetcher, nil)

	candidate, err := strategy.Extract(context.Background(), newExtractionContext(url))
	require.NoError(t, err)

	assert.Equal(t, "arxiv_html", candidate.StrategyName)
	assert.Equal(t, "Adaptive Extraction Systems", candidate.Title)
	assert.Equal(t, "arxiv.org", candidate.ExtractionMeta["host"])

	counts, ok := candidate.ExtractionMeta["block_counts"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 1, counts[domain.BlockH1])
	assert.Equal(t, 1, counts[domain.BlockParagraph])
	assert.Contains(t, candidate.RawContent, "layered extraction strategies")
}

func TestArxivHTMLStrategyRejectsNonArxivHost(t *testing.T) {
	fetcher := &fakeFetcher{}
	strategy := NewArxivHTMLStrategy(fetcher, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext("https://example.com/html/123"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an arXiv host")
	assert.Zero(t, fetcher.calls)
}

func TestArxivHTMLStrategyRejectsAbstractPath(t *testing.T) {
	url := "https://arxiv.org/abs/2401.01234"
	fetcher := &fakeFetcher{page: htmlPage(url, arxivPaperHTML)}
	strategy := NewArxivHTMLStrategy(fetcher, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext(url))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an arXiv HTML document path")
}

func TestArxivHTMLStrategyRejectsBinaryPayload(t *testing.T) {
	url := "https://arxiv.org/html/2401.01234v1"
	page := &domain.FetchedPage{FinalURL: url, ContentType: "application/pdf", StatusCode: 200}
	strategy := NewArxivHTMLStrategy(&fakeFetcher{page: page}, nil)

	_, err := strategy.Extract(context.Background(), newExtractionContext(url))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBinaryPayload)
}

func TestChainOrder(t *testing.T) {
	chain := Chain(Dependencies{Registry: adapters.NewRegistry(nil, nil)})
	var names []string
	for _, strategy := range chain {
		names = append(names, strategy.Name())
	}
	assert.Equal(t, []string{
		"x_status_api",
		"domain_adapter",
		"arxiv_html",
		"json_ld",
		"http_readability",
		"llm_adaptive",
	}, names)
}

func TestStrategyErrorReasonSurfaces(t *testing.T) {
	err := domain.NewStrategyError("json_ld", domain.ErrContentTooShort, "JSON-LD content too short")
	assert.True(t, errors.Is(err, domain.ErrContentTooShort))
	assert.Equal(t, "json_ld: JSON-LD content too short", err.Error())
}
