// Package fetcher retrieves pages over a stealth TLS client with a
// primary and fallback UA profile.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/cenkalti/backoff/v4"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// Client fetches pages with tls-client. It is stateless across fetches
// and safe for concurrent use.
type Client struct {
	tlsClient tls_client.HttpClient
	logger    *utils.Logger
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout  time.Duration
	ProxyURL string
	Logger   *utils.Logger
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout: 30 * time.Second,
	}
}

// NewClient creates a new stealth HTTP client
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	// Client-level timeout stays generous; the per-fetch budget is
	// enforced through the request context.
	tlsTimeout := opts.Timeout * 3
	if tlsTimeout < time.Minute {
		tlsTimeout = time.Minute
	}

	tlsOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(tlsTimeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_131),
		tls_client.WithRandomTLSExtensionOrder(),
	}
	if opts.ProxyURL != "" {
		tlsOpts = append(tlsOpts, tls_client.WithProxyUrl(opts.ProxyURL))
	}

	tlsClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), tlsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}

	return &Client{
		tlsClient: tlsClient,
		logger:    opts.Logger.WithComponent("fetcher"),
	}, nil
}

// Fetch performs a GET with up to one attempt per UA profile, pausing
// briefly between attempts. The last failure carries the full error
// trail.
func (c *Client) Fetch(ctx context.Context, url string, timeout time.Duration) (*domain.FetchedPage, error) {
	pause := backoff.NewExponentialBackOff()
	pause.InitialInterval = 150 * time.Millisecond
	pause.Multiplier = 2.0
	pause.RandomizationFactor = 0
	pause.Reset()

	var attemptErrors []string
	for attempt, headers := range headerProfiles {
		page, err := c.doRequest(ctx, url, timeout, headers)
		if err == nil {
			return page, nil
		}
		attemptErrors = append(attemptErrors, fmt.Sprintf("attempt=%d: %v", attempt+1, err))
		c.logger.WithURL(url).Warn().
			Int("attempt", attempt+1).
			Err(err).
			Msg("fetch attempt failed")

		select {
		case <-time.After(pause.NextBackOff()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &domain.FetchError{URL: url, Attempts: attemptErrors}
}

func (c *Client) doRequest(ctx context.Context, targetURL string, timeout time.Duration, headers map[string]string) (*domain.FetchedPage, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := fhttp.NewRequestWithContext(reqCtx, fhttp.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.tlsClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	responseHeaders := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[strings.ToLower(key)] = values[0]
		}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	payload := ""
	switch {
	case HasPDFMagic(body):
		contentType = "application/pdf"
	case IsBinaryContentType(contentType):
		// binary bodies stay out of the text pipeline
	default:
		payload = DecodePayload(body, contentType)
	}

	return &domain.FetchedPage{
		RequestedURL: targetURL,
		FinalURL:     finalURL,
		ContentType:  contentType,
		Payload:      payload,
		StatusCode:   resp.StatusCode,
		Headers:      responseHeaders,
	}, nil
}
