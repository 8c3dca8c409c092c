package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

type googleRequest struct {
	Contents         []googleContent  `json:"contents"`
	GenerationConfig *googleGenConfig `json:"generationConfig,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GoogleProvider calls the Gemini generateContent endpoint. Responses
// are requested as JSON since the only consumer is rule synthesis.
type GoogleProvider struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
}

func NewGoogleProvider(cfg ProviderConfig, httpClient *http.Client) (*GoogleProvider, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGoogleBaseURL
	}

	return &GoogleProvider{
		httpClient:  httpClient,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) Complete(ctx context.Context, prompt string) (string, error) {
	googleReq := googleRequest{
		Contents: []googleContent{
			{Role: "user", Parts: []googlePart{{Text: prompt}}},
		},
		GenerationConfig: &googleGenConfig{
			Temperature:      p.temperature,
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(googleReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: google request failed: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var googleResp googleResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(respBody, &googleResp) == nil && googleResp.Error != nil {
			return "", fmt.Errorf("%w: google error %d: %s",
				domain.ErrLLMUnavailable, googleResp.Error.Code, googleResp.Error.Message)
		}
		return "", fmt.Errorf("%w: google HTTP %d", domain.ErrLLMUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, &googleResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if googleResp.Error != nil {
		return "", fmt.Errorf("%w: google error %d: %s",
			domain.ErrLLMUnavailable, googleResp.Error.Code, googleResp.Error.Message)
	}
	if len(googleResp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", domain.ErrLLMUnavailable)
	}

	var sb strings.Builder
	for _, part := range googleResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
