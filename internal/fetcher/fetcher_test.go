package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(DefaultClientOptions())
	require.NoError(t, err)
	return client
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Custom", "value")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	page, err := newTestClient(t).Fetch(context.Background(), server.URL, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, server.URL, page.RequestedURL)
	assert.Equal(t, 200, page.StatusCode)
	assert.Contains(t, page.Payload, "hello")
	assert.Contains(t, page.ContentType, "text/html")
	// response header keys are lower-cased
	assert.Equal(t, "value", page.Headers["x-custom"])
}

func TestFetchFallbackProfileAfterError(t *testing.T) {
	var calls atomic.Int32
	var userAgents [2]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		userAgents[n-1] = r.Header.Get("User-Agent")
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>second attempt</html>"))
	}))
	defer server.Close()

	page, err := newTestClient(t).Fetch(context.Background(), server.URL, 5*time.Second)
	require.NoError(t, err)

	assert.Contains(t, page.Payload, "second attempt")
	assert.Equal(t, int32(2), calls.Load())
	assert.NotEqual(t, userAgents[0], userAgents[1])
}

func TestFetchAllAttemptsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(t).Fetch(context.Background(), server.URL, 5*time.Second)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Len(t, fetchErr.Attempts, 2)
	assert.Contains(t, fetchErr.Attempts[0], "attempt=1")
	assert.Contains(t, fetchErr.Attempts[1], "HTTP 403")
}

func TestFetchPDFMagicOverridesContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("%PDF-1.7 binary things"))
	}))
	defer server.Close()

	page, err := newTestClient(t).Fetch(context.Background(), server.URL, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", page.ContentType)
	assert.Empty(t, page.Payload)
}

func TestFetchBinaryContentTypeSuppressesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	defer server.Close()

	page, err := newTestClient(t).Fetch(context.Background(), server.URL, 5*time.Second)
	require.NoError(t, err)

	assert.Empty(t, page.Payload)
	assert.Equal(t, "image/png", page.ContentType)
}

func TestFetchFollowsRedirects(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>landed</html>"))
	}))
	defer target.Close()

	page, err := newTestClient(t).Fetch(context.Background(), target.URL+"/start", 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, target.URL+"/start", page.RequestedURL)
	assert.Equal(t, target.URL+"/final", page.FinalURL)
}

func TestLooksBlocked(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		contentType string
		want        bool
	}{
		{name: "captcha page", payload: "<html>please solve this CAPTCHA</html>", contentType: "text/html", want: true},
		{name: "cloudflare interstitial", payload: "<html>Checking... cloudflare</html>", contentType: "text/html", want: true},
		{name: "robot question", payload: "<html>are you a robot?</html>", contentType: "text/html", want: true},
		{name: "clean page", payload: "<html>an article</html>", contentType: "text/html", want: false},
		{name: "non-html json", payload: `{"captcha": true}`, contentType: "application/json", want: false},
		{name: "html sniffed without content type", payload: "<html>access denied</html>", contentType: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksBlocked(tt.payload, tt.contentType))
		})
	}
}

func TestIsBinaryContentType(t *testing.T) {
	assert.True(t, IsBinaryContentType("application/pdf"))
	assert.True(t, IsBinaryContentType("image/png"))
	assert.True(t, IsBinaryContentType("application/octet-stream; charset=binary"))
	assert.True(t, IsBinaryContentType("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
	assert.False(t, IsBinaryContentType("text/html; charset=utf-8"))
	assert.False(t, IsBinaryContentType("application/json"))
	assert.False(t, IsBinaryContentType(""))
}

func TestDecodePayloadLatin1(t *testing.T) {
	// "café" in ISO-8859-1
	body := []byte{'c', 'a', 'f', 0xe9}
	decoded := DecodePayload(body, "text/html; charset=iso-8859-1")
	assert.Equal(t, "café", decoded)
}

func TestDecodePayloadUTF8Passthrough(t *testing.T) {
	assert.Equal(t, "héllo", DecodePayload([]byte("héllo"), "text/html; charset=utf-8"))
	assert.Equal(t, "", DecodePayload(nil, "text/html"))
}
