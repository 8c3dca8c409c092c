package fetcher

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DecodePayload converts a response body to a UTF-8 string using the
// Content-Type charset hint and byte-level detection. Undecodable
// bodies come back as-is.
func DecodePayload(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}

	name := charsetFromContentType(contentType)
	if name == "" {
		_, name, _ = charset.DetermineEncoding(body, contentType)
	}

	if name == "" || name == "utf-8" || name == "utf8" {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil || !utf8.Valid(decoded) {
		return string(body)
	}
	return string(decoded)
}

func charsetFromContentType(contentType string) string {
	lowered := strings.ToLower(contentType)
	idx := strings.Index(lowered, "charset=")
	if idx < 0 {
		return ""
	}
	value := lowered[idx+len("charset="):]
	value = strings.Trim(value, `"' `)
	if end := strings.IndexAny(value, `;"' `); end >= 0 {
		value = value[:end]
	}
	return strings.TrimSpace(value)
}
