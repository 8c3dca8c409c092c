package fetcher

import "strings"

var blockedPageMarkers = []string{
	"captcha",
	"verify you are human",
	"access denied",
	"request blocked",
	"cloudflare",
	"robot check",
	"are you a robot",
}

// LooksBlocked reports whether an HTML payload resembles an anti-bot
// interstitial rather than real content.
func LooksBlocked(payload, contentType string) bool {
	lowered := strings.ToLower(payload)
	if !strings.Contains(contentType, "text/html") && !strings.Contains(lowered, "<html") {
		return false
	}
	for _, marker := range blockedPageMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

var binaryContentTypePrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"font/",
}

var binaryContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/octet-stream": true,
	"application/zip":          true,
	"application/gzip":         true,
	"application/x-gzip":       true,
	"application/x-tar":        true,
	"application/msword":       true,
	"application/vnd.ms-excel": true,
}

// IsBinaryContentType reports whether a content type denotes a payload
// text strategies must not process. Structured text types (json, xml)
// are not binary.
func IsBinaryContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if ct == "" {
		return false
	}
	if binaryContentTypes[ct] {
		return true
	}
	for _, prefix := range binaryContentTypePrefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	if strings.HasPrefix(ct, "application/vnd.") {
		return true
	}
	return false
}

// pdfMagic is the signature PDF bodies start with.
const pdfMagic = "%PDF-"

// HasPDFMagic reports whether the body starts with the PDF signature.
func HasPDFMagic(body []byte) bool {
	return len(body) >= len(pdfMagic) && string(body[:len(pdfMagic)]) == pdfMagic
}
