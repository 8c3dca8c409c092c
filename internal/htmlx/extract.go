package htmlx

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var (
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	canonicalPattern = regexp.MustCompile(`(?i)<link[^>]+rel=["']canonical["'][^>]*href=["']([^"']+)["']`)
	jsonLDPattern    = regexp.MustCompile(`(?is)<script[^>]+type=["']application/ld\+json["'][^>]*>(.*?)</script>`)

	articlePattern   = regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`)
	mainPattern      = regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`)
	bodyPattern      = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	paragraphPattern = regexp.MustCompile(`(?is)<p[^>]*>.*?</p>`)

	arxivHTMLPathPattern      = regexp.MustCompile(`(?i)^/html/([^/?#]+)$`)
	arxivHTMLReferencePattern = regexp.MustCompile(`(?i)/html/([^"'\s<>?#]+)`)
	arxivVersionSuffixPattern = regexp.MustCompile(`(?i)v\d+$`)
)

// ExtractTitle returns the first <title> text, whitespace-normalized,
// or "" when the page has none.
func ExtractTitle(pageHTML string) string {
	match := titlePattern.FindStringSubmatch(pageHTML)
	if match == nil {
		return ""
	}
	return NormalizeWhitespace(html.UnescapeString(match[1]))
}

func resolveURLWithoutFragment(rawURL, fallbackURL string) string {
	base := strings.TrimSpace(fallbackURL)
	if base == "" {
		base = strings.TrimSpace(rawURL)
	}
	target := strings.TrimSpace(rawURL)
	if target == "" {
		target = fallbackURL
	}

	parsedBase, err := url.Parse(base)
	if err != nil {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return target
	}
	resolved := parsedBase.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

func normalizeArxivCanonicalURL(pageHTML, fallbackURL string) string {
	parsed, err := url.Parse(fallbackURL)
	if err != nil {
		return fallbackURL
	}
	host := strings.ToLower(strings.TrimSpace(parsed.Host))
	if host != "arxiv.org" && !strings.HasSuffix(host, ".arxiv.org") {
		return fallbackURL
	}

	pathMatch := arxivHTMLPathPattern.FindStringSubmatch(parsed.Path)
	if pathMatch == nil {
		return fallbackURL
	}
	identifier := strings.TrimSpace(pathMatch[1])
	if identifier == "" {
		return fallbackURL
	}

	if arxivVersionSuffixPattern.MatchString(identifier) {
		return (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: parsed.Path}).String()
	}

	baseIdentifier := arxivVersionSuffixPattern.ReplaceAllString(identifier, "")
	for _, match := range arxivHTMLReferencePattern.FindAllStringSubmatch(pageHTML, -1) {
		candidate := strings.TrimSpace(match[1])
		if candidate == "" {
			continue
		}
		if arxivVersionSuffixPattern.ReplaceAllString(candidate, "") != baseIdentifier {
			continue
		}
		if !arxivVersionSuffixPattern.MatchString(candidate) {
			continue
		}
		return (&url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/html/" + candidate}).String()
	}

	return fallbackURL
}

// ExtractCanonicalURL returns the page's canonical URL: the
// <link rel=canonical> href joined against the fallback with the
// fragment removed, upgraded to a versioned identifier for arXiv
// /html/<id> pages when the body names one.
func ExtractCanonicalURL(pageHTML, fallbackURL string) string {
	var resolved string
	if match := canonicalPattern.FindStringSubmatch(pageHTML); match != nil {
		value := strings.TrimSpace(match[1])
		if value == "" {
			value = fallbackURL
		}
		resolved = resolveURLWithoutFragment(value, fallbackURL)
	} else {
		resolved = resolveURLWithoutFragment(fallbackURL, fallbackURL)
	}
	return normalizeArxivCanonicalURL(pageHTML, resolved)
}

// ExtractJSONLDScripts returns the raw contents of every JSON-LD script
// block in document order.
func ExtractJSONLDScripts(pageHTML string) []string {
	matches := jsonLDPattern.FindAllStringSubmatch(pageHTML, -1)
	scripts := make([]string, 0, len(matches))
	for _, match := range matches {
		scripts = append(scripts, match[1])
	}
	return scripts
}

// ExtractPrimaryHTMLCandidates returns ordered candidate fragments:
// every <article>/<main> inner body in document order, then <body>,
// then all <p> blocks concatenated, then the whole HTML as fallback.
func ExtractPrimaryHTMLCandidates(pageHTML string) []string {
	var candidates []string

	type fragment struct {
		start int
		body  string
	}
	var containers []fragment
	for _, idx := range articlePattern.FindAllStringSubmatchIndex(pageHTML, -1) {
		containers = append(containers, fragment{start: idx[0], body: pageHTML[idx[2]:idx[3]]})
	}
	for _, idx := range mainPattern.FindAllStringSubmatchIndex(pageHTML, -1) {
		containers = append(containers, fragment{start: idx[0], body: pageHTML[idx[2]:idx[3]]})
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].start < containers[j].start })
	for _, c := range containers {
		if body := strings.TrimSpace(c.body); body != "" {
			candidates = append(candidates, body)
		}
	}

	if match := bodyPattern.FindStringSubmatch(pageHTML); match != nil && match[1] != "" {
		candidates = append(candidates, match[1])
	}

	if paragraphs := paragraphPattern.FindAllString(pageHTML, -1); len(paragraphs) > 0 {
		candidates = append(candidates, strings.Join(paragraphs, "\n"))
	}

	if len(candidates) == 0 {
		candidates = append(candidates, pageHTML)
	}

	return candidates
}
