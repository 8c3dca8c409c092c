package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
	"github.com/quantmind-br/webextract-go/internal/htmlx"
	"github.com/quantmind-br/webextract-go/internal/utils"
)

// xStatusHosts are the hosts whose status URLs the proxy APIs cover.
var xStatusHosts = map[string]bool{
	"x.com":              true,
	"www.x.com":          true,
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.x.com":       true,
	"mobile.twitter.com": true,
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseXStatusURL recognizes the four status path shapes and returns
// the optional user segment and the numeric status id.
func parseXStatusURL(rawURL string) (user, statusID string, ok bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	if !xStatusHosts[strings.ToLower(parsed.Host)] {
		return "", "", false
	}

	var segments []string
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	switch {
	case len(segments) >= 3 && segments[0] == "i" && segments[1] == "status" && isDigits(segments[2]):
		return "", segments[2], true
	case len(segments) >= 4 && segments[0] == "i" && segments[1] == "web" && segments[2] == "status" && isDigits(segments[3]):
		return "", segments[3], true
	case len(segments) >= 2 && segments[0] == "status" && isDigits(segments[1]):
		return "", segments[1], true
	case len(segments) >= 3 && segments[1] == "status" && isDigits(segments[2]):
		return segments[0], segments[2], true
	}
	return "", "", false
}

func asMap(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}

func asSlice(value any) []any {
	s, _ := value.([]any)
	return s
}

// stringValue renders a scalar JSON value as trimmed text.
func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

func intValue(value any) int {
	var parsed int
	switch v := value.(type) {
	case float64:
		parsed = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		parsed = n
	default:
		return 0
	}
	if parsed <= 0 {
		return 0
	}
	return parsed
}

func extractImageURLFromMediaEntity(entity map[string]any) string {
	if info := asMap(entity["media_info"]); info != nil {
		for _, key := range []string{"original_img_url", "url", "media_url_https", "media_url"} {
			if value := stringValue(info[key]); value != "" {
				return value
			}
		}
	}
	for _, key := range []string{"url", "media_url_https", "media_url", "image"} {
		if value := stringValue(entity[key]); value != "" {
			return value
		}
	}
	return ""
}

func keyedEntries(value any) []struct {
	key   string
	value any
} {
	var entries []struct {
		key   string
		value any
	}
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			entries = append(entries, struct {
				key   string
				value any
			}{key, item})
		}
	case []any:
		for index, item := range v {
			entries = append(entries, struct {
				key   string
				value any
			}{strconv.Itoa(index), item})
		}
	}
	return entries
}

// normalizeDraftEntityMap accepts the entityMap in both its map and
// list serializations and indexes entities by outer key and inner key.
func normalizeDraftEntityMap(entityMap any) map[string]map[string]any {
	normalized := make(map[string]map[string]any)
	for _, entry := range keyedEntries(entityMap) {
		rawValue := asMap(entry.value)
		if rawValue == nil {
			continue
		}
		candidate := rawValue
		if inner := asMap(rawValue["value"]); inner != nil {
			candidate = inner
		}
		normalized[entry.key] = candidate
		if innerKey := stringValue(rawValue["key"]); innerKey != "" {
			normalized[innerKey] = candidate
		}
	}
	return normalized
}

// buildMediaLookup indexes media entities by position, media_id and
// media_key so entity ranges can resolve through any of them.
func buildMediaLookup(article map[string]any) map[string]map[string]any {
	lookup := make(map[string]map[string]any)
	for _, entry := range keyedEntries(article["media_entities"]) {
		value := asMap(entry.value)
		if value == nil {
			continue
		}
		lookup[entry.key] = value
		if mediaID := stringValue(value["media_id"]); mediaID != "" {
			lookup[mediaID] = value
		}
		if mediaKey := stringValue(value["media_key"]); mediaKey != "" {
			lookup[mediaKey] = value
		}
	}
	return lookup
}

func appendUniqueImageBlock(blocks []domain.Block, seen map[string]bool, blockID, imageURL, caption string, width, height int, source string) []domain.Block {
	normalized := strings.TrimSpace(imageURL)
	if normalized == "" || seen[normalized] {
		return blocks
	}
	seen[normalized] = true
	block := domain.Block{
		ID:       blockID,
		Type:     domain.BlockImage,
		ImageURL: normalized,
		Caption:  caption,
		Source:   source,
	}
	if width > 0 {
		block.Width = width
	}
	if height > 0 {
		block.Height = height
	}
	return append(blocks, block)
}

// appendUniqueText keeps tweet text blocks free of duplicates: exact
// case-insensitive matches and long containments in either direction
// are dropped.
func appendUniqueText(textBlocks []string, text string) []string {
	normalized := htmlx.NormalizeTextPreserveParagraphs(text)
	if normalized == "" {
		return textBlocks
	}
	lowered := strings.ToLower(normalized)
	for _, existing := range textBlocks {
		existingLowered := strings.ToLower(existing)
		if lowered == existingLowered {
			return textBlocks
		}
		if len(lowered) >= 32 && strings.Contains(existingLowered, lowered) {
			return textBlocks
		}
		if len(existingLowered) >= 32 && strings.Contains(lowered, existingLowered) {
			return textBlocks
		}
	}
	return append(textBlocks, normalized)
}

// buildFxtwitterCandidate assembles a candidate from the fxtwitter
// payload: article blocks when present (media resolved through the
// entity map), otherwise the plain tweet text.
func buildFxtwitterCandidate(sourceURL string, payload map[string]any) *domain.ExtractionCandidate {
	tweet := asMap(payload["tweet"])
	if tweet == nil {
		return nil
	}

	article := asMap(tweet["article"])
	var textBlocks []string
	var blocks []domain.Block
	seenImageURLs := make(map[string]bool)
	title := ""

	if article != nil {
		title = stringValue(article["title"])
		mediaLookup := buildMediaLookup(article)
		entityMap := normalizeDraftEntityMap(asMap(article["content"])["entityMap"])

		if coverMedia := asMap(article["cover_media"]); coverMedia != nil {
			coverInfo := asMap(coverMedia["media_info"])
			blocks = appendUniqueImageBlock(
				blocks, seenImageURLs,
				"fx-cover",
				extractImageURLFromMediaEntity(coverMedia),
				title,
				intValue(coverInfo["original_img_width"]),
				intValue(coverInfo["original_img_height"]),
				"cover_media",
			)
		}

		for idx, rawEntry := range asSlice(asMap(article["content"])["blocks"]) {
			entry := asMap(rawEntry)
			if entry == nil {
				continue
			}
			blockID := stringValue(entry["key"])
			if blockID == "" {
				blockID = fmt.Sprintf("fx-%d", idx+1)
			}
			blockType := strings.ToLower(stringValue(entry["type"]))
			if blockType == "" {
				blockType = "paragraph"
			}

			if blockType == "atomic" {
				for _, rawRange := range asSlice(entry["entityRanges"]) {
					entityRange := asMap(rawRange)
					if entityRange == nil {
						continue
					}
					entityKey := stringValue(entityRange["key"])
					if entityKey == "" {
						continue
					}
					entity := entityMap[entityKey]
					if entity == nil || strings.ToUpper(stringValue(entity["type"])) != "MEDIA" {
						continue
					}
					for _, rawItem := range asSlice(asMap(entity["data"])["mediaItems"]) {
						mediaItem := asMap(rawItem)
						if mediaItem == nil {
							continue
						}
						mediaID := stringValue(mediaItem["mediaId"])
						if mediaID == "" {
							mediaID = stringValue(mediaItem["media_id"])
						}
						mediaEntity := mediaLookup[mediaID]
						if mediaEntity == nil {
							continue
						}
						mediaInfo := asMap(mediaEntity["media_info"])
						blocks = appendUniqueImageBlock(
							blocks, seenImageURLs,
							blockID+"-img",
							extractImageURLFromMediaEntity(mediaEntity),
							"",
							intValue(mediaInfo["original_img_width"]),
							intValue(mediaInfo["original_img_height"]),
							"media_entity",
						)
					}
				}
				continue
			}

			before := len(textBlocks)
			textBlocks = appendUniqueText(textBlocks, stringValue(entry["text"]))
			if len(textBlocks) == before {
				continue
			}
			entryType := stringValue(entry["type"])
			if entryType == "" {
				entryType = "paragraph"
			}
			blocks = append(blocks, domain.Block{
				ID:   blockID,
				Type: entryType,
				Text: textBlocks[len(textBlocks)-1],
			})
		}

		// article.content.blocks is the canonical body; preview_text is
		// often truncated and duplicates the first block
		if len(textBlocks) == 0 {
			textBlocks = appendUniqueText(textBlocks, stringValue(article["preview_text"]))
		}
	}

	if len(textBlocks) == 0 {
		text := stringValue(tweet["text"])
		if text == "" {
			text = stringValue(asMap(tweet["raw_text"])["text"])
		}
		textBlocks = appendUniqueText(textBlocks, text)
	}

	rawContent := strings.TrimSpace(strings.Join(textBlocks, "\n\n"))
	if len(rawContent) < minContentChars {
		return nil
	}

	canonicalURL := stringValue(tweet["url"])
	if canonicalURL == "" {
		canonicalURL = sourceURL
	}
	author := asMap(tweet["author"])
	authorName := stringValue(author["screen_name"])
	if authorName == "" {
		authorName = stringValue(author["name"])
	}
	if title == "" {
		title = "X post"
		if authorName != "" {
			title = "X post by @" + authorName
		}
	}

	if len(blocks) == 0 {
		blocks = htmlx.BuildReaderBlocks(rawContent)
	}
	return &domain.ExtractionCandidate{
		StrategyName:  "x_status_api",
		URL:           sourceURL,
		CanonicalURL:  canonicalURL,
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    rawContent,
		ExtractionMeta: map[string]any{
			"method":   "x_status_api",
			"provider": "api.fxtwitter.com",
			"tweet_id": stringValue(tweet["id"]),
			"author":   authorName,
		},
		Blocks: blocks,
	}
}

// buildVxtwitterCandidate assembles a candidate from the vxtwitter
// payload, falling back to the bare tweet text when no article exists.
func buildVxtwitterCandidate(sourceURL string, payload map[string]any) *domain.ExtractionCandidate {
	article := asMap(payload["article"])
	text := htmlx.NormalizeTextPreserveParagraphs(stringValue(payload["text"]))

	authorTitle := func() string {
		name := stringValue(payload["user_name"])
		if name == "" {
			name = stringValue(payload["user_screen_name"])
		}
		if name == "" {
			name = "unknown"
		}
		return "X post by @" + name
	}

	if article == nil {
		if len(text) < minContentChars {
			return nil
		}
		return &domain.ExtractionCandidate{
			StrategyName:  "x_status_api",
			URL:           sourceURL,
			CanonicalURL:  sourceURL,
			Title:         authorTitle(),
			ContentFormat: domain.ContentFormatText,
			RawContent:    text,
			ExtractionMeta: map[string]any{
				"method":   "x_status_api",
				"provider": "api.vxtwitter.com",
				"tweet_id": stringValue(payload["tweetID"]),
			},
			Blocks: htmlx.BuildReaderBlocks(text),
		}
	}

	preview := htmlx.NormalizeTextPreserveParagraphs(stringValue(article["preview_text"]))
	title := htmlx.NormalizeTextPreserveParagraphs(stringValue(article["title"]))
	var parts []string
	for _, part := range []string{title, preview, text} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	rawContent := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if len(rawContent) < minContentChars {
		return nil
	}

	blocks := htmlx.BuildReaderBlocks(rawContent)
	if imageURL := htmlx.NormalizeTextPreserveParagraphs(stringValue(article["image"])); imageURL != "" {
		blocks = append([]domain.Block{{
			ID:       "vx-cover",
			Type:     domain.BlockImage,
			ImageURL: imageURL,
			Source:   "article.image",
		}}, blocks...)
	}

	if title == "" {
		title = authorTitle()
	}
	return &domain.ExtractionCandidate{
		StrategyName:  "x_status_api",
		URL:           sourceURL,
		CanonicalURL:  sourceURL,
		Title:         title,
		ContentFormat: domain.ContentFormatText,
		RawContent:    rawContent,
		ExtractionMeta: map[string]any{
			"method":   "x_status_api",
			"provider": "api.vxtwitter.com",
			"tweet_id": stringValue(payload["tweetID"]),
		},
		Blocks: blocks,
	}
}

type statusProvider struct {
	name    string
	baseURL string
	build   func(sourceURL string, payload map[string]any) *domain.ExtractionCandidate
}

// XStatusStrategy resolves X/Twitter status URLs through the public
// fxtwitter and vxtwitter JSON APIs instead of scraping the page.
type XStatusStrategy struct {
	client    *http.Client
	providers []statusProvider
	logger    *utils.Logger
}

// NewXStatusStrategy creates the strategy. A nil client falls back to
// a plain http.Client; the per-provider timeout is set per request.
func NewXStatusStrategy(client *http.Client, logger *utils.Logger) *XStatusStrategy {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &XStatusStrategy{
		client: client,
		providers: []statusProvider{
			{name: "api.fxtwitter.com", baseURL: "https://api.fxtwitter.com", build: buildFxtwitterCandidate},
			{name: "api.vxtwitter.com", baseURL: "https://api.vxtwitter.com", build: buildVxtwitterCandidate},
		},
		logger: logger.WithStrategy("x_status_api"),
	}
}

// Name implements domain.Strategy.
func (s *XStatusStrategy) Name() string {
	return "x_status_api"
}

func (s *XStatusStrategy) fetchProviderPayload(ctx context.Context, providerURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providerURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return payload, nil
}

// Extract implements domain.Strategy.
func (s *XStatusStrategy) Extract(ctx context.Context, ec *domain.ExtractionContext) (*domain.ExtractionCandidate, error) {
	user, statusID, ok := parseXStatusURL(ec.URL)
	if !ok {
		return nil, domain.NewStrategyError(s.Name(), nil, "URL is not an X/Twitter status link")
	}

	pathPrefix := "/status/" + statusID
	if user != "" {
		pathPrefix = "/" + user + "/status/" + statusID
	}

	timeout := clampProviderTimeout(ec.Timeout)
	lastError := ""
	for _, provider := range s.providers {
		providerURL := provider.baseURL + pathPrefix
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		payload, err := s.fetchProviderPayload(reqCtx, providerURL)
		cancel()
		if err != nil {
			lastError = fmt.Sprintf("%s failed: %v", provider.name, err)
			s.logger.Debug().Str("provider", provider.name).Err(err).Msg("status provider failed")
			continue
		}

		candidate := provider.build(ec.URL, payload)
		if candidate == nil {
			lastError = fmt.Sprintf("%s returned no usable content", provider.name)
			continue
		}
		candidate.RawContent = truncateContent(candidate.RawContent, ec.MaxChars)
		candidate.ExtractionMeta["provider_url"] = providerURL
		return candidate, nil
	}

	if lastError == "" {
		lastError = "X status API extraction failed"
	}
	return nil, domain.NewStrategyError(s.Name(), nil, lastError)
}
