package htmlx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

var paragraphBreakPattern = regexp.MustCompile(`\n{2,}`)

const maxHeadingLikeLength = 90

// BuildReaderBlocks splits plain text into heading/paragraph blocks on
// blank-line boundaries. A chunk is heading-like when it is short and
// carries no terminal punctuation.
func BuildReaderBlocks(rawContent string) []domain.Block {
	normalized := NormalizeTextPreserveParagraphs(rawContent)
	if normalized == "" {
		return nil
	}

	var blocks []domain.Block
	for _, chunk := range paragraphBreakPattern.Split(normalized, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		blockType := domain.BlockParagraph
		if len(chunk) <= maxHeadingLikeLength &&
			!strings.HasSuffix(chunk, ".") &&
			!strings.HasSuffix(chunk, "!") &&
			!strings.HasSuffix(chunk, "?") {
			blockType = domain.BlockHeading
		}
		blocks = append(blocks, domain.Block{
			ID:   fmt.Sprintf("b%d", len(blocks)+1),
			Type: blockType,
			Text: chunk,
		})
	}
	return blocks
}
