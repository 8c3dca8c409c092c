package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRunsMergesAdjacentText(t *testing.T) {
	runs := NormalizeRuns([]InlineRun{
		{Type: "text", Text: "Hello "},
		{Type: "text", Text: "world"},
	})

	require.Len(t, runs, 1)
	assert.Equal(t, "Hello world", runs[0].Text)
}

func TestNormalizeRunsDropsEmptyWrappers(t *testing.T) {
	runs := NormalizeRuns([]InlineRun{
		{Type: "em", Children: []InlineRun{{Type: "text", Text: ""}}},
		{Type: "text", Text: "kept"},
	})

	require.Len(t, runs, 1)
	assert.Equal(t, "text", runs[0].Type)
}

func TestNormalizeRunsLinkWithoutChildrenUsesLabel(t *testing.T) {
	runs := NormalizeRuns([]InlineRun{
		{Type: "link", Href: "https://example.com", Text: "Example  site"},
	})

	require.Len(t, runs, 1)
	require.Len(t, runs[0].Children, 1)
	assert.Equal(t, "Example site", runs[0].Children[0].Text)
}

func TestNormalizeRunsLinkWithoutHrefFlattens(t *testing.T) {
	runs := NormalizeRuns([]InlineRun{
		{Type: "link", Children: []InlineRun{{Type: "text", Text: "plain"}}},
	})

	require.Len(t, runs, 1)
	assert.Equal(t, "text", runs[0].Type)
	assert.Equal(t, "plain", runs[0].Text)
}

func TestNormalizeRunsIdempotent(t *testing.T) {
	input := []InlineRun{
		{Type: "text", Text: "a"},
		{Type: "text", Text: "b"},
		{Type: "strong", Children: []InlineRun{
			{Type: "em", Children: []InlineRun{{Type: "text", Text: "c"}}},
		}},
		{Type: "math", Text: "$$x^2$$"},
	}

	once := NormalizeRuns(input)
	twice := NormalizeRuns(once)
	assert.Equal(t, once, twice)
}

func TestRunsToTextMatchesProjection(t *testing.T) {
	runs := NormalizeRuns([]InlineRun{
		{Type: "text", Text: "Let "},
		{Type: "math", Text: "$$E = mc^2$$"},
		{Type: "text", Text: " hold "},
		{Type: "strong", Children: []InlineRun{{Type: "text", Text: "always"}}},
	})

	assert.Equal(t, "Let E = mc^2 hold always", RunsToText(runs))
}

func TestRunsToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		runs []InlineRun
		want string
	}{
		{
			name: "emphasis",
			runs: []InlineRun{{Type: "em", Children: []InlineRun{{Type: "text", Text: "x"}}}},
			want: "*x*",
		},
		{
			name: "strong",
			runs: []InlineRun{{Type: "strong", Children: []InlineRun{{Type: "text", Text: "x"}}}},
			want: "**x**",
		},
		{
			name: "strike",
			runs: []InlineRun{{Type: "strike", Children: []InlineRun{{Type: "text", Text: "x"}}}},
			want: "~~x~~",
		},
		{
			name: "math",
			runs: []InlineRun{{Type: "math", Text: "x^2"}},
			want: "$x^2$",
		},
		{
			name: "link",
			runs: []InlineRun{{
				Type: "link", Href: "https://example.com/a",
				Children: []InlineRun{{Type: "text", Text: "label"}},
			}},
			want: "[label](<https://example.com/a>)",
		},
		{
			name: "escaped text",
			runs: []InlineRun{{Type: "text", Text: "a*b_c"}},
			want: `a\*b\_c`,
		},
		{
			name: "sub and sup pass through",
			runs: []InlineRun{
				{Type: "sub", Children: []InlineRun{{Type: "text", Text: "i"}}},
				{Type: "sup", Children: []InlineRun{{Type: "text", Text: "j"}}},
			},
			want: "ij",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunsToMarkdown(tt.runs))
		})
	}
}

func TestNormalizeInlineSpacing(t *testing.T) {
	assert.Equal(t, "a, b (c) d.", NormalizeInlineSpacing("a ,  b ( c )   d ."))
	assert.Equal(t, "", NormalizeInlineSpacing("  \n\t "))
}

func TestCleanEquationTeX(t *testing.T) {
	assert.Equal(t, "x^2", CleanEquationTeX("$$x^2$$"))
	assert.Equal(t, "x^2", CleanEquationTeX(`\[x^2\]`))
	// stripped exactly once
	assert.Equal(t, "$$x^2$$", CleanEquationTeX("$$$$x^2$$$$"))
	assert.Equal(t, "$$", CleanEquationTeX("$$"))
}

func TestRunsHaveStructure(t *testing.T) {
	assert.False(t, RunsHaveStructure([]InlineRun{{Type: "text", Text: "a"}}))
	assert.True(t, RunsHaveStructure([]InlineRun{
		{Type: "text", Text: "a"},
		{Type: "math", Text: "b"},
	}))
}
