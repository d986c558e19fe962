package composer

import (
	"strings"
	"testing"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBrief() model.Brief {
	items := scored(3, 8)
	items[0].Title = `Agents <script>alert("x")</script> & tools`

	return model.Brief{
		Date:           now,
		CatchUp:        "First paragraph.\n\nSecond paragraph.",
		Take:           "Signal over noise.",
		QuickLinks:     items[2:],
		ItemsScanned:   120,
		SourcesChecked: 6,
		TopStories: []model.Story{
			{ScoredItem: items[0], Context: "It shipped. It matters."},
			{ScoredItem: items[1]},
		},
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText(sampleBrief())

	assert.Equal(t, model.Sections, Sections(text))
	assert.Contains(t, text, "INTELLIGENCE BRIEF - Wednesday, May 1, 2024")
	assert.Contains(t, text, "1. Agents <script>alert(\"x\")</script> & tools (Blog)\n   https://example.com/0\n   It shipped. It matters.")
	assert.Contains(t, text, "- Story 2\n  https://example.com/2")
	assert.Contains(t, text, "Scanned 120 items from 6 sources")

	catchUp := strings.Index(text, model.SectionCatchUp)
	top := strings.Index(text, model.SectionTopStories)
	quick := strings.Index(text, model.SectionQuickLinks)
	take := strings.Index(text, model.SectionTake)
	assert.True(t, catchUp < top && top < quick && quick < take)
}

func TestRenderText_EmptyBrief(t *testing.T) {
	text := RenderText(model.Brief{Date: now})

	assert.Equal(t, model.Sections, Sections(text))
	assert.Equal(t, 4, strings.Count(text, emptySection))
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleBrief())
	require.NoError(t, err)

	sections, err := HTMLSections(html)
	require.NoError(t, err)
	assert.Equal(t, model.Sections, sections)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `href="https://example.com/1"`)
	assert.Contains(t, html, "<p>First paragraph.</p>")
	assert.Contains(t, html, "<p>Second paragraph.</p>")
	assert.Contains(t, html, "Scanned 120 items from 6 sources")
}

func TestRenderHTML_EmptyBrief(t *testing.T) {
	html, err := RenderHTML(model.Brief{Date: now})
	require.NoError(t, err)

	sections, err := HTMLSections(html)
	require.NoError(t, err)
	assert.Equal(t, model.Sections, sections)
	assert.Equal(t, 4, strings.Count(html, emptySection))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Intelligence Brief - May 1, 2024", Subject(model.Brief{Date: now}))
}

func TestSections_IgnoresUnknownHeadings(t *testing.T) {
	text := "SOMETHING ELSE\n==============\n" + model.SectionTake + "\n" + strings.Repeat("=", len(model.SectionTake)) + "\n"
	assert.Equal(t, []string{model.SectionTake}, Sections(text))
}
