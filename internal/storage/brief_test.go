package storage

import (
	"testing"
	"time"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDB_FromDB(t *testing.T) {
	date := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	brief := model.ArchivedBrief{
		ID:      "3f1c",
		Date:    date,
		CatchUp: "Agents shipped.",
		Take:    "Watch the evals.",
		Text:    "INTELLIGENCE BRIEF",
		Stories: []model.ArchivedStory{
			{Title: "Agents", URL: "https://example.com/a", Source: "rss", Score: 9, Context: "It shipped."},
		},
		ItemsScanned:   40,
		SourcesChecked: 5,
		CreatedAt:      date,
	}

	row, err := toDB(brief)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"Agents","url":"https://example.com/a","source":"rss","score":9,"context":"It shipped."}]`, string(row.Stories))

	back, err := fromDB(row)
	require.NoError(t, err)
	assert.Equal(t, brief, back)
}

func TestToDB_NilStories(t *testing.T) {
	row, err := toDB(model.ArchivedBrief{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(row.Stories))
}

func TestFromDBAll_BadStories(t *testing.T) {
	briefs, err := fromDBAll([]dbBrief{
		{ID: "good", Stories: []byte(`[]`)},
		{ID: "bad", Stories: []byte(`{`)},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	require.Len(t, briefs, 1)
	assert.Equal(t, "good", briefs[0].ID)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% agents\_v2 a\\b`, escapeLike(`100% agents_v2 a\b`))
}
