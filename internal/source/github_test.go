package source

import (
	"context"
	"net/http"
	"testing"

	"github.com/kovalyov-valentin/intelligence-brief/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trendingPage = `<html><body>
<article class="Box-row">
  <h2 class="h3 lh-condensed">
    <a href="/acme/agent-kit">
      <span class="text-normal">acme /</span>
      agent-kit
    </a>
  </h2>
  <p class="col-9 color-fg-muted my-1 pr-4">
    Build tool-using agents in Go.
  </p>
  <div class="f6 color-fg-muted mt-2">
    <span><span itemprop="programmingLanguage">Go</span></span>
    <a href="/acme/agent-kit/stargazers" class="Link">
      12,345
    </a>
    <span class="d-inline-block float-sm-right">
      678 stars today
    </span>
  </div>
</article>
<article class="Box-row">
  <h2><a href="/someone/dotfiles">someone / dotfiles</a></h2>
</article>
<article class="Box-row">
  <h2><a href="/third/repo">third / repo</a></h2>
</article>
</body></html>`

func TestGitHubTrendingSource_Fetch(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/go", r.URL.Path)
		assert.Equal(t, "weekly", r.URL.Query().Get("since"))
		_, _ = w.Write([]byte(trendingPage))
	})

	items, err := NewGitHubTrendingSource(newTestClient(), testLog, srv.URL, "Go", "weekly", 2).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	repo := items[0]
	assert.Equal(t, "github_acme/agent-kit", repo.ID)
	assert.Equal(t, model.SourceGitHub, repo.Source)
	assert.Equal(t, model.KindRepository, repo.Kind)
	assert.Equal(t, "acme/agent-kit", repo.Title)
	assert.Equal(t, "https://github.com/acme/agent-kit", repo.URL)
	assert.Equal(t, "Build tool-using agents in Go.", repo.Excerpt)
	assert.Equal(t, []string{"go"}, repo.Tags)
	assert.Equal(t, 12345, repo.Engagement.Stars)
	assert.Equal(t, 678, repo.Engagement.Score)
	assert.Equal(t, testNow, repo.PublishedAt)

	assert.Equal(t, "someone/dotfiles", items[1].Title)
	assert.Empty(t, items[1].Excerpt)
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1234, parseCount(" 1,234 "))
	assert.Equal(t, 56, parseCount("56 stars today"))
	assert.Equal(t, 0, parseCount(""))
	assert.Equal(t, 0, parseCount("many"))
}
