package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{View: ViewBrowse}},
		{"trims search", "q=%20%20mango%20", Params{Query: "mango", View: ViewBrowse}},
		{"watchlist", "view=watchlist", Params{View: ViewWatchlist}},
		{"unknown view is browse", "view=admin", Params{View: ViewBrowse}},
		{"popular only with 1", "popular=1", Params{View: ViewBrowse, PopularOnly: true}},
		{"popular ignores other values", "popular=true", Params{View: ViewBrowse}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParseParams(v))
		})
	}
}

func TestLinksFor(t *testing.T) {
	t.Run("plain browse", func(t *testing.T) {
		links := LinksFor(Params{View: ViewBrowse})
		assert.Equal(t, "/?view=browse", links.Browse)
		assert.Equal(t, "/?view=watchlist", links.Watchlist)
		assert.Equal(t, "/?popular=1&view=browse", links.TogglePopular)
	})

	t.Run("keeps search and popular", func(t *testing.T) {
		links := LinksFor(Params{Query: "neon city", View: ViewWatchlist, PopularOnly: true})
		assert.Equal(t, "/?popular=1&q=neon+city&view=browse", links.Browse)
		assert.Equal(t, "/?popular=1&q=neon+city&view=watchlist", links.Watchlist)
		assert.Equal(t, "/?q=neon+city&view=watchlist", links.TogglePopular)
	})
}

func TestWith(t *testing.T) {
	assert.Equal(t, "/", With(nil))
	assert.Equal(t, "/", With(map[string]string{"q": "", "popular": ""}))
	assert.Equal(t, "/?q=a%26b", With(map[string]string{"q": "a&b", "view": ""}))
}

func TestEmptyStateHint(t *testing.T) {
	assert.Empty(t, EmptyNone.Hint())
	assert.Contains(t, EmptyWatchlist.Hint(), "watchlist is empty")
	assert.Contains(t, EmptyCatalog.Hint(), "No movies found")
	assert.NotEqual(t, EmptyWatchlist.Hint(), EmptyCatalog.Hint())
}
