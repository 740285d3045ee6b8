// Package catalog builds the movie list shown on the index page and the
// display fields derived from each row.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/icco/mango/models"
	"gorm.io/gorm"
)

// View selects which movies the page lists.
type View string

const (
	ViewBrowse    View = "browse"
	ViewWatchlist View = "watchlist"
)

// ParseView maps a raw query value to a View. Anything unrecognized is browse.
func ParseView(s string) View {
	if View(s) == ViewWatchlist {
		return ViewWatchlist
	}
	return ViewBrowse
}

// Params are the catalog filters taken from the request query string.
type Params struct {
	Query       string
	View        View
	PopularOnly bool
}

// ParseParams reads q, view and popular from a query string.
func ParseParams(v url.Values) Params {
	return Params{
		Query:       strings.TrimSpace(v.Get("q")),
		View:        ParseView(v.Get("view")),
		PopularOnly: v.Get("popular") == "1",
	}
}

// EmptyState says why a result has no movies, if that deserves a message.
type EmptyState int

const (
	EmptyNone EmptyState = iota
	EmptyWatchlist
	EmptyCatalog
)

func (e EmptyState) String() string {
	switch e {
	case EmptyWatchlist:
		return "empty_watchlist"
	case EmptyCatalog:
		return "empty_catalog"
	default:
		return "ok"
	}
}

// Hint is the user-facing explanation for the empty state.
func (e EmptyState) Hint() string {
	switch e {
	case EmptyWatchlist:
		return "Your watchlist is empty. Browse movies and hit “+ Watchlist”."
	case EmptyCatalog:
		return "No movies found. If you only imported the schema, open /seed or run “mango seed” to add sample movies."
	default:
		return ""
	}
}

// Result is the ordered movie list for one page render.
type Result struct {
	Movies []models.Movie
	Empty  EmptyState
}

// Catalog queries the Movies table.
type Catalog struct {
	db *gorm.DB
}

// New returns a Catalog reading from db.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Find returns the movies matching p, popular first, then by rating, release
// date (both descending) and title. In the watchlist view only ids in
// watchlist are considered; an empty watchlist returns without querying.
func (c *Catalog) Find(ctx context.Context, p Params, watchlist models.IDSet) (Result, error) {
	if p.View == ViewWatchlist && len(watchlist) == 0 {
		return Result{Empty: EmptyWatchlist}, nil
	}

	query := c.db.WithContext(ctx).Model(&models.Movie{})

	if p.Query != "" {
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '!'`, "%"+escapeLike(strings.ToLower(p.Query))+"%")
	}
	if p.PopularOnly {
		query = query.Where("is_popular = ?", true)
	}
	if p.View == ViewWatchlist {
		query = query.Where("id IN ?", watchlist.Sorted())
	}

	var movies []models.Movie
	err := query.
		Order("is_popular DESC").
		Order("avg_rating DESC").
		Order("release_date DESC").
		Order("title ASC").
		Find(&movies).Error
	if err != nil {
		return Result{}, fmt.Errorf("failed to query movies: %w", err)
	}

	res := Result{Movies: movies}
	if len(movies) == 0 && p.View == ViewBrowse {
		res.Empty = EmptyCatalog
	}
	return res, nil
}

// MySQL treats a backslash inside a string literal as an escape of its own, so
// the LIKE escape is '!' on every dialect.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
