package catalog

import (
	"strings"

	"github.com/icco/mango/models"
	"github.com/rivo/uniseg"
)

// Label is the cosmetic genre tag shown on a movie card.
type Label string

const (
	LabelTrending Label = "Trending"
	LabelDrama    Label = "Drama"
	LabelAction   Label = "Action"
	LabelSciFi    Label = "Sci-Fi"
	LabelComedy   Label = "Comedy"
	LabelIndie    Label = "Indie"
)

// Labels lists every value Genre can return.
var Labels = []Label{LabelTrending, LabelDrama, LabelAction, LabelSciFi, LabelComedy, LabelIndie}

// Genre classifies a movie by popularity and rating. Popular always wins.
// Ratings that compare false against every threshold (NaN, negatives) are Indie.
func Genre(rating float64, popular bool) Label {
	switch {
	case popular:
		return LabelTrending
	case rating >= 8.5:
		return LabelDrama
	case rating >= 7.8:
		return LabelAction
	case rating >= 7.0:
		return LabelSciFi
	case rating >= 6.3:
		return LabelComedy
	default:
		return LabelIndie
	}
}

// Year returns the leading four bytes of a YYYY-MM-DD date, or "".
func Year(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// DefaultInitial stands in for a poster when the title is blank.
const DefaultInitial = "M"

// Initial returns the first user-perceived character of the trimmed title.
func Initial(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultInitial
	}
	g := uniseg.NewGraphemes(title)
	if !g.Next() {
		return DefaultInitial
	}
	return g.Str()
}

// Card is a movie plus everything the template derives from it.
type Card struct {
	models.Movie
	Genre       Label
	Year        string
	Initial     string
	InWatchlist bool
}

// Resolve builds the card for one movie.
func Resolve(m models.Movie, watchlist models.IDSet) Card {
	return Card{
		Movie:       m,
		Genre:       Genre(m.AvgRating, m.IsPopular),
		Year:        Year(m.ReleaseDate),
		Initial:     Initial(m.Title),
		InWatchlist: watchlist.Has(m.ID),
	}
}

// ResolveAll builds cards for movies, keeping their order.
func ResolveAll(movies []models.Movie, watchlist models.IDSet) []Card {
	cards := make([]Card, 0, len(movies))
	for _, m := range movies {
		cards = append(cards, Resolve(m, watchlist))
	}
	return cards
}
