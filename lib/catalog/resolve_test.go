package catalog

import (
	"math"
	"testing"

	"github.com/icco/mango/models"
	"github.com/stretchr/testify/assert"
)

func TestGenre(t *testing.T) {
	tests := []struct {
		name    string
		rating  float64
		popular bool
		want    Label
	}{
		{"popular overrides high rating", 9.9, true, LabelTrending},
		{"popular overrides low rating", 1.0, true, LabelTrending},
		{"drama at threshold", 8.5, false, LabelDrama},
		{"action just below drama", 8.49, false, LabelAction},
		{"action at threshold", 7.8, false, LabelAction},
		{"sci-fi at threshold", 7.0, false, LabelSciFi},
		{"comedy at threshold", 6.3, false, LabelComedy},
		{"indie below comedy", 6.29, false, LabelIndie},
		{"zero", 0, false, LabelIndie},
		{"negative", -3, false, LabelIndie},
		{"NaN", math.NaN(), false, LabelIndie},
		{"positive infinity", math.Inf(1), false, LabelDrama},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Genre(tt.rating, tt.popular))
		})
	}
}

func TestGenreIsTotal(t *testing.T) {
	known := make(map[Label]bool, len(Labels))
	for _, l := range Labels {
		known[l] = true
	}

	for r := -1.0; r <= 11.0; r += 0.05 {
		for _, p := range []bool{false, true} {
			got := Genre(r, p)
			assert.True(t, known[got], "rating %.2f popular %v gave %q", r, p, got)
			if p {
				assert.Equal(t, LabelTrending, got)
			}
		}
	}
}

func TestYear(t *testing.T) {
	assert.Equal(t, "2022", Year("2022-06-18"))
	assert.Equal(t, "2022", Year("2022"))
	assert.Equal(t, "", Year("202"))
	assert.Equal(t, "", Year(""))
}

func TestInitial(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Mango Nights", "M"},
		{"  orbit", "o"},
		{"", DefaultInitial},
		{"   ", DefaultInitial},
		{"Éclair", "É"},
		{"étoile", "é"},
		{"🇯🇵 Tokyo", "🇯🇵"},
		{"東京物語", "東"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Initial(tt.title))
		})
	}
}

func TestResolve(t *testing.T) {
	m := models.Movie{ID: 5, Title: "Orbit Runner", ReleaseDate: "2024-04-21", AvgRating: 8.1, IsPopular: true}

	card := Resolve(m, models.NewIDSet(5))
	assert.Equal(t, LabelTrending, card.Genre)
	assert.Equal(t, "2024", card.Year)
	assert.Equal(t, "O", card.Initial)
	assert.True(t, card.InWatchlist)

	card = Resolve(m, nil)
	assert.False(t, card.InWatchlist)
}
