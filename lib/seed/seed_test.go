package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/icco/mango/lib/lock"
	"github.com/icco/mango/lib/logging"
	"github.com/icco/mango/lib/seed"
	"github.com/icco/mango/lib/testutil"
	"github.com/icco/mango/lib/validation"
	"github.com/icco/mango/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamples(t *testing.T) {
	require.Len(t, seed.Samples, 12)

	popular := 0
	ids := models.NewIDSet()
	for _, m := range seed.Samples {
		assert.NoError(t, validation.Struct(m), m.Title)
		assert.False(t, ids.Has(m.ID), "duplicate id %d", m.ID)
		ids[m.ID] = struct{}{}
		if m.IsPopular {
			popular++
		}
	}
	assert.Equal(t, 6, popular)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds once", func(t *testing.T) {
		gormDB := testutil.NewDB(t)
		dir := t.TempDir()
		seeder := seed.New(lock.NewFileLock(dir, logging.Discard()), logging.Discard())

		n, err := seeder.SeedIfEmpty(ctx, gormDB)
		require.NoError(t, err)
		assert.Equal(t, 12, n)

		n, err = seeder.SeedIfEmpty(ctx, gormDB)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		var count int64
		require.NoError(t, gormDB.Model(&models.Movie{}).Count(&count).Error)
		assert.Equal(t, int64(12), count)

		_, err = os.Stat(filepath.Join(dir, "seed.lock"))
		assert.True(t, os.IsNotExist(err), "lock file should be released")
	})

	t.Run("leaves a populated catalog alone", func(t *testing.T) {
		gormDB := testutil.NewDB(t)
		testutil.InsertMovies(t, gormDB, models.Movie{ID: 42, Title: "Existing", AvgRating: 5})

		n, err := seed.New(nil, logging.Discard()).SeedIfEmpty(ctx, gormDB)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		var movies []models.Movie
		require.NoError(t, gormDB.Find(&movies).Error)
		require.Len(t, movies, 1)
		assert.Equal(t, "Existing", movies[0].Title)
	})

	t.Run("rows round trip", func(t *testing.T) {
		gormDB := testutil.NewDB(t)
		_, err := seed.New(nil, logging.Discard()).SeedIfEmpty(ctx, gormDB)
		require.NoError(t, err)

		var m models.Movie
		require.NoError(t, gormDB.First(&m, 11).Error)
		assert.Equal(t, seed.Samples[10], m)
	})
}
