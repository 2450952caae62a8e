package resolver

import (
	"testing"

	"kolink-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOption string

func TestPickFailsClosed(t *testing.T) {
	r := NewWithSeed(1)

	t.Run("Pool with only the sentinel yields ErrEmptyResolutionSet", func(t *testing.T) {
		pool := []testOption{testOption(models.RandomSentinel)}

		v, err := pick(r, pool)

		assert.ErrorIs(t, err, models.ErrEmptyResolutionSet)
		// Никакого дефолта: значение остается нулевым.
		assert.Equal(t, testOption(""), v)
	})

	t.Run("Empty pool yields ErrEmptyResolutionSet", func(t *testing.T) {
		v, err := pick(r, []testOption{})

		assert.ErrorIs(t, err, models.ErrEmptyResolutionSet)
		assert.Equal(t, testOption(""), v)
	})

	t.Run("Sentinel is excluded from candidates", func(t *testing.T) {
		pool := []testOption{testOption(models.RandomSentinel), "a", "b"}

		for i := 0; i < 50; i++ {
			v, err := pick(r, pool)
			require.NoError(t, err)
			assert.NotEqual(t, testOption(models.RandomSentinel), v)
		}
	})
}
