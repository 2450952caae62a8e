package resolver_test

import (
	"testing"

	"kolink-server/internal/models"
	"kolink-server/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve_ReplacesAllSentinels(t *testing.T) {
	r := resolver.NewWithSeed(42)

	params := models.DefaultGenerationParams()
	params.Topic = "Growth Hacking"
	params.Audience = "Founders"

	// Прогоняем много раз: сентинел не должен выживать никогда.
	for i := 0; i < 200; i++ {
		resolved, err := r.Resolve(params)
		require.NoError(t, err)

		assert.False(t, resolved.HasRandomFields(), "resolved params must not contain the sentinel")
		assert.NotEqual(t, models.ToneRandom, resolved.Tone)
		assert.NotEqual(t, models.FrameworkRandom, resolved.Framework)
		assert.NotEqual(t, models.LengthRandom, resolved.Length)
		assert.NotEqual(t, models.EmojiRandom, resolved.EmojiDensity)
		assert.NotEqual(t, models.HookRandom, resolved.HookStyle)

		// Нерандомные поля не трогаем.
		assert.Equal(t, "Growth Hacking", resolved.Topic)
		assert.Equal(t, "Founders", resolved.Audience)
		assert.Equal(t, 3, resolved.HashtagCount)
		assert.Equal(t, 50, resolved.CreativityLevel)
	}
}

func TestResolver_Resolve_IdempotentOnResolvedSet(t *testing.T) {
	r := resolver.NewWithSeed(7)

	params := models.DefaultGenerationParams()
	params.Topic = "AI Trends"

	first, err := r.Resolve(params)
	require.NoError(t, err)

	// resolve(resolve(x)) == resolve(x): уже конкретные значения не меняются.
	second, err := r.Resolve(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolver_Resolve_PreservesConcreteFields(t *testing.T) {
	r := resolver.New()

	params := models.GenerationParams{
		Topic:        "Remote work",
		Tone:         models.ToneControversial,
		Framework:    models.FrameworkRandom,
		Length:       models.LengthShort,
		EmojiDensity: models.EmojiMinimal,
		HookStyle:    models.HookQuestion,
	}

	resolved, err := r.Resolve(params)
	require.NoError(t, err)

	// Только framework был random - остальное без изменений.
	assert.Equal(t, models.ToneControversial, resolved.Tone)
	assert.Equal(t, models.LengthShort, resolved.Length)
	assert.Equal(t, models.EmojiMinimal, resolved.EmojiDensity)
	assert.Equal(t, models.HookQuestion, resolved.HookStyle)
	assert.NotEqual(t, models.FrameworkRandom, resolved.Framework)
}

func TestResolver_Resolve_CoversWholePool(t *testing.T) {
	r := resolver.NewWithSeed(1)

	params := models.DefaultGenerationParams()
	seen := make(map[models.PostLength]bool)
	for i := 0; i < 500; i++ {
		resolved, err := r.Resolve(params)
		require.NoError(t, err)
		seen[resolved.Length] = true
	}

	// Равномерная выборка должна за 500 попыток накрыть все три длины.
	assert.Len(t, seen, len(models.LengthPool)-1)
	assert.False(t, seen[models.LengthRandom])
}

func TestResolver_PickTopic(t *testing.T) {
	r := resolver.NewWithSeed(3)

	t.Run("empty list fails closed", func(t *testing.T) {
		_, err := r.PickTopic(nil)
		assert.ErrorIs(t, err, models.ErrInvalidConfig)
	})

	t.Run("single topic always selected", func(t *testing.T) {
		topic, err := r.PickTopic([]string{"Startup Lessons"})
		require.NoError(t, err)
		assert.Equal(t, "Startup Lessons", topic)
	})

	t.Run("selection stays within the list", func(t *testing.T) {
		topics := []string{"A", "B", "C"}
		for i := 0; i < 100; i++ {
			topic, err := r.PickTopic(topics)
			require.NoError(t, err)
			assert.Contains(t, topics, topic)
		}
	})
}
