package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/presetvault/internal/errors"
)

func TestCollections(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		mustSave(t, env, newPreset("p1", "One"))
		mustSave(t, env, newPreset("p2", "Two"))

		first, err := env.repo.CreateCollection(ctx, "  Chill  ", []string{"p1", "p2", "p1", "ghost"})
		require.NoError(t, err)
		second, err := env.repo.CreateCollection(ctx, "Empty", nil)
		require.NoError(t, err)

		c, err := env.repo.GetCollection(ctx, first)
		require.NoError(t, err)
		require.Equal(t, "Chill", c.Name)
		require.Equal(t, []string{"p1", "p2", "ghost"}, c.PresetIDs)

		all, err := env.repo.GetAllCollections(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, second, all[0].ID)
		require.Equal(t, first, all[1].ID)

		// Stale references are filtered when resolved
		members, err := env.repo.CollectionPresets(ctx, first)
		require.NoError(t, err)
		require.Equal(t, []string{"p1", "p2"}, ids(members))

		ok, err := env.repo.AddToCollection(ctx, second, "p2")
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = env.repo.AddToCollection(ctx, second, "p2")
		require.NoError(t, err)
		require.True(t, ok)
		c, err = env.repo.GetCollection(ctx, second)
		require.NoError(t, err)
		require.Equal(t, []string{"p2"}, c.PresetIDs)

		ok, err = env.repo.AddToCollection(ctx, "missing", "p1")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = env.repo.RemoveFromCollection(ctx, first, "ghost")
		require.NoError(t, err)
		require.True(t, ok)
		c, err = env.repo.GetCollection(ctx, first)
		require.NoError(t, err)
		require.Equal(t, []string{"p1", "p2"}, c.PresetIDs)

		ok, err = env.repo.RemoveFromCollection(ctx, "missing", "p1")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = env.repo.DeleteCollection(ctx, first)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = env.repo.GetCollection(ctx, first)
		require.True(t, errors.Is(err, errors.ErrNotFound))

		ok, err = env.repo.DeleteCollection(ctx, first)
		require.NoError(t, err)
		require.False(t, ok)

		// Presets are untouched
		_, err = env.repo.Load(ctx, "p1")
		require.NoError(t, err)
	})
}

func TestCollections_PresetDeleteKeepsReference(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		mustSave(t, env, newPreset("p1", "One"))
		cid, err := env.repo.CreateCollection(ctx, "Keep", []string{"p1"})
		require.NoError(t, err)

		_, err = env.repo.Delete(ctx, "p1")
		require.NoError(t, err)

		c, err := env.repo.GetCollection(ctx, cid)
		require.NoError(t, err)
		require.Equal(t, []string{"p1"}, c.PresetIDs)

		members, err := env.repo.CollectionPresets(ctx, cid)
		require.NoError(t, err)
		require.Empty(t, members)
	})
}

func TestCollections_Validation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()

		_, err := env.repo.CreateCollection(ctx, "   ", nil)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))

		_, err = env.repo.AddToCollection(ctx, "", "p1")
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))

		_, err = env.repo.CollectionPresets(ctx, "missing")
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}
