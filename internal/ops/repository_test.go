package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/presetvault/internal/blob"
	"github.com/hpungsan/presetvault/internal/boltdb"
	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/db"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

var (
	_ MetaStore = (*db.Store)(nil)
	_ MetaStore = (*boltdb.Store)(nil)
)

const sampleContent = "[preset00]\nfRating=3.000000\nfGammaAdj=2.000000\n"

// testClock advances by one millisecond on every call.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type testEnv struct {
	repo       *Repository
	meta       MetaStore
	blobs      *blob.Store
	cfg        *config.Config
	exportsDir string
}

type backend struct {
	name string
	open func(t *testing.T) MetaStore
}

var backends = []backend{
	{
		name: "sqlite",
		open: func(t *testing.T) MetaStore {
			sqlDB, err := db.Init(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = sqlDB.Close() })
			return db.NewStore(sqlDB)
		},
	},
	{
		name: "bolt",
		open: func(t *testing.T) MetaStore {
			s, err := boltdb.Open(filepath.Join(t.TempDir(), boltdb.FileName))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	},
}

func newTestEnv(t *testing.T, meta MetaStore, opts ...Option) *testEnv {
	t.Helper()
	blobs, err := blob.New(filepath.Join(t.TempDir(), "presets"))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()
	opts = append([]Option{WithExportsDir(exportsDir), WithClock(newTestClock().Now)}, opts...)

	repo, err := New(meta, blobs, cfg, opts...)
	require.NoError(t, err)
	return &testEnv{repo: repo, meta: meta, blobs: blobs, cfg: cfg, exportsDir: exportsDir}
}

// forEachBackend runs fn once per metadata backend with a fresh repository.
func forEachBackend(t *testing.T, fn func(t *testing.T, env *testEnv)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newTestEnv(t, b.open(t)))
		})
	}
}

func newPreset(id, name string) *preset.Preset {
	return &preset.Preset{
		ID:      id,
		Name:    name,
		Author:  "Ann",
		Type:    preset.TypeMilk,
		Content: sampleContent,
		Metadata: preset.Metadata{
			Tags:    []string{"test"},
			Version: 1,
		},
	}
}

func mustSave(t *testing.T, env *testEnv, p *preset.Preset) {
	t.Helper()
	require.NoError(t, env.repo.Save(context.Background(), p))
}

func ids(presets []*preset.Preset) []string {
	out := make([]string, 0, len(presets))
	for _, p := range presets {
		out = append(out, p.ID)
	}
	return out
}

func TestNew_RequiresStores(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.Error(t, err)
}

func TestNew_DefaultsConfig(t *testing.T) {
	env := newTestEnv(t, backends[0].open(t))
	require.NotNil(t, env.repo.cfg)
	require.Equal(t, env.exportsDir, env.repo.ExportsDir())
	require.NotNil(t, env.repo.Meta())
}

func TestScenario_SaveFavoriteDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		p := &preset.Preset{
			ID:      "p1",
			Name:    "Test",
			Author:  "Ann",
			Type:    preset.TypeMilk,
			Content: "[preset00]\n...",
		}
		mustSave(t, env, p)

		loaded, err := env.repo.Load(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, "[preset00]\n...", loaded.Content)

		require.NoError(t, env.repo.AddFavorite(ctx, "p1"))
		favs, err := env.repo.GetFavorites(ctx)
		require.NoError(t, err)
		require.Len(t, favs, 1)
		require.Equal(t, "Test", favs[0].Name)

		deleted, err := env.repo.Delete(ctx, "p1")
		require.NoError(t, err)
		require.True(t, deleted)

		all, err := env.repo.GetAll(ctx)
		require.NoError(t, err)
		require.Empty(t, all)
	})
}

func TestRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		colors := false
		p := newPreset("rt", "Round Trip")
		p.Metadata.Tags = []string{"a", "b", "a", " "}
		p.Metadata.Version = 3
		p.Metadata.CustomColors = &colors
		before := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		mustSave(t, env, p)

		got, err := env.repo.Load(ctx, "rt")
		require.NoError(t, err)
		require.Equal(t, sampleContent, got.Content)
		require.Equal(t, "Round Trip", got.Name)
		require.Equal(t, "Ann", got.Author)
		require.Equal(t, preset.TypeMilk, got.Type)
		require.Equal(t, []string{"a", "b"}, got.Metadata.Tags)
		require.Equal(t, 3, got.Metadata.Version)
		require.NotNil(t, got.Metadata.CustomColors)
		require.False(t, *got.Metadata.CustomColors)
		require.False(t, got.Metadata.ModifiedAt.Before(before))
		require.True(t, got.Metadata.ModifiedAt.Equal(p.Metadata.ModifiedAt))
		require.True(t, got.Metadata.CreatedAt.Equal(p.Metadata.CreatedAt))
	})
}

func TestSave_ModifiedAtMonotonic_CreatedAtKept(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		p := newPreset("mono", "Mono")
		mustSave(t, env, p)
		created := p.Metadata.CreatedAt
		firstModified := p.Metadata.ModifiedAt

		update := newPreset("mono", "Mono v2")
		update.Metadata.CreatedAt = time.Unix(1, 0)
		mustSave(t, env, update)

		got, err := env.repo.Load(ctx, "mono")
		require.NoError(t, err)
		require.Equal(t, "Mono v2", got.Name)
		require.True(t, got.Metadata.CreatedAt.Equal(created))
		require.False(t, got.Metadata.ModifiedAt.Before(firstModified))
	})
}

func TestSave_ClockGoingBackwardsDoesNotRewindModifiedAt(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		mustSave(t, env, newPreset("clk", "Clock"))
		first, err := env.repo.Load(context.Background(), "clk")
		require.NoError(t, err)

		env.repo.now = func() time.Time { return time.Unix(0, 0) }
		p := newPreset("clk", "Clock")
		mustSave(t, env, p)
		require.True(t, p.Metadata.ModifiedAt.Equal(first.Metadata.ModifiedAt))
	})
}

func TestSave_Validation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()

		require.True(t, errors.Is(env.repo.Save(ctx, nil), errors.ErrInvalidRequest))

		noID := newPreset("", "No ID")
		require.True(t, errors.Is(env.repo.Save(ctx, noID), errors.ErrInvalidRequest))

		badID := newPreset("../escape", "Bad")
		require.True(t, errors.Is(env.repo.Save(ctx, badID), errors.ErrInvalidRequest))

		badType := newPreset("bt", "Bad Type")
		badType.Type = "avs"
		require.True(t, errors.Is(env.repo.Save(ctx, badType), errors.ErrInvalidRequest))

		env.repo.cfg.PresetMaxBytes = 16
		big := newPreset("big", "Big")
		err := env.repo.Save(ctx, big)
		require.True(t, errors.Is(err, errors.ErrContentTooLarge))

		_, err = env.repo.Load(ctx, "big")
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestDeleteCompleteness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		p := newPreset("del", "Delete Me")
		p.Metadata.IsFavorite = true
		mustSave(t, env, p)
		require.NoError(t, env.repo.AddToRecent(ctx, "del"))

		deleted, err := env.repo.Delete(ctx, "del")
		require.NoError(t, err)
		require.True(t, deleted)

		_, err = env.repo.Load(ctx, "del")
		require.True(t, errors.Is(err, errors.ErrNotFound))

		favs, err := env.repo.GetFavorites(ctx)
		require.NoError(t, err)
		require.NotContains(t, ids(favs), "del")

		favIDs, err := env.meta.FavoriteIDs(ctx)
		require.NoError(t, err)
		require.Empty(t, favIDs)
		recentIDs, err := env.meta.RecentIDs(ctx, MaxRecent)
		require.NoError(t, err)
		require.Empty(t, recentIDs)

		exists, err := env.blobs.Exists("del", preset.TypeMilk)
		require.NoError(t, err)
		require.False(t, exists)

		deleted, err = env.repo.Delete(ctx, "del")
		require.NoError(t, err)
		require.False(t, deleted)
	})
}

func TestDelete_ClearsOrphanBlobWithoutMetadata(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		require.NoError(t, env.blobs.Put("ghost", preset.TypeMilk2, sampleContent))

		deleted, err := env.repo.Delete(context.Background(), "ghost")
		require.NoError(t, err)
		require.False(t, deleted)

		exists, err := env.blobs.Exists("ghost", preset.TypeMilk2)
		require.NoError(t, err)
		require.False(t, exists)
	})
}

func TestDuplicateIndependence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		src := newPreset("src", "Original")
		src.Metadata.IsFavorite = true
		src.Metadata.Version = 7
		mustSave(t, env, src)

		dupID, err := env.repo.Duplicate(ctx, "src", "")
		require.NoError(t, err)
		require.NotEqual(t, "src", dupID)

		dup, err := env.repo.Load(ctx, dupID)
		require.NoError(t, err)
		require.Equal(t, "Original (Copy)", dup.Name)
		require.Equal(t, sampleContent, dup.Content)
		require.Equal(t, 1, dup.Metadata.Version)
		require.False(t, dup.Metadata.IsFavorite)

		dup.Metadata.Tags = []string{"changed"}
		dup.Name = "Changed"
		mustSave(t, env, dup)

		orig, err := env.repo.Load(ctx, "src")
		require.NoError(t, err)
		require.Equal(t, "Original", orig.Name)
		require.Equal(t, []string{"test"}, orig.Metadata.Tags)
		require.Equal(t, 7, orig.Metadata.Version)
		require.True(t, orig.Metadata.IsFavorite)

		named, err := env.repo.Duplicate(ctx, "src", "  Custom  ")
		require.NoError(t, err)
		got, err := env.repo.Load(ctx, named)
		require.NoError(t, err)
		require.Equal(t, "Custom", got.Name)

		_, err = env.repo.Duplicate(ctx, "missing", "")
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestRecentBound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		for i := 0; i < 60; i++ {
			id := fmt.Sprintf("r%02d", i)
			mustSave(t, env, newPreset(id, id))
			require.NoError(t, env.repo.AddToRecent(ctx, id))
		}

		recent, err := env.repo.GetRecent(ctx, 100)
		require.NoError(t, err)
		require.Len(t, recent, MaxRecent)
		require.Equal(t, "r59", recent[0].ID)
		require.Equal(t, "r10", recent[len(recent)-1].ID)

		seen := map[string]bool{}
		for _, p := range recent {
			require.False(t, seen[p.ID], "duplicate %s", p.ID)
			seen[p.ID] = true
		}

		defaulted, err := env.repo.GetRecent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, defaulted, DefaultRecentLimit)
	})
}

func TestRecent_MoveToFrontAndStaleDropped(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		mustSave(t, env, newPreset("a", "A"))
		mustSave(t, env, newPreset("b", "B"))

		require.NoError(t, env.repo.AddToRecent(ctx, "a"))
		require.NoError(t, env.repo.AddToRecent(ctx, "ghost"))
		require.NoError(t, env.repo.AddToRecent(ctx, "b"))
		require.NoError(t, env.repo.AddToRecent(ctx, "a"))

		recent, err := env.repo.GetRecent(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, ids(recent))

		require.True(t, errors.Is(env.repo.AddToRecent(ctx, ""), errors.ErrInvalidRequest))
	})
}

func TestFavoriteIdempotence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		mustSave(t, env, newPreset("f1", "Fav"))

		require.NoError(t, env.repo.AddFavorite(ctx, "f1"))
		once, err := env.meta.FavoriteIDs(ctx)
		require.NoError(t, err)

		require.NoError(t, env.repo.AddFavorite(ctx, "f1"))
		twice, err := env.meta.FavoriteIDs(ctx)
		require.NoError(t, err)
		require.Equal(t, once, twice)

		loaded, err := env.repo.Load(ctx, "f1")
		require.NoError(t, err)
		require.True(t, loaded.Metadata.IsFavorite)

		require.NoError(t, env.repo.RemoveFavorite(ctx, "f1"))
		require.NoError(t, env.repo.RemoveFavorite(ctx, "f1"))
		favs, err := env.repo.GetFavorites(ctx)
		require.NoError(t, err)
		require.Empty(t, favs)
	})
}

func TestAddFavorite_UnknownIDIsNoop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		require.NoError(t, env.repo.AddFavorite(ctx, "ghost"))

		favIDs, err := env.meta.FavoriteIDs(ctx)
		require.NoError(t, err)
		require.Empty(t, favIDs)

		_, err = env.repo.Load(ctx, "ghost")
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestGetFavorites_SortedByModified(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		mustSave(t, env, newPreset("older", "Older"))
		mustSave(t, env, newPreset("newer", "Newer"))

		require.NoError(t, env.repo.AddFavorite(ctx, "newer"))
		require.NoError(t, env.repo.AddFavorite(ctx, "older"))

		favs, err := env.repo.GetFavorites(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"newer", "older"}, ids(favs))
	})
}

func TestSearchCaseInsensitivity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		p := newPreset("neon", "Neon Dreams")
		p.Author = "Geiss"
		p.Metadata.Tags = []string{"Psychedelic"}
		mustSave(t, env, p)
		mustSave(t, env, newPreset("other", "Something Else"))

		for _, q := range []string{"neon", "GEISS", "psychedelic", "Dream"} {
			found, err := env.repo.Search(ctx, q)
			require.NoError(t, err)
			require.Equal(t, []string{"neon"}, ids(found), "query %q", q)
		}

		found, err := env.repo.Search(ctx, "zzz")
		require.NoError(t, err)
		require.Empty(t, found)

		// Content is not searched
		found, err = env.repo.Search(ctx, "fRating")
		require.NoError(t, err)
		require.Empty(t, found)

		all, err := env.repo.Search(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
	})
}

func TestGetAll_NewestFirstWithoutContent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		mustSave(t, env, newPreset("first", "First"))
		mustSave(t, env, newPreset("second", "Second"))

		all, err := env.repo.GetAll(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"second", "first"}, ids(all))
		for _, p := range all {
			require.Empty(t, p.Content)
		}
	})
}

func TestConcurrentMutations_NoLostUpdates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		const n = 20

		var wg sync.WaitGroup
		errs := make(chan error, n*2)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("c%02d", i)
				if err := env.repo.Save(ctx, newPreset(id, id)); err != nil {
					errs <- err
					return
				}
				if err := env.repo.AddFavorite(ctx, id); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := env.repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, n)

		favs, err := env.repo.GetFavorites(ctx)
		require.NoError(t, err)
		require.Len(t, favs, n)
	})
}
