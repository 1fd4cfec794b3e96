package ops

import (
	"context"
	"sort"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Search returns presets whose name, author or any tag contains query,
// case-insensitively. Content is not searched. An empty query matches everything.
func (r *Repository) Search(ctx context.Context, query string) ([]*preset.Preset, error) {
	all, err := r.meta.ListPresets(ctx)
	if err != nil {
		return nil, fail("search", "", err)
	}

	matches := []*preset.Preset{}
	for _, p := range all {
		if p.Matches(query) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// AddFavorite marks a preset as favorite. Idempotent. An unknown id is a
// successful no-op: neither metadata nor index entry is created.
func (r *Repository) AddFavorite(ctx context.Context, id string) error {
	return r.setFavorite(ctx, "add_favorite", id, true)
}

// RemoveFavorite clears a preset's favorite mark. Idempotent.
func (r *Repository) RemoveFavorite(ctx context.Context, id string) error {
	return r.setFavorite(ctx, "remove_favorite", id, false)
}

func (r *Repository) setFavorite(ctx context.Context, op, id string, favorite bool) error {
	if id == "" {
		return fail(op, id, errors.NewInvalidRequest("id is required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	found, err := r.meta.SetFavorite(ctx, id, favorite)
	if err != nil {
		return fail(op, id, err)
	}
	if !found {
		logging.Debug().Str("op", op).Str("id", id).Msg("favorite ignored for unknown preset")
	}
	return nil
}

// GetFavorites returns favorite presets, most recently modified first.
// Stale ids are dropped.
func (r *Repository) GetFavorites(ctx context.Context) ([]*preset.Preset, error) {
	ids, err := r.meta.FavoriteIDs(ctx)
	if err != nil {
		return nil, fail("get_favorites", "", err)
	}
	presets, err := r.resolve(ctx, ids)
	if err != nil {
		return nil, fail("get_favorites", "", err)
	}
	sortByModified(presets)
	return presets, nil
}

// AddToRecent moves id to the front of the recent list, keeping at most MaxRecent entries.
func (r *Repository) AddToRecent(ctx context.Context, id string) error {
	if id == "" {
		return fail("add_to_recent", id, errors.NewInvalidRequest("id is required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.meta.TouchRecent(ctx, id, MaxRecent); err != nil {
		return fail("add_to_recent", id, err)
	}
	return nil
}

// GetRecent resolves the first limit recent ids, dropping stale ones.
// limit <= 0 means DefaultRecentLimit.
func (r *Repository) GetRecent(ctx context.Context, limit int) ([]*preset.Preset, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	ids, err := r.meta.RecentIDs(ctx, limit)
	if err != nil {
		return nil, fail("get_recent", "", err)
	}
	presets, err := r.resolve(ctx, ids)
	if err != nil {
		return nil, fail("get_recent", "", err)
	}
	return presets, nil
}

// resolve looks ids up in order, skipping those without metadata.
func (r *Repository) resolve(ctx context.Context, ids []string) ([]*preset.Preset, error) {
	presets := make([]*preset.Preset, 0, len(ids))
	for _, id := range ids {
		p, err := r.meta.GetPreset(ctx, id)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

func sortByModified(presets []*preset.Preset) {
	sort.SliceStable(presets, func(i, j int) bool {
		return presets[i].Metadata.ModifiedAt.After(presets[j].Metadata.ModifiedAt)
	})
}
