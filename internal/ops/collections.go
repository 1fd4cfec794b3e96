package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

// CreateCollection stores a new named collection and returns its id.
// Initial ids are de-duplicated, keeping the first occurrence; they are not validated.
func (r *Repository) CreateCollection(ctx context.Context, name string, presetIDs []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fail("create_collection", "", errors.NewInvalidRequest("name is required"))
	}

	c := &preset.Collection{
		ID:        NewID(),
		Name:      name,
		PresetIDs: preset.UniqueIDs(presetIDs),
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.meta.CreateCollection(ctx, c); err != nil {
		return "", fail("create_collection", c.ID, err)
	}
	return c.ID, nil
}

// AddToCollection appends a preset id unless already present.
// Returns false when the collection does not exist. The preset id is a
// soft reference and is not checked.
func (r *Repository) AddToCollection(ctx context.Context, collectionID, presetID string) (bool, error) {
	if collectionID == "" || presetID == "" {
		return false, fail("add_to_collection", collectionID, errors.NewInvalidRequest("collection_id and preset_id are required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.meta.AddToCollection(ctx, collectionID, presetID)
	if err != nil {
		return false, fail("add_to_collection", collectionID, err)
	}
	return ok, nil
}

// RemoveFromCollection drops a preset id. Returns false when the collection does not exist.
func (r *Repository) RemoveFromCollection(ctx context.Context, collectionID, presetID string) (bool, error) {
	if collectionID == "" || presetID == "" {
		return false, fail("remove_from_collection", collectionID, errors.NewInvalidRequest("collection_id and preset_id are required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.meta.RemoveFromCollection(ctx, collectionID, presetID)
	if err != nil {
		return false, fail("remove_from_collection", collectionID, err)
	}
	return ok, nil
}

// DeleteCollection removes a collection. Presets are untouched.
func (r *Repository) DeleteCollection(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, err := r.meta.DeleteCollection(ctx, id)
	if err != nil {
		return false, fail("delete_collection", id, err)
	}
	return ok, nil
}

// GetCollection returns one collection with its raw member ids.
func (r *Repository) GetCollection(ctx context.Context, id string) (*preset.Collection, error) {
	c, err := r.meta.GetCollection(ctx, id)
	if err != nil {
		return nil, fail("get_collection", id, err)
	}
	return c, nil
}

// GetAllCollections returns every collection, newest first.
func (r *Repository) GetAllCollections(ctx context.Context) ([]*preset.Collection, error) {
	collections, err := r.meta.ListCollections(ctx)
	if err != nil {
		return nil, fail("get_all_collections", "", err)
	}
	return collections, nil
}

// CollectionPresets resolves a collection's members in order, dropping stale ids.
func (r *Repository) CollectionPresets(ctx context.Context, id string) ([]*preset.Preset, error) {
	c, err := r.meta.GetCollection(ctx, id)
	if err != nil {
		return nil, fail("collection_presets", id, err)
	}
	presets, err := r.resolve(ctx, c.PresetIDs)
	if err != nil {
		return nil, fail("collection_presets", id, err)
	}
	return presets, nil
}
