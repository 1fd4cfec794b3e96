package ops

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/presetvault/internal/blob"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Save writes content to the blob store, then metadata to the metadata store.
// If the metadata write fails the blob write is rolled back. On success p.Metadata
// holds the stored timestamps and normalized tags.
func (r *Repository) Save(ctx context.Context, p *preset.Preset) error {
	if p == nil {
		return fail("save", "", errors.NewInvalidRequest("preset is required"))
	}
	if err := r.validate(p); err != nil {
		return fail("save", p.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.save(ctx, p); err != nil {
		return fail("save", p.ID, err)
	}
	return nil
}

func (r *Repository) validate(p *preset.Preset) error {
	if err := blob.ValidateID(p.ID); err != nil {
		return err
	}
	if !p.Type.Valid() {
		return errors.NewInvalidRequest("type must be one of: milk, milk2")
	}
	lint := preset.Lint(preset.LintInput{Content: p.Content, MaxBytes: r.cfg.PresetMaxBytes})
	if lint.TooLarge {
		return errors.NewContentTooLarge(lint.MaxBytes, lint.ActualBytes)
	}
	return nil
}

// save must be called with mu held.
func (r *Repository) save(ctx context.Context, p *preset.Preset) error {
	prev, err := r.meta.GetPreset(ctx, p.ID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	now := r.now()
	record := p.WithoutContent()
	record.Metadata.Tags = preset.NormalizeTags(record.Metadata.Tags)
	if record.Metadata.Version <= 0 {
		record.Metadata.Version = 1
	}
	switch {
	case prev != nil:
		record.Metadata.CreatedAt = prev.Metadata.CreatedAt
		if now.Before(prev.Metadata.ModifiedAt) {
			now = prev.Metadata.ModifiedAt
		}
	case record.Metadata.CreatedAt.IsZero():
		record.Metadata.CreatedAt = now
	}
	record.Metadata.ModifiedAt = now

	// Keep the previous content so a failed metadata write can be undone
	previous, hadPrevious, err := r.snapshot(p.ID, p.Type)
	if err != nil {
		return err
	}

	if err := r.blobs.Put(p.ID, p.Type, p.Content); err != nil {
		if _, ok := errors.As(err); ok {
			return err
		}
		return errors.NewIOFailure("write preset content", err)
	}

	if err := r.meta.PutPreset(ctx, record); err != nil {
		r.rollback(p.ID, p.Type, previous, hadPrevious)
		return err
	}

	if prev != nil && prev.Type != p.Type {
		if err := r.blobs.Delete(p.ID, prev.Type); err != nil {
			logging.Warn().Str("id", p.ID).Str("type", string(prev.Type)).Err(err).
				Msg("old content left behind after type change")
		}
	}

	p.Metadata = record.Metadata
	return nil
}

func (r *Repository) snapshot(id string, t preset.Type) (string, bool, error) {
	content, err := r.blobs.Get(id, t)
	if err == nil {
		return content, true, nil
	}
	if stderrors.Is(err, blob.ErrNotExist) {
		return "", false, nil
	}
	return "", false, errors.NewIOFailure("read previous content", err)
}

// rollback restores the blob to its state before a failed save.
// A failed rollback leaves an orphan that Reconcile reports.
func (r *Repository) rollback(id string, t preset.Type, previous string, hadPrevious bool) {
	var err error
	if hadPrevious {
		err = r.blobs.Put(id, t, previous)
	} else {
		err = r.blobs.Delete(id, t)
	}
	if err != nil {
		logging.Error().Str("id", id).Str("type", string(t)).Err(err).
			Msg("content rollback failed; run reconcile")
	}
}

// Load returns a preset with its content.
func (r *Repository) Load(ctx context.Context, id string) (*preset.Preset, error) {
	p, err := r.meta.GetPreset(ctx, id)
	if err != nil {
		return nil, fail("load", id, err)
	}

	content, err := r.blobs.Get(p.ID, p.Type)
	if stderrors.Is(err, blob.ErrNotExist) {
		// Loads do not take the writer lock, so a save that changed the type
		// may have removed the blob between the two reads. Look once more.
		if cur, metaErr := r.meta.GetPreset(ctx, id); metaErr == nil && cur.Type != p.Type {
			p = cur
			content, err = r.blobs.Get(p.ID, p.Type)
		}
	}
	if err != nil {
		if stderrors.Is(err, blob.ErrNotExist) {
			return nil, fail("load", id, errors.NewContentMissing(id))
		}
		return nil, fail("load", id, errors.NewIOFailure("read preset content", err))
	}
	p.Content = content
	return p, nil
}

// GetAll returns metadata for every preset, most recently modified first.
// Content is not loaded.
func (r *Repository) GetAll(ctx context.Context) ([]*preset.Preset, error) {
	presets, err := r.meta.ListPresets(ctx)
	if err != nil {
		return nil, fail("get_all", "", err)
	}
	return presets, nil
}

// Delete removes a preset's content, metadata, favorites and recent membership.
// Returns false if no metadata existed. Collections keep their references.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	if err := blob.ValidateID(id); err != nil {
		return false, fail("delete", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.meta.GetPreset(ctx, id)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return false, fail("delete", id, err)
	}

	// Without metadata the type is unknown; clear either extension
	types := []preset.Type{preset.TypeMilk, preset.TypeMilk2}
	if prev != nil {
		types = []preset.Type{prev.Type}
	}
	for _, t := range types {
		if err := r.blobs.Delete(id, t); err != nil {
			return false, fail("delete", id, errors.NewIOFailure("delete preset content", err))
		}
	}

	existed, err := r.meta.DeletePreset(ctx, id)
	if err != nil {
		return false, fail("delete", id, err)
	}
	return existed, nil
}

// Duplicate copies a preset under a new id. newName defaults to "<name> (Copy)".
// The copy starts at version 1, is not a favorite, and gets fresh timestamps.
func (r *Repository) Duplicate(ctx context.Context, id, newName string) (string, error) {
	src, err := r.Load(ctx, id)
	if err != nil {
		return "", err
	}

	dup := src.Clone()
	dup.ID = NewID()
	dup.Name = strings.TrimSpace(newName)
	if dup.Name == "" {
		dup.Name = src.Name + " (Copy)"
	}
	now := r.now()
	dup.Metadata.CreatedAt = now
	dup.Metadata.ModifiedAt = now
	dup.Metadata.Version = 1
	dup.Metadata.IsFavorite = false

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.save(ctx, dup); err != nil {
		return "", fail("duplicate", id, err)
	}
	return dup.ID, nil
}
