package ops

import (
	"context"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/preset"
)

// OrphanBlob is content with no matching metadata entry.
type OrphanBlob struct {
	ID   string      `json:"id"`
	Type preset.Type `json:"type"`
	Path string      `json:"path"`
}

// ReconcileReport lists inconsistencies between the blob and metadata stores.
type ReconcileReport struct {
	OrphanBlobs        []OrphanBlob        `json:"orphan_blobs"`
	MissingContent     []string            `json:"missing_content"`
	StaleFavorites     []string            `json:"stale_favorites"`
	StaleRecent        []string            `json:"stale_recent"`
	FavoriteMismatches []string            `json:"favorite_mismatches"`
	StaleCollectionIDs map[string][]string `json:"stale_collection_ids"`
	Fixed              bool                `json:"fixed"`
}

// Clean reports whether nothing needs fixing. Stale collection references
// do not count.
func (rep *ReconcileReport) Clean() bool {
	return len(rep.OrphanBlobs) == 0 && len(rep.MissingContent) == 0 &&
		len(rep.StaleFavorites) == 0 && len(rep.StaleRecent) == 0 &&
		len(rep.FavoriteMismatches) == 0
}

// Reconcile sweeps both stores for partial-failure leftovers. With fix set it
// removes orphan blobs, drops metadata whose content is gone, prunes stale
// favorite/recent ids and re-syncs favorite flags. Collection references are
// only reported.
func (r *Repository) Reconcile(ctx context.Context, fix bool) (*ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.scan(ctx)
	if err != nil {
		return nil, fail("reconcile", "", err)
	}
	if !fix || report.Clean() {
		return report, nil
	}

	for _, o := range report.OrphanBlobs {
		if err := r.blobs.Delete(o.ID, o.Type); err != nil {
			return report, fail("reconcile", o.ID, errors.NewIOFailure("delete orphan content", err))
		}
	}
	for _, id := range report.MissingContent {
		if _, err := r.meta.DeletePreset(ctx, id); err != nil {
			return report, fail("reconcile", id, err)
		}
	}
	for _, id := range append(append([]string(nil), report.StaleFavorites...), report.StaleRecent...) {
		if err := r.meta.PruneReferences(ctx, id); err != nil {
			return report, fail("reconcile", id, err)
		}
	}
	for _, id := range report.FavoriteMismatches {
		p, err := r.meta.GetPreset(ctx, id)
		if err != nil {
			return report, fail("reconcile", id, err)
		}
		if _, err := r.meta.SetFavorite(ctx, id, p.Metadata.IsFavorite); err != nil {
			return report, fail("reconcile", id, err)
		}
	}

	report.Fixed = true
	logging.Info().
		Int("orphan_blobs", len(report.OrphanBlobs)).
		Int("missing_content", len(report.MissingContent)).
		Int("stale_favorites", len(report.StaleFavorites)).
		Int("stale_recent", len(report.StaleRecent)).
		Int("favorite_mismatches", len(report.FavoriteMismatches)).
		Msg("reconcile fixed inconsistencies")
	return report, nil
}

// scan must be called with mu held.
func (r *Repository) scan(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{
		OrphanBlobs:        []OrphanBlob{},
		MissingContent:     []string{},
		StaleFavorites:     []string{},
		StaleRecent:        []string{},
		FavoriteMismatches: []string{},
		StaleCollectionIDs: map[string][]string{},
	}

	all, err := r.meta.ListPresets(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*preset.Preset, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	entries, err := r.blobs.List()
	if err != nil {
		return nil, errors.NewIOFailure("list content", err)
	}
	hasBlob := make(map[string]bool, len(entries))
	for _, e := range entries {
		p, ok := byID[e.ID]
		if ok && p.Type == e.Type {
			hasBlob[e.ID] = true
			continue
		}
		report.OrphanBlobs = append(report.OrphanBlobs, OrphanBlob{ID: e.ID, Type: e.Type, Path: e.Path})
	}
	for _, p := range all {
		if !hasBlob[p.ID] {
			report.MissingContent = append(report.MissingContent, p.ID)
		}
	}

	favIDs, err := r.meta.FavoriteIDs(ctx)
	if err != nil {
		return nil, err
	}
	inFavorites := make(map[string]bool, len(favIDs))
	for _, id := range favIDs {
		inFavorites[id] = true
		if _, ok := byID[id]; !ok {
			report.StaleFavorites = append(report.StaleFavorites, id)
		}
	}
	for _, p := range all {
		if p.Metadata.IsFavorite != inFavorites[p.ID] {
			report.FavoriteMismatches = append(report.FavoriteMismatches, p.ID)
		}
	}

	recentIDs, err := r.meta.RecentIDs(ctx, MaxRecent)
	if err != nil {
		return nil, err
	}
	for _, id := range recentIDs {
		if _, ok := byID[id]; !ok {
			report.StaleRecent = append(report.StaleRecent, id)
		}
	}

	collections, err := r.meta.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		for _, id := range c.PresetIDs {
			if _, ok := byID[id]; !ok {
				report.StaleCollectionIDs[c.ID] = append(report.StaleCollectionIDs[c.ID], id)
			}
		}
	}

	return report, nil
}
