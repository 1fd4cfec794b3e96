package catalog

import (
	"context"
	"fmt"

	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/ops"
	"github.com/hpungsan/presetvault/internal/preset"
)

// LoadedFlag marks that a seeding pass has run.
const LoadedFlag = "bundled-presets-loaded"

// BundledTag is added to every seeded preset next to its category.
const BundledTag = "bundled"

// Seeder imports manifest entries into the repository.
type Seeder struct {
	Repo   *ops.Repository
	Source ContentSource
}

// NewSeeder builds a Seeder. A nil source means placeholder content.
func NewSeeder(repo *ops.Repository, source ContentSource) *Seeder {
	if source == nil {
		source = PlaceholderSource{}
	}
	return &Seeder{Repo: repo, Source: source}
}

// SeedOptions controls a seeding pass.
type SeedOptions struct {
	// Force runs even when LoadedFlag is set. Entries already seeded are
	// still skipped, so a forced pass retries only earlier failures.
	Force bool
}

// SeedFailure is one entry that could not be imported.
type SeedFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// SeedReport summarizes a seeding pass.
type SeedReport struct {
	Skipped       bool          `json:"skipped"`
	Imported      []string      `json:"imported"`
	AlreadySeeded int           `json:"already_seeded"`
	Failed        []SeedFailure `json:"failed"`
}

// Seed imports every manifest entry not yet recorded as seeded. A failing
// entry is logged and skipped. LoadedFlag is set after the pass even when
// entries failed; they stay out of the seeded set for a later forced pass.
func (s *Seeder) Seed(ctx context.Context, m *Manifest, opts SeedOptions) (*SeedReport, error) {
	meta := s.Repo.Meta()
	report := &SeedReport{Imported: []string{}, Failed: []SeedFailure{}}

	loaded, err := meta.GetFlag(ctx, LoadedFlag)
	if err != nil {
		return nil, err
	}
	if loaded && !opts.Force {
		logging.Debug().Msg("bundled presets already loaded")
		report.Skipped = true
		return report, nil
	}

	for _, e := range m.Presets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		seeded, err := meta.IsSeeded(ctx, e.ID)
		if err != nil {
			return report, err
		}
		if seeded {
			report.AlreadySeeded++
			continue
		}

		if err := s.seedEntry(ctx, e); err != nil {
			logging.Warn().Str("id", e.ID).Str("name", e.Name).Err(err).Msg("failed to seed bundled preset")
			report.Failed = append(report.Failed, SeedFailure{ID: e.ID, Error: err.Error()})
			continue
		}
		report.Imported = append(report.Imported, e.ID)
	}

	if err := meta.SetFlag(ctx, LoadedFlag, true); err != nil {
		return report, err
	}

	logging.Info().
		Int("imported", len(report.Imported)).
		Int("already_seeded", report.AlreadySeeded).
		Int("failed", len(report.Failed)).
		Msg("bundled presets loaded")
	return report, nil
}

func (s *Seeder) seedEntry(ctx context.Context, e Entry) error {
	content, err := s.Source.Content(e)
	if err != nil {
		return err
	}

	tags := []string{BundledTag}
	if e.Category != "" {
		tags = []string{e.Category, BundledTag}
	}
	p := &preset.Preset{
		ID:      e.ID,
		Name:    e.Name,
		Author:  e.Author,
		Type:    e.Type,
		Content: content,
		Metadata: preset.Metadata{
			Tags:    tags,
			Version: 1,
		},
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return err
	}
	if err := s.Repo.Meta().MarkSeeded(ctx, e.ID); err != nil {
		return fmt.Errorf("record seeded preset: %w", err)
	}
	return nil
}

// ResetSeed clears LoadedFlag and the seeded set, so the next pass
// re-imports every entry.
func (s *Seeder) ResetSeed(ctx context.Context) error {
	meta := s.Repo.Meta()
	if err := meta.SetFlag(ctx, LoadedFlag, false); err != nil {
		return err
	}
	if err := meta.ClearSeeded(ctx); err != nil {
		return err
	}
	logging.Info().Msg("bundled presets reset; next seed re-imports the catalog")
	return nil
}

// Loaded reports whether a seeding pass has run.
func (s *Seeder) Loaded(ctx context.Context) (bool, error) {
	return s.Repo.Meta().GetFlag(ctx, LoadedFlag)
}
