package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

const presetColumns = `id, name, author, type, tags_json, is_favorite, version,
	custom_colors, created_at, modified_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetPreset retrieves preset metadata by id.
func (s *Store) GetPreset(ctx context.Context, id string) (*preset.Preset, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+presetColumns+" FROM presets WHERE id = ?", id)
	p, err := scanPreset(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPresets returns all preset metadata, most recently modified first.
func (s *Store) ListPresets(ctx context.Context) ([]*preset.Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+presetColumns+" FROM presets ORDER BY modified_at DESC, id DESC")
	if err != nil {
		return nil, errors.NewIOFailure("list presets", err)
	}
	defer rows.Close()

	presets := []*preset.Preset{}
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOFailure("list presets", err)
	}
	return presets, nil
}

// PutPreset inserts or replaces preset metadata. created_at of an existing
// row is kept. Favorites membership is set to match IsFavorite in the same transaction.
func (s *Store) PutPreset(ctx context.Context, p *preset.Preset) error {
	tagsJSON, err := json.Marshal(preset.NormalizeTags(p.Metadata.Tags))
	if err != nil {
		return errors.NewInternal(err)
	}

	var customColors sql.NullInt64
	if p.Metadata.CustomColors != nil {
		customColors = sql.NullInt64{Int64: int64(boolToInt(*p.Metadata.CustomColors)), Valid: true}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO presets (`+presetColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				author = excluded.author,
				type = excluded.type,
				tags_json = excluded.tags_json,
				is_favorite = excluded.is_favorite,
				version = excluded.version,
				custom_colors = excluded.custom_colors,
				modified_at = excluded.modified_at
		`,
			p.ID, p.Name, p.Author, string(p.Type), string(tagsJSON),
			boolToInt(p.Metadata.IsFavorite), p.Metadata.Version, customColors,
			p.Metadata.CreatedAt.UnixNano(), p.Metadata.ModifiedAt.UnixNano(),
		)
		if err != nil {
			return errors.NewIOFailure("write preset metadata", err)
		}
		return syncFavorite(ctx, tx, p.ID, p.Metadata.IsFavorite)
	})
}

// DeletePreset removes preset metadata along with favorites and recent
// membership. Collections keep their soft references.
// Returns false if no metadata existed.
func (s *Store) DeletePreset(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM presets WHERE id = ?", id)
		if err != nil {
			return errors.NewIOFailure("delete preset metadata", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.NewIOFailure("delete preset metadata", err)
		}
		existed = n > 0
		return pruneReferences(ctx, tx, id)
	})
	return existed, err
}

// scanPreset scans a row selected with presetColumns.
func scanPreset(row rowScanner) (*preset.Preset, error) {
	var (
		p            preset.Preset
		typ          string
		tagsJSON     sql.NullString
		isFavorite   int
		customColors sql.NullInt64
		createdAt    int64
		modifiedAt   int64
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Author, &typ, &tagsJSON, &isFavorite,
		&p.Metadata.Version, &customColors, &createdAt, &modifiedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.NewIOFailure("read preset metadata", err)
	}

	p.Type = preset.Type(typ)
	p.Metadata.IsFavorite = isFavorite != 0
	p.Metadata.CreatedAt = time.Unix(0, createdAt)
	p.Metadata.ModifiedAt = time.Unix(0, modifiedAt)
	if customColors.Valid {
		v := customColors.Int64 != 0
		p.Metadata.CustomColors = &v
	}

	p.Metadata.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &p.Metadata.Tags); err != nil {
			return nil, errors.NewSerializationFailure("tags of preset "+p.ID, err)
		}
	}

	return &p, nil
}
