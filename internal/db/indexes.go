package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/presetvault/internal/errors"
)

// SetFavorite updates is_favorite and favorites membership together.
// Returns false, without touching the index, when the preset does not exist.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) (bool, error) {
	var found bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE presets SET is_favorite = ? WHERE id = ?", boolToInt(favorite), id)
		if err != nil {
			return errors.NewIOFailure("update favorite flag", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.NewIOFailure("update favorite flag", err)
		}
		if n == 0 {
			return nil
		}
		found = true
		return syncFavorite(ctx, tx, id, favorite)
	})
	return found, err
}

// FavoriteIDs returns favorited ids in the order they were added.
func (s *Store) FavoriteIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, "favorites", "SELECT id FROM favorites ORDER BY seq ASC")
}

// syncFavorite adds or removes id from the favorites index.
// An existing member keeps its position.
func syncFavorite(ctx context.Context, tx *sql.Tx, id string, favorite bool) error {
	if !favorite {
		if _, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id); err != nil {
			return errors.NewIOFailure("update favorites", err)
		}
		return nil
	}
	seq, err := nextSeq(ctx, tx, "favorites")
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO favorites (id, seq) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", id, seq); err != nil {
		return errors.NewIOFailure("update favorites", err)
	}
	return nil
}

// TouchRecent moves id to the front of the recent list and trims it to max entries.
func (s *Store) TouchRecent(ctx context.Context, id string, max int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		seq, err := nextSeq(ctx, tx, "recent")
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recent (id, seq) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET seq = excluded.seq
		`, id, seq); err != nil {
			return errors.NewIOFailure("update recent", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM recent WHERE id NOT IN (
				SELECT id FROM recent ORDER BY seq DESC LIMIT ?
			)
		`, max); err != nil {
			return errors.NewIOFailure("trim recent", err)
		}
		return nil
	})
}

// RecentIDs returns up to limit ids, most recent first.
func (s *Store) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	return s.queryIDs(ctx, "recent", "SELECT id FROM recent ORDER BY seq DESC LIMIT ?", limit)
}

// PruneReferences removes id from the favorites and recent indices.
func (s *Store) PruneReferences(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return pruneReferences(ctx, tx, id)
	})
}

func pruneReferences(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id); err != nil {
		return errors.NewIOFailure("update favorites", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM recent WHERE id = ?", id); err != nil {
		return errors.NewIOFailure("update recent", err)
	}
	return nil
}

// GetFlag reads a boolean flag. Missing flags are false.
func (s *Store) GetFlag(ctx context.Context, key string) (bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx, "SELECT value FROM flags WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewIOFailure("read flag "+key, err)
	}
	return value != 0, nil
}

// SetFlag writes a boolean flag.
func (s *Store) SetFlag(ctx context.Context, key string, value bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flags (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, boolToInt(value))
	if err != nil {
		return errors.NewIOFailure("write flag "+key, err)
	}
	return nil
}

// MarkSeeded records that a catalog entry was imported.
func (s *Store) MarkSeeded(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seeded_presets (id, seeded_at) VALUES (?, strftime('%s', 'now'))
		ON CONFLICT(id) DO NOTHING
	`, id)
	if err != nil {
		return errors.NewIOFailure("record seeded preset", err)
	}
	return nil
}

// IsSeeded reports whether a catalog entry was already imported.
func (s *Store) IsSeeded(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM seeded_presets WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewIOFailure("read seeded presets", err)
	}
	return true, nil
}

// queryIDs runs a query returning a single id column.
func (s *Store) queryIDs(ctx context.Context, what, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewIOFailure("read "+what, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewIOFailure("read "+what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOFailure("read "+what, err)
	}
	return ids, nil
}

// ClearSeeded forgets every imported catalog entry.
func (s *Store) ClearSeeded(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM seeded_presets"); err != nil {
		return errors.NewIOFailure("clear seeded presets", err)
	}
	return nil
}
