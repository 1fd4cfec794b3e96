package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

// CreateCollection stores a new collection with its initial members.
func (s *Store) CreateCollection(ctx context.Context, c *preset.Collection) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collections (id, name, created_at) VALUES (?, ?, ?)",
			c.ID, c.Name, c.CreatedAt.UnixNano()); err != nil {
			return errors.NewIOFailure("create collection", err)
		}
		for i, pid := range preset.UniqueIDs(c.PresetIDs) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO collection_items (collection_id, preset_id, position) VALUES (?, ?, ?)",
				c.ID, pid, i+1); err != nil {
				return errors.NewIOFailure("create collection", err)
			}
		}
		return nil
	})
}

// GetCollection retrieves a collection and its ordered members.
func (s *Store) GetCollection(ctx context.Context, id string) (*preset.Collection, error) {
	var (
		c         preset.Collection
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM collections WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewCollectionNotFound(id)
	}
	if err != nil {
		return nil, errors.NewIOFailure("read collection", err)
	}
	c.CreatedAt = time.Unix(0, createdAt)

	c.PresetIDs, err = s.queryIDs(ctx, "collection items",
		"SELECT preset_id FROM collection_items WHERE collection_id = ? ORDER BY position ASC", id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCollections returns all collections, newest first.
func (s *Store) ListCollections(ctx context.Context) ([]*preset.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at, i.preset_id
		FROM collections c
		LEFT JOIN collection_items i ON i.collection_id = c.id
		ORDER BY c.created_at DESC, c.id DESC, i.position ASC
	`)
	if err != nil {
		return nil, errors.NewIOFailure("list collections", err)
	}
	defer rows.Close()

	collections := []*preset.Collection{}
	var cur *preset.Collection
	for rows.Next() {
		var (
			id, name  string
			createdAt int64
			presetID  sql.NullString
		)
		if err := rows.Scan(&id, &name, &createdAt, &presetID); err != nil {
			return nil, errors.NewIOFailure("list collections", err)
		}
		if cur == nil || cur.ID != id {
			cur = &preset.Collection{
				ID:        id,
				Name:      name,
				PresetIDs: []string{},
				CreatedAt: time.Unix(0, createdAt),
			}
			collections = append(collections, cur)
		}
		if presetID.Valid {
			cur.PresetIDs = append(cur.PresetIDs, presetID.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOFailure("list collections", err)
	}
	return collections, nil
}

// AddToCollection appends presetID unless already a member.
// Returns false when the collection does not exist.
func (s *Store) AddToCollection(ctx context.Context, collectionID, presetID string) (bool, error) {
	var found bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM collections WHERE id = ?", collectionID).Scan(&one)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return errors.NewIOFailure("read collection", err)
		}
		found = true

		var pos int64
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(position), 0) + 1 FROM collection_items WHERE collection_id = ?",
			collectionID).Scan(&pos); err != nil {
			return errors.NewIOFailure("read collection", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collection_items (collection_id, preset_id, position) VALUES (?, ?, ?)
			ON CONFLICT(collection_id, preset_id) DO NOTHING
		`, collectionID, presetID, pos); err != nil {
			return errors.NewIOFailure("update collection", err)
		}
		return nil
	})
	return found, err
}

// RemoveFromCollection drops presetID from a collection.
// Returns false when the collection does not exist.
func (s *Store) RemoveFromCollection(ctx context.Context, collectionID, presetID string) (bool, error) {
	var found bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM collections WHERE id = ?", collectionID).Scan(&one)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return errors.NewIOFailure("read collection", err)
		}
		found = true

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM collection_items WHERE collection_id = ? AND preset_id = ?",
			collectionID, presetID); err != nil {
			return errors.NewIOFailure("update collection", err)
		}
		return nil
	})
	return found, err
}

// DeleteCollection removes a collection and its member list.
// Returns false when it did not exist.
func (s *Store) DeleteCollection(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
		if err != nil {
			return errors.NewIOFailure("delete collection", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.NewIOFailure("delete collection", err)
		}
		existed = n > 0
		if _, err := tx.ExecContext(ctx, "DELETE FROM collection_items WHERE collection_id = ?", id); err != nil {
			return errors.NewIOFailure("delete collection", err)
		}
		return nil
	})
	return existed, err
}
