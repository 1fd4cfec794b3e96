package boltdb

import (
	"context"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

// presetRecord is the stored form of preset metadata.
type presetRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Author       string   `json:"author"`
	Type         string   `json:"type"`
	Tags         []string `json:"tags"`
	IsFavorite   bool     `json:"is_favorite"`
	Version      int      `json:"version"`
	CustomColors *bool    `json:"custom_colors,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	ModifiedAt   int64    `json:"modified_at"`
}

func toRecord(p *preset.Preset) presetRecord {
	return presetRecord{
		ID:           p.ID,
		Name:         p.Name,
		Author:       p.Author,
		Type:         string(p.Type),
		Tags:         preset.NormalizeTags(p.Metadata.Tags),
		IsFavorite:   p.Metadata.IsFavorite,
		Version:      p.Metadata.Version,
		CustomColors: p.Metadata.CustomColors,
		CreatedAt:    p.Metadata.CreatedAt.UnixNano(),
		ModifiedAt:   p.Metadata.ModifiedAt.UnixNano(),
	}
}

func (r presetRecord) toPreset() *preset.Preset {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &preset.Preset{
		ID:     r.ID,
		Name:   r.Name,
		Author: r.Author,
		Type:   preset.Type(r.Type),
		Metadata: preset.Metadata{
			CreatedAt:    time.Unix(0, r.CreatedAt),
			ModifiedAt:   time.Unix(0, r.ModifiedAt),
			IsFavorite:   r.IsFavorite,
			Tags:         tags,
			Version:      r.Version,
			CustomColors: r.CustomColors,
		},
	}
}

func decodePreset(id string, data []byte) (*preset.Preset, error) {
	var rec presetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.NewSerializationFailure("preset record "+id, err)
	}
	return rec.toPreset(), nil
}

// GetPreset retrieves preset metadata by id.
func (s *Store) GetPreset(ctx context.Context, id string) (*preset.Preset, error) {
	var p *preset.Preset
	err := s.view("read preset metadata", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketPresets)
		if err != nil {
			return err
		}
		data := b.Get([]byte(id))
		if data == nil {
			return errors.NewNotFound(id)
		}
		p, err = decodePreset(id, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPresets returns all preset metadata, most recently modified first.
func (s *Store) ListPresets(ctx context.Context) ([]*preset.Preset, error) {
	presets := []*preset.Preset{}
	err := s.view("list presets", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketPresets)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			p, err := decodePreset(string(k), v)
			if err != nil {
				return err
			}
			presets = append(presets, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(presets, func(i, j int) bool {
		mi, mj := presets[i].Metadata.ModifiedAt, presets[j].Metadata.ModifiedAt
		if !mi.Equal(mj) {
			return mi.After(mj)
		}
		return presets[i].ID > presets[j].ID
	})
	return presets, nil
}

// PutPreset inserts or replaces preset metadata. created_at of an existing
// record is kept. Favorites membership follows IsFavorite in the same transaction.
func (s *Store) PutPreset(ctx context.Context, p *preset.Preset) error {
	rec := toRecord(p)
	return s.update("write preset metadata", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketPresets)
		if err != nil {
			return err
		}
		key := []byte(p.ID)
		if existing := b.Get(key); existing != nil {
			prev, err := decodePreset(p.ID, existing)
			if err != nil {
				return err
			}
			rec.CreatedAt = prev.Metadata.CreatedAt.UnixNano()
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return errors.NewInternal(err)
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
		return syncFavorite(tx, p.ID, p.Metadata.IsFavorite)
	})
}

// DeletePreset removes preset metadata along with favorites and recent
// membership. Collections keep their soft references.
// Returns false if no metadata existed.
func (s *Store) DeletePreset(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := s.update("delete preset metadata", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketPresets)
		if err != nil {
			return err
		}
		key := []byte(id)
		existed = b.Get(key) != nil
		if existed {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return pruneReferences(tx, id)
	})
	return existed, err
}

// hasPreset reports whether metadata exists for id.
func hasPreset(tx *bbolt.Tx, id string) (bool, error) {
	b, err := bucket(tx, bucketPresets)
	if err != nil {
		return false, err
	}
	return b.Get([]byte(id)) != nil, nil
}

// setFavoriteFlag rewrites the is_favorite field of a stored record.
func setFavoriteFlag(tx *bbolt.Tx, id string, favorite bool) error {
	b, err := bucket(tx, bucketPresets)
	if err != nil {
		return err
	}
	data := b.Get([]byte(id))
	var rec presetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return errors.NewSerializationFailure("preset record "+id, err)
	}
	if rec.IsFavorite == favorite {
		return nil
	}
	rec.IsFavorite = favorite
	updated, err := json.Marshal(rec)
	if err != nil {
		return errors.NewInternal(err)
	}
	return b.Put([]byte(id), updated)
}
