package boltdb

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

// collectionRecord is the stored form of a collection. Members are kept inline.
type collectionRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	PresetIDs []string `json:"preset_ids"`
	CreatedAt int64    `json:"created_at"`
}

func (r collectionRecord) toCollection() *preset.Collection {
	ids := r.PresetIDs
	if ids == nil {
		ids = []string{}
	}
	return &preset.Collection{
		ID:        r.ID,
		Name:      r.Name,
		PresetIDs: ids,
		CreatedAt: time.Unix(0, r.CreatedAt),
	}
}

func getCollection(tx *bbolt.Tx, id string) (*collectionRecord, error) {
	b, err := bucket(tx, bucketCollections)
	if err != nil {
		return nil, err
	}
	data := b.Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	var rec collectionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.NewSerializationFailure("collection record "+id, err)
	}
	return &rec, nil
}

func putCollection(tx *bbolt.Tx, rec *collectionRecord) error {
	b, err := bucket(tx, bucketCollections)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.NewInternal(err)
	}
	return b.Put([]byte(rec.ID), data)
}

// CreateCollection stores a new collection with its initial members.
func (s *Store) CreateCollection(ctx context.Context, c *preset.Collection) error {
	return s.update("create collection", func(tx *bbolt.Tx) error {
		existing, err := getCollection(tx, c.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("collection %s already exists", c.ID)
		}
		return putCollection(tx, &collectionRecord{
			ID:        c.ID,
			Name:      c.Name,
			PresetIDs: preset.UniqueIDs(c.PresetIDs),
			CreatedAt: c.CreatedAt.UnixNano(),
		})
	})
}

// GetCollection retrieves a collection and its ordered members.
func (s *Store) GetCollection(ctx context.Context, id string) (*preset.Collection, error) {
	var c *preset.Collection
	err := s.view("read collection", func(tx *bbolt.Tx) error {
		rec, err := getCollection(tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.NewCollectionNotFound(id)
		}
		c = rec.toCollection()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCollections returns all collections, newest first.
func (s *Store) ListCollections(ctx context.Context) ([]*preset.Collection, error) {
	collections := []*preset.Collection{}
	err := s.view("list collections", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketCollections)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var rec collectionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.NewSerializationFailure("collection record "+string(k), err)
			}
			collections = append(collections, rec.toCollection())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(collections, func(i, j int) bool {
		ci, cj := collections[i].CreatedAt, collections[j].CreatedAt
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return collections[i].ID > collections[j].ID
	})
	return collections, nil
}

// AddToCollection appends presetID unless already present.
// Returns false when the collection does not exist.
func (s *Store) AddToCollection(ctx context.Context, collectionID, presetID string) (bool, error) {
	return s.modifyCollection("add to collection", collectionID, func(rec *collectionRecord) bool {
		if slices.Contains(rec.PresetIDs, presetID) {
			return false
		}
		rec.PresetIDs = append(rec.PresetIDs, presetID)
		return true
	})
}

// RemoveFromCollection drops presetID. Returns false when the collection does not exist.
func (s *Store) RemoveFromCollection(ctx context.Context, collectionID, presetID string) (bool, error) {
	return s.modifyCollection("remove from collection", collectionID, func(rec *collectionRecord) bool {
		i := slices.Index(rec.PresetIDs, presetID)
		if i < 0 {
			return false
		}
		rec.PresetIDs = slices.Delete(rec.PresetIDs, i, i+1)
		return true
	})
}

// modifyCollection applies fn to a stored collection and writes it back when fn reports a change.
func (s *Store) modifyCollection(what, id string, fn func(rec *collectionRecord) bool) (bool, error) {
	var found bool
	err := s.update(what, func(tx *bbolt.Tx) error {
		rec, err := getCollection(tx, id)
		if err != nil || rec == nil {
			return err
		}
		found = true
		if !fn(rec) {
			return nil
		}
		return putCollection(tx, rec)
	})
	return found, err
}

// DeleteCollection removes a collection. Returns false if it did not exist.
func (s *Store) DeleteCollection(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := s.update("delete collection", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketCollections)
		if err != nil {
			return err
		}
		key := []byte(id)
		if b.Get(key) == nil {
			return nil
		}
		existed = true
		return b.Delete(key)
	})
	return existed, err
}
