package boltdb

import (
	"context"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

// SetFavorite updates is_favorite and favorites membership together.
// Returns false, without touching the index, when the preset does not exist.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) (bool, error) {
	var found bool
	err := s.update("update favorite flag", func(tx *bbolt.Tx) error {
		ok, err := hasPreset(tx, id)
		if err != nil || !ok {
			return err
		}
		found = true
		if err := setFavoriteFlag(tx, id, favorite); err != nil {
			return err
		}
		return syncFavorite(tx, id, favorite)
	})
	return found, err
}

// FavoriteIDs returns favorited ids in the order they were added.
func (s *Store) FavoriteIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.view("read favorites", func(tx *bbolt.Tx) error {
		var err error
		ids, err = orderedIDs(tx, bucketFavorites, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// syncFavorite adds or removes id from the favorites bucket.
// An existing member keeps its position.
func syncFavorite(tx *bbolt.Tx, id string, favorite bool) error {
	b, err := bucket(tx, bucketFavorites)
	if err != nil {
		return err
	}
	key := []byte(id)
	if !favorite {
		return b.Delete(key)
	}
	if b.Get(key) != nil {
		return nil
	}
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	return b.Put(key, itob(seq))
}

// TouchRecent moves id to the front of the recent list and trims it to max entries.
func (s *Store) TouchRecent(ctx context.Context, id string, max int) error {
	return s.update("update recent", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketRecent)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put([]byte(id), itob(seq)); err != nil {
			return err
		}

		ids, err := orderedIDs(tx, bucketRecent, true)
		if err != nil {
			return err
		}
		if max < 0 {
			max = 0
		}
		for _, stale := range ids[min(max, len(ids)):] {
			if err := b.Delete([]byte(stale)); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecentIDs returns up to limit ids, most recent first.
func (s *Store) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.view("read recent", func(tx *bbolt.Tx) error {
		var err error
		ids, err = orderedIDs(tx, bucketRecent, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// PruneReferences removes id from the favorites and recent indices.
func (s *Store) PruneReferences(ctx context.Context, id string) error {
	return s.update("prune references", func(tx *bbolt.Tx) error {
		return pruneReferences(tx, id)
	})
}

func pruneReferences(tx *bbolt.Tx, id string) error {
	for _, name := range [][]byte{bucketFavorites, bucketRecent} {
		b, err := bucket(tx, name)
		if err != nil {
			return err
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
	}
	return nil
}

// orderedIDs returns the keys of an index bucket ordered by their stored sequence.
func orderedIDs(tx *bbolt.Tx, name []byte, newestFirst bool) ([]string, error) {
	b, err := bucket(tx, name)
	if err != nil {
		return nil, err
	}

	type entry struct {
		id  string
		seq uint64
	}
	var entries []entry
	err = b.ForEach(func(k, v []byte) error {
		entries = append(entries, entry{id: string(k), seq: btoi(v)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if newestFirst {
			return entries[i].seq > entries[j].seq
		}
		return entries[i].seq < entries[j].seq
	})
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids, nil
}

// GetFlag reads a boolean flag. Missing flags are false.
func (s *Store) GetFlag(ctx context.Context, key string) (bool, error) {
	var value bool
	err := s.view("read flag "+key, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketFlags)
		if err != nil {
			return err
		}
		value = string(b.Get([]byte(key))) == "1"
		return nil
	})
	return value, err
}

// SetFlag writes a boolean flag.
func (s *Store) SetFlag(ctx context.Context, key string, value bool) error {
	return s.update("write flag "+key, func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketFlags)
		if err != nil {
			return err
		}
		v := "0"
		if value {
			v = "1"
		}
		return b.Put([]byte(key), []byte(v))
	})
}

// MarkSeeded records that a catalog entry was imported.
func (s *Store) MarkSeeded(ctx context.Context, id string) error {
	return s.update("record seeded preset", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSeeded)
		if err != nil {
			return err
		}
		key := []byte(id)
		if b.Get(key) != nil {
			return nil
		}
		return b.Put(key, []byte(strconv.FormatInt(time.Now().Unix(), 10)))
	})
}

// IsSeeded reports whether a catalog entry was already imported.
func (s *Store) IsSeeded(ctx context.Context, id string) (bool, error) {
	var seeded bool
	err := s.view("read seeded presets", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSeeded)
		if err != nil {
			return err
		}
		seeded = b.Get([]byte(id)) != nil
		return nil
	})
	return seeded, err
}

// ClearSeeded forgets every imported catalog entry.
func (s *Store) ClearSeeded(ctx context.Context) error {
	return s.update("clear seeded presets", func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketSeeded)
		if err != nil {
			return err
		}
		var keys [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
