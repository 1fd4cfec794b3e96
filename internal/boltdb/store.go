// Package boltdb stores preset metadata and indices in a single bbolt file.
package boltdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hpungsan/presetvault/internal/errors"
)

// FileName is the bolt database file inside the data directory.
const FileName = "presetvault.bolt"

var (
	bucketPresets     = []byte("presets")
	bucketFavorites   = []byte("favorites")
	bucketRecent      = []byte("recent")
	bucketCollections = []byte("collections")
	bucketFlags       = []byte("flags")
	bucketSeeded      = []byte("seeded_presets")

	allBuckets = [][]byte{
		bucketPresets, bucketFavorites, bucketRecent,
		bucketCollections, bucketFlags, bucketSeeded,
	}
)

// Store implements the repository metadata store on bbolt.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the bolt file at path and ensures all buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return s, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// update runs fn in a read-write transaction. Errors that are not
// already VaultErrors become IO failures.
func (s *Store) update(what string, fn func(tx *bbolt.Tx) error) error {
	return wrap(what, s.db.Update(fn))
}

// view runs fn in a read-only transaction.
func (s *Store) view(what string, fn func(tx *bbolt.Tx) error) error {
	return wrap(what, s.db.View(fn))
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewIOFailure(what, err)
}

// bucket returns a named bucket or an error if it is missing.
func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return b, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
