// Package blob stores preset content as one file per preset: <root>/<id>.<ext>.
package blob

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

// DirName is the blob directory inside the data root.
const DirName = "presets"

// ErrNotExist is returned (wrapped) by Get when no blob exists for the key.
var ErrNotExist = fs.ErrNotExist

// Store is a filesystem-backed content store.
type Store struct {
	root string
}

// Entry describes one stored blob, as found by List.
type Entry struct {
	ID   string
	Type preset.Type
	Path string
	Size int64
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// ValidateID rejects ids that cannot be used as a single file name.
func ValidateID(id string) error {
	if id == "" {
		return errors.NewInvalidRequest("id is required")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`+"\x00") {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid id: %q", id))
	}
	return nil
}

// Path returns the file path for a preset's content.
func (s *Store) Path(id string, t preset.Type) string {
	return filepath.Join(s.root, id+t.Extension())
}

// Put writes content atomically, replacing any previous content for the key.
func (s *Store) Put(id string, t preset.Type, content string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return WriteFileAtomic(s.Path(id, t), []byte(content))
}

// Get reads content. The error wraps ErrNotExist when the blob is missing.
func (s *Store) Get(id string, t preset.Type) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	f, err := OpenNoFollowRead(s.Path(id, t))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", fmt.Errorf("blob %s: %w", id+t.Extension(), ErrNotExist)
		}
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether a blob is present for the key.
func (s *Store) Exists(id string, t preset.Type) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}
	_, err := os.Lstat(s.Path(id, t))
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Delete removes a blob. A missing blob is not an error.
func (s *Store) Delete(id string, t preset.Type) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.Path(id, t)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns every blob in the store, sorted by file name.
// Files with an unknown extension and in-flight temp files are skipped.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || isTempFile(name) {
			continue
		}
		ext := filepath.Ext(name)
		t := preset.Type(strings.TrimPrefix(ext, "."))
		if !t.Valid() {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if id == "" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			ID:   id,
			Type: t,
			Path: filepath.Join(s.root, name),
			Size: info.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return filepath.Base(entries[i].Path) < filepath.Base(entries[j].Path)
	})
	return entries, nil
}
