package ops

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/presetvault/internal/blob"
	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/logging"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Index limits
const (
	MaxRecent          = 50
	DefaultRecentLimit = 20
)

// ExportsDirName is the export area inside the data root.
const ExportsDirName = "exports"

// MetaStore holds preset metadata and the derived indices.
// Every mutating method is a single atomic transaction in the backend.
// Lookups of a missing preset or collection return a NOT_FOUND VaultError.
type MetaStore interface {
	GetPreset(ctx context.Context, id string) (*preset.Preset, error)
	ListPresets(ctx context.Context) ([]*preset.Preset, error)
	PutPreset(ctx context.Context, p *preset.Preset) error
	DeletePreset(ctx context.Context, id string) (bool, error)

	SetFavorite(ctx context.Context, id string, favorite bool) (bool, error)
	FavoriteIDs(ctx context.Context) ([]string, error)
	TouchRecent(ctx context.Context, id string, max int) error
	RecentIDs(ctx context.Context, limit int) ([]string, error)
	PruneReferences(ctx context.Context, id string) error

	CreateCollection(ctx context.Context, c *preset.Collection) error
	GetCollection(ctx context.Context, id string) (*preset.Collection, error)
	ListCollections(ctx context.Context) ([]*preset.Collection, error)
	AddToCollection(ctx context.Context, collectionID, presetID string) (bool, error)
	RemoveFromCollection(ctx context.Context, collectionID, presetID string) (bool, error)
	DeleteCollection(ctx context.Context, id string) (bool, error)

	GetFlag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string, value bool) error
	MarkSeeded(ctx context.Context, id string) error
	IsSeeded(ctx context.Context, id string) (bool, error)
	ClearSeeded(ctx context.Context) error
}

// Repository is the single entry point for preset persistence. It keeps the
// blob store and the metadata store in step.
//
// Mutations hold mu for their whole blob+metadata sequence; reads do not.
type Repository struct {
	meta       MetaStore
	blobs      *blob.Store
	cfg        *config.Config
	sharer     Sharer
	exportsDir string
	now        func() time.Time

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithSharer sets the share surface. Without one, Share reports UNAVAILABLE.
func WithSharer(s Sharer) Option {
	return func(r *Repository) { r.sharer = s }
}

// WithExportsDir overrides the export area (default ~/.presetvault/exports).
func WithExportsDir(dir string) Option {
	return func(r *Repository) { r.exportsDir = dir }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New builds a Repository over the given stores.
func New(meta MetaStore, blobs *blob.Store, cfg *config.Config, opts ...Option) (*Repository, error) {
	if meta == nil || blobs == nil {
		return nil, fmt.Errorf("metadata store and blob store are required")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	r := &Repository{
		meta:  meta,
		blobs: blobs,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.exportsDir == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		r.exportsDir = dir
	}
	return r, nil
}

// Meta exposes the metadata store for seeding and diagnostics.
func (r *Repository) Meta() MetaStore {
	return r.meta
}

// ExportsDir returns the export area.
func (r *Repository) ExportsDir() string {
	return r.exportsDir
}

// DataDir returns ~/.presetvault.
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, ".presetvault"), nil
}

// DefaultExportsDir returns the default export area (~/.presetvault/exports).
func DefaultExportsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ExportsDirName), nil
}

// NewID creates a new ULID.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// fail logs a facade failure once, with the subject id, and returns it as a VaultError.
func fail(op, id string, err error) error {
	vErr, ok := errors.As(err)
	if !ok {
		vErr = errors.NewInternal(err)
	}
	var event *zerolog.Event
	switch vErr.Code {
	case errors.ErrNotFound, errors.ErrInvalidRequest:
		event = logging.Debug()
	case errors.ErrUnavailable, errors.ErrContentTooLarge:
		event = logging.Warn()
	default:
		event = logging.Error()
	}
	event.Str("op", op).Str("id", id).Str("code", string(vErr.Code)).Err(err).Msg("preset operation failed")
	return vErr
}
