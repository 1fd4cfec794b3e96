package ops

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hpungsan/presetvault/internal/blob"
	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

// Import defaults
const (
	ImportedAuthor = "Imported"
	ImportedTag    = "imported"
)

// ImportFile reads an external preset file and saves it under a new id.
// The type comes from the extension (.milk2 means milk2, anything else milk);
// name defaults to the file name without its extension.
func (r *Repository) ImportFile(ctx context.Context, sourcePath, name string) (string, error) {
	if err := ValidatePath(sourcePath, PathCheckRead, r.cfg, r.exportsDir); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			err = errors.NewIOFailure("read "+sourcePath, err)
		}
		return "", fail("import", sourcePath, err)
	}

	content, err := r.readExternal(sourcePath)
	if err != nil {
		return "", fail("import", sourcePath, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		base := filepath.Base(sourcePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	p := &preset.Preset{
		ID:      NewID(),
		Name:    name,
		Author:  ImportedAuthor,
		Type:    preset.TypeFromPath(sourcePath),
		Content: content,
		Metadata: preset.Metadata{
			Tags:    []string{ImportedTag},
			Version: 1,
		},
	}
	if err := r.Save(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// readExternal reads at most PresetMaxBytes+1 bytes so oversized files fail fast.
func (r *Repository) readExternal(path string) (string, error) {
	f, err := blob.OpenNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok && !errors.Is(err, errors.ErrNotFound) {
			return "", err
		}
		return "", errors.NewIOFailure("open "+path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if max := r.cfg.PresetMaxBytes; max > 0 {
		reader = io.LimitReader(f, int64(max)+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.NewIOFailure("read "+path, err)
	}
	if max := r.cfg.PresetMaxBytes; max > 0 && len(data) > max {
		return "", errors.NewContentTooLarge(max, len(data))
	}
	return string(data), nil
}

// ExportFile writes a preset's content into the export area as
// <sanitized name>.<ext> and returns the path. An earlier export at the
// same path is overwritten.
func (r *Repository) ExportFile(ctx context.Context, id string) (string, error) {
	p, err := r.Load(ctx, id)
	if err != nil {
		return "", err
	}

	path := filepath.Join(r.exportsDir, preset.SanitizeFilename(p.Name)+p.Type.Extension())
	if err := ValidatePath(path, PathCheckWrite, nil, r.exportsDir); err != nil {
		return "", fail("export", id, err)
	}
	if err := blob.WriteFileAtomic(path, []byte(p.Content)); err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.NewIOFailure("write export", err)
		}
		return "", fail("export", id, err)
	}
	return path, nil
}

// Share exports a preset, then hands the file to the share surface.
// Returns false with UNAVAILABLE when no share surface is present, even
// though the export itself succeeded.
func (r *Repository) Share(ctx context.Context, id string) (bool, error) {
	path, err := r.ExportFile(ctx, id)
	if err != nil {
		return false, err
	}

	if r.sharer == nil || !r.sharer.Available() {
		return false, fail("share", id, errors.NewUnavailable("sharing"))
	}
	if err := r.sharer.Share(ctx, path); err != nil {
		return false, fail("share", id, errors.NewIOFailure(fmt.Sprintf("share %s", path), err))
	}
	return true, nil
}
