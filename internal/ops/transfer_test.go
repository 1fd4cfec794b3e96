package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/presetvault/internal/errors"
	"github.com/hpungsan/presetvault/internal/preset"
)

type fakeSharer struct {
	available bool
	err       error
	shared    []string
}

func (f *fakeSharer) Available() bool { return f.available }

func (f *fakeSharer) Share(ctx context.Context, path string) error {
	if f.err != nil {
		return f.err
	}
	f.shared = append(f.shared, path)
	return nil
}

func TestImportFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		src := filepath.Join(env.exportsDir, "Flexi - Mindblob.milk2")
		require.NoError(t, os.WriteFile(src, []byte(sampleContent), 0600))

		id, err := env.repo.ImportFile(ctx, src, "")
		require.NoError(t, err)

		got, err := env.repo.Load(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "Flexi - Mindblob", got.Name)
		require.Equal(t, ImportedAuthor, got.Author)
		require.Equal(t, preset.TypeMilk2, got.Type)
		require.Equal(t, []string{ImportedTag}, got.Metadata.Tags)
		require.Equal(t, sampleContent, got.Content)

		named, err := env.repo.ImportFile(ctx, src, "Custom")
		require.NoError(t, err)
		require.NotEqual(t, id, named)
		got, err = env.repo.Load(ctx, named)
		require.NoError(t, err)
		require.Equal(t, "Custom", got.Name)
	})
}

func TestImportFile_AnyExtensionIsMilk(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		src := filepath.Join(env.exportsDir, "notes.txt")
		require.NoError(t, os.WriteFile(src, []byte(sampleContent), 0600))

		id, err := env.repo.ImportFile(context.Background(), src, "")
		require.NoError(t, err)
		got, err := env.repo.Load(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, preset.TypeMilk, got.Type)
		require.Equal(t, "notes", got.Name)
	})
}

func TestImportFile_Failures(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()

		_, err := env.repo.ImportFile(ctx, filepath.Join(env.exportsDir, "missing.milk"), "")
		require.True(t, errors.Is(err, errors.ErrIOFailure))

		outside := filepath.Join(t.TempDir(), "outside.milk")
		require.NoError(t, os.WriteFile(outside, []byte(sampleContent), 0600))
		_, err = env.repo.ImportFile(ctx, outside, "")
		require.True(t, errors.Is(err, errors.ErrInvalidRequest))

		env.cfg.AllowedPaths = []string{filepath.Dir(outside)}
		_, err = env.repo.ImportFile(ctx, outside, "")
		require.NoError(t, err)

		env.cfg.PresetMaxBytes = 8
		big := filepath.Join(env.exportsDir, "big.milk")
		require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("x", 64)), 0600))
		_, err = env.repo.ImportFile(ctx, big, "")
		require.True(t, errors.Is(err, errors.ErrContentTooLarge))
	})
}

func TestExportFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		ctx := context.Background()
		p := newPreset("ex", "Neon: Dreams #2!")
		p.Type = preset.TypeMilk2
		mustSave(t, env, p)

		path, err := env.repo.ExportFile(ctx, "ex")
		require.NoError(t, err)
		require.Equal(t, filepath.Join(env.exportsDir, "NeonDreams2.milk2"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, sampleContent, string(data))

		// Re-export overwrites
		p.Content = "[preset00]\nfRating=5.000000\n"
		mustSave(t, env, p)
		path2, err := env.repo.ExportFile(ctx, "ex")
		require.NoError(t, err)
		require.Equal(t, path, path2)
		data, err = os.ReadFile(path2)
		require.NoError(t, err)
		require.Equal(t, p.Content, string(data))
	})
}

func TestExportFile_EmptySanitizedName(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		mustSave(t, env, newPreset("sym", "***"))

		path, err := env.repo.ExportFile(context.Background(), "sym")
		require.NoError(t, err)
		require.Equal(t, "preset.milk", filepath.Base(path))
	})
}

func TestExportFile_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env *testEnv) {
		_, err := env.repo.ExportFile(context.Background(), "missing")
		require.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestShare(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("no sharer", func(t *testing.T) {
				env := newTestEnv(t, b.open(t))
				mustSave(t, env, newPreset("sh", "Share Me"))

				ok, err := env.repo.Share(ctx, "sh")
				require.False(t, ok)
				require.True(t, errors.Is(err, errors.ErrUnavailable))

				// The export still happened
				_, statErr := os.Stat(filepath.Join(env.exportsDir, "ShareMe.milk"))
				require.NoError(t, statErr)
			})

			t.Run("sharer unavailable", func(t *testing.T) {
				env := newTestEnv(t, b.open(t), WithSharer(&fakeSharer{}))
				mustSave(t, env, newPreset("sh", "Share Me"))

				ok, err := env.repo.Share(ctx, "sh")
				require.False(t, ok)
				require.True(t, errors.Is(err, errors.ErrUnavailable))
			})

			t.Run("shared", func(t *testing.T) {
				sharer := &fakeSharer{available: true}
				env := newTestEnv(t, b.open(t), WithSharer(sharer))
				mustSave(t, env, newPreset("sh", "Share Me"))

				ok, err := env.repo.Share(ctx, "sh")
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, []string{filepath.Join(env.exportsDir, "ShareMe.milk")}, sharer.shared)
			})

			t.Run("share command fails", func(t *testing.T) {
				sharer := &fakeSharer{available: true, err: fmt.Errorf("exit status 1")}
				env := newTestEnv(t, b.open(t), WithSharer(sharer))
				mustSave(t, env, newPreset("sh", "Share Me"))

				ok, err := env.repo.Share(ctx, "sh")
				require.False(t, ok)
				require.True(t, errors.Is(err, errors.ErrIOFailure))
			})

			t.Run("missing preset", func(t *testing.T) {
				env := newTestEnv(t, b.open(t), WithSharer(&fakeSharer{available: true}))
				ok, err := env.repo.Share(ctx, "missing")
				require.False(t, ok)
				require.True(t, errors.Is(err, errors.ErrNotFound))
			})
		})
	}
}

func TestNewExecSharer(t *testing.T) {
	require.Nil(t, NewExecSharer(nil))

	s := NewExecSharer([]string{"presetvault-no-such-command"})
	require.NotNil(t, s)
	require.False(t, s.Available())
}
