package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/presetvault/internal/config"
	"github.com/hpungsan/presetvault/internal/errors"
)

func TestValidatePath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"parent traversal", "../out.milk"},
		{"deep traversal", "../../etc/out.milk"},
		{"mid-path traversal", "/tmp/../etc/out.milk"},
		{"hidden in path", "/tmp/safe/../../../etc/shadow.milk"},
		{"traversal out of exports", filepath.Join(exportsDir, "..", "out.milk")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg, exportsDir)
			if err == nil {
				t.Error("expected error for path traversal, got nil")
			}
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}
}

func TestValidatePath_EmptyPath(t *testing.T) {
	err := ValidatePath("", PathCheckRead, config.DefaultConfig(), t.TempDir())
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidatePath_ExtensionRequiredForWrite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	exportsDir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"no extension", "/tmp/preset"},
		{"wrong extension", "/tmp/preset.json"},
		{"txt extension", "/tmp/preset.txt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, PathCheckWrite, cfg, exportsDir)
			if err == nil {
				t.Error("expected error for wrong extension, got nil")
			}
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got: %v", err)
			}
		})
	}

	for _, ok := range []string{"/tmp/preset.milk", "/tmp/preset.milk2"} {
		if err := ValidatePath(ok, PathCheckWrite, cfg, exportsDir); err != nil {
			t.Errorf("ValidatePath(%q) = %v, want nil", ok, err)
		}
	}
}

func TestValidatePath_ReadAcceptsAnyExtension(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}

	src := filepath.Join(dir, "preset.txt")
	if err := os.WriteFile(src, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if err := ValidatePath(src, PathCheckRead, cfg, t.TempDir()); err != nil {
		t.Errorf("expected success for read of .txt, got: %v", err)
	}
}

func TestValidatePath_DirectoryRestriction(t *testing.T) {
	cfg := config.DefaultConfig()
	exportsDir := t.TempDir()

	// Only the exports dir is allowed by default
	err := ValidatePath(filepath.Join(t.TempDir(), "out.milk"), PathCheckWrite, cfg, exportsDir)
	if err == nil {
		t.Error("expected error for path outside allowed directories, got nil")
	}
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}

	if err := ValidatePath(filepath.Join(exportsDir, "out.milk"), PathCheckWrite, cfg, exportsDir); err != nil {
		t.Errorf("expected success inside exports dir, got: %v", err)
	}
}

func TestValidatePath_AllowUnsafePaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	testFile := filepath.Join(tmpDir, "test.milk")
	if err := os.WriteFile(testFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	err := ValidatePath(testFile, PathCheckRead, cfg, t.TempDir())
	if err != nil {
		t.Errorf("expected success with AllowUnsafePaths=true, got: %v", err)
	}

	writePath := filepath.Join(tmpDir, "output.milk")
	err = ValidatePath(writePath, PathCheckWrite, cfg, t.TempDir())
	if err != nil {
		t.Errorf("expected success for write with AllowUnsafePaths=true, got: %v", err)
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{tmpDir}

	testFile := filepath.Join(tmpDir, "test.milk")
	if err := os.WriteFile(testFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	err := ValidatePath(testFile, PathCheckRead, cfg, t.TempDir())
	if err != nil {
		t.Errorf("expected success for path in AllowedPaths, got: %v", err)
	}

	otherDir := t.TempDir()
	otherFile := filepath.Join(otherDir, "other.milk")
	if err := os.WriteFile(otherFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	err = ValidatePath(otherFile, PathCheckRead, cfg, t.TempDir())
	if err == nil {
		t.Error("expected error for path outside AllowedPaths, got nil")
	}
}

func TestValidatePath_RelativeAllowedPathIgnored(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{"relative/dir"}
	exportsDir := t.TempDir()

	dirs, err := getAllowedDirs(cfg, exportsDir)
	if err != nil {
		t.Fatalf("getAllowedDirs: %v", err)
	}
	if len(dirs) != 1 {
		t.Errorf("allowed dirs = %v, want only the exports dir", dirs)
	}
}

func TestValidatePath_FileNotFound_ReadMode(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	nonExistent := filepath.Join(tmpDir, "nonexistent.milk")
	err := ValidatePath(nonExistent, PathCheckRead, cfg, t.TempDir())
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{tmpDir}

	otherDir := t.TempDir()
	targetFile := filepath.Join(otherDir, "secret.milk")
	if err := os.WriteFile(targetFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create target file: %v", err)
	}

	symlink := filepath.Join(tmpDir, "link.milk")
	if err := os.Symlink(targetFile, symlink); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	err := ValidatePath(symlink, PathCheckRead, cfg, t.TempDir())
	if err == nil {
		t.Error("expected error for symlink resolving outside allowed dirs, got nil")
	}
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidatePath_SymlinkRejected_EvenWithUnsafePaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	targetFile := filepath.Join(tmpDir, "target.milk")
	if err := os.WriteFile(targetFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create target file: %v", err)
	}

	symlink := filepath.Join(tmpDir, "link.milk")
	if err := os.Symlink(targetFile, symlink); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	// AllowUnsafePaths lifts the directory rule only
	err := ValidatePath(symlink, PathCheckRead, cfg, t.TempDir())
	if err == nil {
		t.Error("expected error for symlink even with AllowUnsafePaths=true, got nil")
	}
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestValidatePath_NestedPathRejected(t *testing.T) {
	allowedDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowedDir}

	subDir := filepath.Join(allowedDir, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	targetFile := filepath.Join(subDir, "test.milk")
	if err := os.WriteFile(targetFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create target file: %v", err)
	}

	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		err := ValidatePath(targetFile, mode, cfg, t.TempDir())
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("mode %d: expected ErrInvalidRequest for nested path, got: %v", mode, err)
		}
	}
}

func TestValidatePath_SymlinkFileRejected_Write(t *testing.T) {
	exportsDir := t.TempDir()
	cfg := config.DefaultConfig()

	otherDir := t.TempDir()
	targetFile := filepath.Join(otherDir, "secret.milk")
	if err := os.WriteFile(targetFile, []byte("[preset00]\n"), 0600); err != nil {
		t.Fatalf("failed to create target file: %v", err)
	}

	symlink := filepath.Join(exportsDir, "out.milk")
	if err := os.Symlink(targetFile, symlink); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	err := ValidatePath(symlink, PathCheckWrite, cfg, exportsDir)
	if err == nil {
		t.Error("expected error for symlink file write, got nil")
	}
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	tests := []struct {
		path     string
		contains bool
	}{
		{"/home/user/file.milk", false},
		{"../file.milk", true},
		{"/home/../etc/passwd", true},
		{"./file.milk", false},
		{"/home/user/.hidden/file.milk", false},
		{"file..name.milk", false}, // .. not as path component
		{"/tmp/a/b/../c.milk", true},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			result := containsTraversal(tc.path)
			if result != tc.contains {
				t.Errorf("containsTraversal(%q) = %v, want %v", tc.path, result, tc.contains)
			}
		})
	}
}
