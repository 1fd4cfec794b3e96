package blob

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// tempSuffix marks in-flight writes; List skips these files.
const tempSuffix = ".tmp"

// WriteFileAtomic writes data to a temp file next to path, syncs it, then renames
// it into place. An existing file at path is left untouched on failure.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return fmt.Errorf("generate temp file name: %w", err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + tempSuffix

	file, err := OpenNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}

	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	file = nil

	// os.Rename would follow a symlink at the destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("destination is a symlink: %s", path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Windows refuses to rename onto an existing file
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				if rmErr := os.Remove(path); rmErr == nil {
					if err = os.Rename(tempPath, path); err == nil {
						success = true
						return nil
					}
				}
			}
		}
		return fmt.Errorf("finalize write: %w", err)
	}

	success = true
	return nil
}

func isTempFile(name string) bool {
	return strings.HasSuffix(name, tempSuffix)
}
