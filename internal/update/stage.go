package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"
)

// copyVerified copies src to dst through a temp file in dst's directory.
func copyVerified(src, dst string) error {
	tempPath, err := writeVerified(src, dst)
	if err != nil {
		return err
	}
	if err := os.Rename(tempPath, dst); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to install %s: %w", dst, err)
	}
	return nil
}

// writeVerified writes a complete copy of src next to dst and returns the
// temp path. The copy is only returned once its bytes hash the same as the
// source; the source file mode is preserved.
func writeVerified(src, dst string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}

	source, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = source.Close() }()

	tempFile, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*.partial")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	fail := func(err error) (string, error) {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return "", err
	}

	want := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(tempFile, want), source); err != nil {
		return fail(fmt.Errorf("copy %s: %w", src, err))
	}
	if err := tempFile.Sync(); err != nil {
		return fail(err)
	}
	if err := tempFile.Close(); err != nil {
		return fail(err)
	}

	got, err := fileHash(tempPath)
	if err != nil {
		return fail(err)
	}
	if got != want.Sum64() {
		return fail(fmt.Errorf("copy of %s is corrupt: xxhash %016x, want %016x", src, got, want.Sum64()))
	}
	if err := os.Chmod(tempPath, info.Mode().Perm()); err != nil {
		return fail(fmt.Errorf("failed to set permissions: %w", err))
	}
	log.Debugf("copied %s -> %s (xxhash %016x)", src, tempPath, got)
	return tempPath, nil
}

func fileHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum64(), nil
}
