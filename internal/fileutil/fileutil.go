package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned by SaveStream when the source exceeds the limit.
var ErrTooLarge = errors.New("stream exceeds size limit")

// WriteAtomic writes dst through a temporary sibling file and renames it into
// place, so readers never observe a partially written file.
func WriteAtomic(dst string, mode os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}

// Saved describes a stream persisted by SaveStream.
type Saved struct {
	Path   string
	Size   int64
	SHA256 string
}

// SaveStream copies src to dst atomically, hashing the bytes as they pass.
// A limit <= 0 disables the size check. dst is never left behind on failure.
func SaveStream(src io.Reader, dst string, limit int64) (Saved, error) {
	hasher := sha256.New()
	var written int64
	err := WriteAtomic(dst, 0o644, func(w io.Writer) error {
		reader := src
		if limit > 0 {
			reader = io.LimitReader(src, limit+1)
		}
		n, err := io.Copy(io.MultiWriter(w, hasher), reader)
		written = n
		if err != nil {
			return fmt.Errorf("copy stream: %w", err)
		}
		if limit > 0 && n > limit {
			return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
		}
		return nil
	})
	if err != nil {
		return Saved{}, err
	}
	return Saved{Path: dst, Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}
