package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pixelbox/internal/filesystem"
)

// Sink stores one encoded output under a slash-separated relative name and
// returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// EnsureDir creates directory structure with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// AtomicWrite writes data to path atomically using a temp file in the same directory.
func AtomicWrite(path string, data io.Reader) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp to final: %w", err)
	}
	return nil
}

// LocalSink writes outputs below a root directory.
type LocalSink struct {
	root  string
	retry filesystem.RetryConfig
}

// NewLocalSink returns a sink rooted at dir, creating it if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &LocalSink{root: dir, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the output directory.
func (s *LocalSink) Root() string {
	return s.root
}

// Path maps a relative output name to its location on disk. Names that
// would escape the root are rejected.
func (s *LocalSink) Path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	return filepath.Join(s.root, clean), nil
}

// Exists reports whether an output with this name is already on disk.
func (s *LocalSink) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := filesystem.StatWithRetry(path, s.retry)
	return err == nil && info.Mode().IsRegular()
}

// Put atomically writes data to root/name, replacing any previous file.
func (s *LocalSink) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := AtomicWrite(path, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return path, nil
}
