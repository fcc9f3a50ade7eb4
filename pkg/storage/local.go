// Package storage keeps backup archives and report documents on the local
// filesystem under a configured root directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/storedesk-backend/pkg/logger"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("storage object not found")

// Store is the surface services depend on.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (Object, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// Object describes a stored file.
type Object struct {
	Path string
	Size int64
}

// FileStore writes objects below Root. Paths handed back to callers are
// relative to Root so records survive a relocated data directory.
type FileStore struct {
	root string
}

// NewFileStore ensures root exists and is writable.
func NewFileStore(ctx context.Context, root string, logg *logger.Logger) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	store := &FileStore{root: root}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "root", root), "file store initialized")
	}
	return store, nil
}

// Root returns the configured directory.
func (s *FileStore) Root() string {
	return s.root
}

// Ping verifies the root directory accepts writes.
func (s *FileStore) Ping(ctx context.Context) error {
	if s == nil || s.root == "" {
		return errors.New("file store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, err := os.CreateTemp(s.root, ".ping-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// Put writes r to name atomically (temp file plus rename).
func (s *FileStore) Put(ctx context.Context, name string, r io.Reader) (Object, error) {
	rel, err := cleanName(name)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	target := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return Object{}, fmt.Errorf("creating object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	size, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)
		if copyErr != nil {
			return Object{}, fmt.Errorf("writing object: %w", copyErr)
		}
		return Object{}, fmt.Errorf("closing object: %w", closeErr)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return Object{}, fmt.Errorf("publishing object: %w", err)
	}
	return Object{Path: filepath.ToSlash(rel), Size: size}, nil
}

// Open returns a reader for a path previously returned by Put.
func (s *FileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	rel, err := cleanName(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes the object. A missing object is not an error.
func (s *FileStore) Remove(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	rel, err := cleanName(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// cleanName rejects absolute paths and anything escaping the root.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("object name is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return cleaned, nil
}
