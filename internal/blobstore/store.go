// Package blobstore keeps the raw bytes behind catalog entries in a flat
// directory under collision-free generated names.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// maxNameAttempts bounds the O_EXCL retry loop.
	maxNameAttempts = 1000

	timestampLayout = "20060102150405.000000"
)

// ErrNameExhausted is returned when no free name could be generated.
var ErrNameExhausted = errors.New("no free blob name")

// seq is shared by every Store in the process.
var seq atomic.Uint64

// Store writes and reads blobs below a single directory.
type Store struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// New creates a Store on the OS filesystem, creating dir if missing.
func New(dir string) (*Store, error) {
	return NewWithFs(afero.NewOsFs(), dir)
}

// NewWithFs creates a Store on an arbitrary afero filesystem.
func NewWithFs(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &Store{fs: fs, dir: dir, now: time.Now}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Copy stores a copy of the file at srcPath. The returned lease must be
// released by the caller; Commit keeps the blob.
func (s *Store) Copy(ctx context.Context, srcPath, originalName, suffix string) (*Lease, error) {
	src, err := s.fs.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", srcPath, err)
	}
	defer src.Close()

	return s.store(ctx, src, originalName, suffix)
}

// Write stores data as a new blob.
func (s *Store) Write(ctx context.Context, data []byte, originalName, suffix string) (*Lease, error) {
	return s.store(ctx, bytes.NewReader(data), originalName, suffix)
}

// WriteFrom stores everything read from r as a new blob.
func (s *Store) WriteFrom(ctx context.Context, r io.Reader, originalName, suffix string) (*Lease, error) {
	return s.store(ctx, r, originalName, suffix)
}

func (s *Store) store(ctx context.Context, r io.Reader, originalName, suffix string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, path, err := s.createUnique(originalName, suffix)
	if err != nil {
		return nil, err
	}

	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("failed to write blob %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("failed to close blob %s: %w", path, err)
	}

	return &Lease{store: s, path: path}, nil
}

func (s *Store) createUnique(originalName, suffix string) (afero.File, string, error) {
	base, ext := splitName(originalName)
	if suffix != "" {
		base += "_" + suffix
	}
	stamp := strings.Replace(s.now().UTC().Format(timestampLayout), ".", "", 1)

	for range maxNameAttempts {
		name := base + "_" + stamp + "_" + strconv.FormatUint(seq.Add(1), 10) + ext
		path := filepath.Join(s.dir, name)

		f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create blob %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("%w for %s", ErrNameExhausted, originalName)
}

// splitName reduces an original name to a safe base and its extension.
func splitName(originalName string) (string, string) {
	name := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "file"
	}
	return base, ext
}

// Open opens a blob for reading.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", path, err)
	}
	return f, nil
}

// ReadAll returns the whole blob.
func (s *Store) ReadAll(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", path, err)
	}
	return data, nil
}

// Stat returns blob metadata.
func (s *Store) Stat(path string) (os.FileInfo, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob %s: %w", path, err)
	}
	return info, nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

// Remove deletes a blob. A missing blob is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob %s: %w", path, err)
	}
	return nil
}

// CheckWritable checks that the storage directory is writable.
func (s *Store) CheckWritable(_ context.Context) error {
	f, err := afero.TempFile(s.fs, s.dir, ".writecheck-*")
	if err != nil {
		return fmt.Errorf("storage not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return s.fs.Remove(name)
}

// Lease is a freshly written blob owned by the caller until committed.
type Lease struct {
	store     *Store
	path      string
	committed bool
	released  bool
}

// Path returns the blob location.
func (l *Lease) Path() string {
	return l.path
}

// Commit keeps the blob past Release.
func (l *Lease) Commit() {
	l.committed = true
}

// Release removes the blob unless it was committed. Safe to call more than once.
func (l *Lease) Release() {
	if l == nil || l.committed || l.released {
		return
	}
	_ = l.store.Remove(l.path)
	l.released = true
}
