package assets

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalBackend writes assets to date-bucketed directories on local
// disk, using an atomic write-then-rename, modeled on
// artifacts.LocalStore.
type LocalBackend struct {
	baseDir string
	clock   func() time.Time
}

// NewLocalBackend ensures baseDir exists and returns a LocalBackend
// rooted there.
func NewLocalBackend(baseDir string) (*LocalBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("assets: create base dir: %w", err)
	}
	return &LocalBackend{baseDir: baseDir, clock: time.Now}, nil
}

func (b *LocalBackend) pathFor(id, mimeType string) string {
	now := b.clock()
	ext := extensionForMime(mimeType)
	dir := filepath.Join(b.baseDir, now.Format("2006/01/02"))
	return filepath.Join(dir, id+ext)
}

// Put implements Backend.
func (b *LocalBackend) Put(ctx context.Context, id string, mimeType string, data []byte) (string, error) {
	dest := b.pathFor(id, mimeType)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("assets: mkdir: %w", err)
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("assets: write tmp: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("assets: rename: %w", err)
	}
	return dest, nil
}

// Get implements Backend. ref is the path returned by a prior Put call
// (the store records id -> ref internally via its own bookkeeping; this
// backend is path-addressed).
func (b *LocalBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	path := b.resolve(ref)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete implements Backend.
func (b *LocalBackend) Delete(ctx context.Context, ref string) error {
	path := b.resolve(ref)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve accepts either a full path under baseDir (as Put returns),
// used as is, or any other ref, which is joined onto baseDir; it does
// not search the directory for a matching file. The Store keeps its own
// id->metadata map, so in practice Get/Delete are always called with
// what Put returned.
func (b *LocalBackend) resolve(ref string) string {
	if strings.HasPrefix(ref, b.baseDir) {
		return ref
	}
	return filepath.Join(b.baseDir, ref)
}

func extensionForMime(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
