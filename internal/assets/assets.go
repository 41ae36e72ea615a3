// Package assets implements the asset store: save/load binary objects
// referenced by the asset://<id> URI scheme, with inline storage for
// small objects and pluggable backends for larger ones, modeled on
// internal/artifacts in the teacher.
package assets

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// ErrAssetNotFound is returned when an asset lookup fails.
var ErrAssetNotFound = errors.New("assets: asset not found")

// Backend is the pluggable byte-store behind a Store: local disk,
// S3-compatible object storage, or memory.
type Backend interface {
	Put(ctx context.Context, id string, mimeType string, data []byte) (ref string, err error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// Store persists assets, keeping small objects inline and delegating
// larger ones to a Backend — mirroring artifacts.MemoryRepository's
// inline-vs-backend split.
type Store struct {
	backend     Backend
	mu          sync.RWMutex
	metadata    map[string]*models.Asset
	inline      map[string][]byte
	backendRefs map[string]string
	inlineMax   int
	now         func() time.Time
}

// Config configures a Store.
type Config struct {
	// InlineMaxBytes is the threshold above which an asset is handed
	// to the Backend instead of kept inline in the process.
	InlineMaxBytes int
	Now            func() time.Time
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{InlineMaxBytes: models.InlineMaxBytes, Now: time.Now}
}

// New constructs a Store over the given backend. With a nil backend
// every asset is kept inline, whatever its size.
func New(backend Backend, cfg Config) *Store {
	if cfg.InlineMaxBytes <= 0 {
		cfg.InlineMaxBytes = models.InlineMaxBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		backend:     backend,
		metadata:    make(map[string]*models.Asset),
		inline:      make(map[string][]byte),
		backendRefs: make(map[string]string),
		inlineMax:   cfg.InlineMaxBytes,
		now:         cfg.Now,
	}
}
