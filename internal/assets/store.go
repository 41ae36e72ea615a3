package assets

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// Save stores data under a newly generated id, keeping it inline when
// it fits under InlineMaxBytes (or no backend is configured) and
// delegating to the backend otherwise. Returns the stored Asset's
// metadata; its Data field is left nil, and Get returns the bytes.
func (s *Store) Save(ctx context.Context, mimeType string, data []byte) (*models.Asset, error) {
	id := uuid.NewString()
	asset := &models.Asset{ID: id, MimeType: mimeType, Size: int64(len(data)), CreatedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) <= s.inlineMax || s.backend == nil {
		s.inline[id] = data
		s.metadata[id] = asset
		return asset, nil
	}

	ref, err := s.backend.Put(ctx, id, mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("assets: backend put: %w", err)
	}
	s.metadata[id] = asset
	s.backendRefs[id] = ref
	return asset, nil
}

// Get returns an asset's metadata and bytes by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Asset, []byte, error) {
	s.mu.RLock()
	asset, ok := s.metadata[id]
	inline, isInline := s.inline[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrAssetNotFound
	}
	if isInline {
		return asset, inline, nil
	}
	if s.backend == nil {
		return nil, nil, ErrAssetNotFound
	}
	s.mu.RLock()
	ref := s.backendRefs[id]
	s.mu.RUnlock()
	data, err := s.backend.Get(ctx, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("assets: backend get: %w", err)
	}
	return asset, data, nil
}

// Delete removes an asset's bytes and metadata.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, isInline := s.inline[id]
	ref := s.backendRefs[id]
	delete(s.metadata, id)
	delete(s.inline, id)
	delete(s.backendRefs, id)
	s.mu.Unlock()

	if !isInline && s.backend != nil {
		if err := s.backend.Delete(ctx, ref); err != nil {
			return fmt.Errorf("assets: backend delete: %w", err)
		}
	}
	return nil
}

// Ref formats id as an asset:// URI.
func Ref(id string) string { return models.AssetRef(id) }
