package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveInline(t *testing.T) {
	store := New(nil, DefaultConfig())
	asset, err := store.Save(context.Background(), "text/plain", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), asset.Size)

	_, data, err := store.Get(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStore_SaveOverflowsToBackend(t *testing.T) {
	backend := NewMemoryBackend()
	cfg := DefaultConfig()
	cfg.InlineMaxBytes = 4
	store := New(backend, cfg)

	asset, err := store.Save(context.Background(), "text/plain", []byte("this is definitely over the threshold"))
	require.NoError(t, err)

	_, data, err := store.Get(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "this is definitely over the threshold", string(data))
}

func TestStore_Delete(t *testing.T) {
	store := New(nil, DefaultConfig())
	asset, err := store.Save(context.Background(), "text/plain", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), asset.ID))

	_, _, err = store.Get(context.Background(), asset.ID)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestNormalizeContent_PlainTextIsIdentity(t *testing.T) {
	// R3: normalizing a message whose content is only text produces no
	// attachments.
	result, err := NormalizeContent(context.Background(), nil, "just some text")
	require.NoError(t, err)
	assert.Equal(t, "just some text", result.Text)
	assert.Empty(t, result.Attachments)
	assert.Empty(t, result.Created)
}

func TestNormalizeContent_Base64PartBecomesAssetRef(t *testing.T) {
	store := New(nil, DefaultConfig())
	content := []map[string]any{
		{"kind": "image", "mimeType": "image/png", "dataBase64": "aGVsbG8="},
	}
	result, err := NormalizeContent(context.Background(), store, content)
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Len(t, result.Attachments, 1)
	assert.NotEmpty(t, result.Attachments[0].AssetRef)
}

func TestDataURLRoundTrip(t *testing.T) {
	url := EncodeDataURL("image/png", []byte("hello"))
	mimeType, data, err := decodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "hello", string(data))
}
