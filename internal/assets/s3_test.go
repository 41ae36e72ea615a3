package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3Server answers PutObject/GetObject/DeleteObject against a
// single in-memory object keyed by path, mimicking a MinIO-style
// S3-compatible endpoint closely enough to exercise S3Backend's real
// HTTP client wiring (UsePathStyle + a custom Endpoint).
func fakeS3Server(t *testing.T) (*httptest.Server, map[string][]byte) {
	t.Helper()
	objects := map[string][]byte{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			buf, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = buf
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>not found</Message><Key>`+r.URL.Path+`</Key></Error>`)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
		case http.MethodDelete:
			delete(objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	return srv, objects
}

func TestS3Backend_PutGetDeleteRoundTrip(t *testing.T) {
	srv, _ := fakeS3Server(t)
	defer srv.Close()

	backend, err := NewS3Backend(context.Background(), S3Config{
		Bucket:       "test-bucket",
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		AccessKeyID:  "test",
		SecretKey:    "test",
	})
	require.NoError(t, err)

	ref, err := backend.Put(context.Background(), "asset-1", "text/plain", []byte("hello"))
	require.NoError(t, err)

	data, err := backend.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, backend.Delete(context.Background(), ref))
}

func TestS3Backend_GetMissingKeyReturnsErrAssetNotFound(t *testing.T) {
	srv, _ := fakeS3Server(t)
	defer srv.Close()

	backend, err := NewS3Backend(context.Background(), S3Config{
		Bucket:       "test-bucket",
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		AccessKeyID:  "test",
		SecretKey:    "test",
	})
	require.NoError(t, err)

	_, err = backend.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestS3Backend_KeyPrefixIsApplied(t *testing.T) {
	srv, objects := fakeS3Server(t)
	defer srv.Close()

	backend, err := NewS3Backend(context.Background(), S3Config{
		Bucket:       "test-bucket",
		Region:       "us-east-1",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		KeyPrefix:    "assets",
		AccessKeyID:  "test",
		SecretKey:    "test",
	})
	require.NoError(t, err)

	ref, err := backend.Put(context.Background(), "asset-1", "text/plain", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "assets/asset-1", ref)
	assert.Contains(t, objects, "/test-bucket/assets/asset-1")
}
