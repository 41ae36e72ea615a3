package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// decodeDataURL splits a "data:<mime>;base64,<data>" string into its
// mime type and decoded bytes.
func decodeDataURL(dataURL string) (mimeType string, data []byte, err error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}
	rest := strings.TrimPrefix(dataURL, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	header, encoded := rest[:comma], rest[comma+1:]
	mimeType = strings.TrimSuffix(header, ";base64")
	if strings.HasSuffix(header, ";base64") {
		data, err = base64.StdEncoding.DecodeString(encoded)
		return mimeType, data, err
	}
	return mimeType, []byte(encoded), nil
}

// EncodeDataURL formats mimeType and data as a "data:...;base64,..." URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// InlineForLLM resolves an attachment to provider-appropriate inline
// data: a data URL for images and files, base64 for audio. Non-asset
// attachments (already a data URL, or text) pass through unchanged.
func InlineForLLM(ctx context.Context, store *Store, att AttachmentRef) (string, error) {
	if att.AssetRef == "" {
		return att.DataURL, nil
	}
	id, ok := parseRef(att.AssetRef)
	if !ok {
		return att.DataURL, nil
	}
	asset, data, err := store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("assets: resolve %s for llm turn: %w", att.AssetRef, err)
	}
	switch att.Kind {
	case "audio":
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return EncodeDataURL(asset.MimeType, data), nil
	}
}

// AttachmentRef is the minimal shape InlineForLLM needs from a
// models.Attachment, kept separate to avoid forcing callers through the
// full Attachment type.
type AttachmentRef struct {
	Kind     string
	AssetRef string
	DataURL  string
}

func parseRef(ref string) (string, bool) {
	const scheme = "asset://"
	if !strings.HasPrefix(ref, scheme) {
		return "", false
	}
	return strings.TrimPrefix(ref, scheme), true
}
