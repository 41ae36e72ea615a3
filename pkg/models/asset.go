package models

import (
	"fmt"
	"strings"
	"time"
)

// Asset is an opaque binary object referenced from messages and tool
// outputs via the URI asset://<id>.
type Asset struct {
	ID        string    `json:"id"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Data      []byte    `json:"-"`
}

// AssetURIScheme is the fixed scheme prefix for asset references.
const AssetURIScheme = "asset://"

// AssetRef formats an asset id as its URI.
func AssetRef(id string) string {
	return AssetURIScheme + id
}

// ParseAssetRef extracts the id from an asset:// URI. ok is false if ref
// does not use the scheme.
func ParseAssetRef(ref string) (id string, ok bool) {
	if !strings.HasPrefix(ref, AssetURIScheme) {
		return "", false
	}
	return strings.TrimPrefix(ref, AssetURIScheme), true
}

// InlineMaxBytes is the threshold above which a binary content part is
// moved to the asset store rather than kept inline in a message.
const InlineMaxBytes = 1024 * 1024

func (a *Asset) String() string {
	return fmt.Sprintf("asset(%s, %s, %d bytes)", a.ID, a.MimeType, a.Size)
}
