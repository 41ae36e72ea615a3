package assets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// Normalized is the result of walking a message's content (or a tool
// output) for embedded binary and moving it to the asset store.
type Normalized struct {
	// Text is the normalized content as plain text when the input was
	// a bare string (R3: normalizing text-only content is the
	// identity).
	Text string
	// Attachments is metadata.attachments: one entry per non-text
	// content part, binary parts carrying an AssetRef instead of raw
	// bytes when a store is configured.
	Attachments []models.Attachment
	// Created holds the assets newly written to the store, in order,
	// so the caller can emit one ASSET_CREATED event each (P5).
	Created []*models.Asset
}

// NormalizeContent walks payload content (a string or a list of typed
// ContentPart values) and saves any embedded binary to store, replacing
// it with an assetRef. A nil store leaves binary parts as inline data
// URLs/base64, unsaved.
func NormalizeContent(ctx context.Context, store *Store, content any) (Normalized, error) {
	if s, ok := content.(string); ok {
		return Normalized{Text: s}, nil
	}

	parts, ok := asContentParts(content)
	if !ok {
		// Not a recognized shape; stringify it verbatim rather than
		// silently dropping data.
		raw, _ := json.Marshal(content)
		return Normalized{Text: string(raw)}, nil
	}

	var result Normalized
	for _, part := range parts {
		att := models.Attachment{Kind: part.Kind, MimeType: part.MimeType, FileName: part.FileName}
		switch {
		case part.Kind == models.ContentText:
			result.Text += part.Text
			continue
		case part.AssetRef != "":
			att.AssetRef = part.AssetRef
		case part.DataBase64 != "" && store != nil:
			data, err := decodeBase64(part.DataBase64)
			if err != nil {
				return Normalized{}, fmt.Errorf("assets: decode base64 part: %w", err)
			}
			asset, err := store.Save(ctx, part.MimeType, data)
			if err != nil {
				return Normalized{}, err
			}
			att.AssetRef = Ref(asset.ID)
			result.Created = append(result.Created, asset)
		case part.DataURL != "" && store != nil:
			mimeType, data, err := decodeDataURL(part.DataURL)
			if err != nil {
				return Normalized{}, fmt.Errorf("assets: decode data url: %w", err)
			}
			if att.MimeType == "" {
				att.MimeType = mimeType
			}
			asset, err := store.Save(ctx, att.MimeType, data)
			if err != nil {
				return Normalized{}, err
			}
			att.AssetRef = Ref(asset.ID)
			result.Created = append(result.Created, asset)
		default:
			att.DataURL = part.DataURL
			if att.DataURL == "" && part.DataBase64 != "" {
				att.DataURL = "data:" + part.MimeType + ";base64," + part.DataBase64
			}
		}
		result.Attachments = append(result.Attachments, att)
	}
	return result, nil
}

func asContentParts(content any) ([]models.ContentPart, bool) {
	switch v := content.(type) {
	case []models.ContentPart:
		return v, true
	case nil:
		return nil, false
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, false
	}
	var parts []models.ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) == 0 {
		return nil, false
	}
	return parts, true
}
