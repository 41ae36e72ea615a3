package queue

import (
	"encoding/json"
	"fmt"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// encodePayload marshals an event payload for storage.
func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("null"), nil
	}
	return json.Marshal(payload)
}

// decodePayload unmarshals raw JSON into the concrete payload type for
// the given event type, falling back to a generic map for unknown or
// custom event types.
func decodePayload(eventType models.EventType, raw []byte) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var target any
	switch eventType {
	case models.EventNewMessage:
		target = &models.NewMessagePayload{}
	case models.EventLLMCall:
		target = &models.LLMCallPayload{}
	case models.EventToolCall:
		target = &models.ToolCallPayload{}
	case models.EventToken:
		target = &models.TokenPayload{}
	case models.EventAssetCreated:
		target = &models.AssetCreatedPayload{}
	default:
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("queue: decode payload for %s: %w", eventType, err)
		}
		return m, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("queue: decode payload for %s: %w", eventType, err)
	}
	switch v := target.(type) {
	case *models.NewMessagePayload:
		return *v, nil
	case *models.LLMCallPayload:
		return *v, nil
	case *models.ToolCallPayload:
		return *v, nil
	case *models.TokenPayload:
		return *v, nil
	case *models.AssetCreatedPayload:
		return *v, nil
	default:
		return target, nil
	}
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
