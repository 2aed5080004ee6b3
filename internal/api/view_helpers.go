package api

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// MetadataField extracts a value from metadata JSON using a gjson path
// (e.g. "source" or "thread.parent_id"). Non-string values are returned as
// their raw JSON text.
func MetadataField(metadata json.RawMessage, path, fallback string) string {
	if len(metadata) == 0 {
		return fallback
	}
	result := gjson.GetBytes(metadata, path)
	if !result.Exists() {
		return fallback
	}
	if result.Type == gjson.String {
		if result.Str == "" {
			return fallback
		}
		return result.Str
	}
	return result.Raw
}

// MetadataPair is one top-level metadata entry prepared for display.
type MetadataPair struct {
	Key   string
	Value string
}

// MetadataPairs lists top-level metadata entries in document order. Strings
// are unquoted; objects, arrays, numbers, and literals keep their JSON form.
func MetadataPairs(metadata json.RawMessage) []MetadataPair {
	if len(metadata) == 0 || !gjson.ValidBytes(metadata) {
		return nil
	}
	var pairs []MetadataPair
	gjson.ParseBytes(metadata).ForEach(func(key, value gjson.Result) bool {
		display := value.Raw
		if value.Type == gjson.String {
			display = value.Str
		}
		pairs = append(pairs, MetadataPair{Key: key.String(), Value: display})
		return true
	})
	return pairs
}
