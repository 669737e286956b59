// Package serializer provides the bidirectional object <-> opaque-string
// codec used for both storage (the Store's data column) and transport
// (component C2 of the middleware). Domain objects are JSON-encoded and
// base64-wrapped so the result is a safe opaque string for any boundary
// transport that expects form-encoded text.
package serializer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Serialize encodes v into an opaque string. encoding/json sorts map
// keys before emitting them, so Serialize(x) is byte-stable across
// repeated calls on an equal x — unlike encoding/gob, whose map encoding
// follows Go's randomized iteration order. That stability is what makes
// serialize(deserialize(s)) == s hold for every persisted domain object,
// including the map-valued fields (Metasheet.Props, Workflow.Props,
// WorkflowEvent.QueryRegExs).
func Serialize(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Deserialize decodes an opaque string produced by Serialize into a
// freshly allocated *T.
func Deserialize[T any](s string) (*T, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("deserialize: decode base64: %w", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("deserialize: decode json: %w", err)
	}
	return &v, nil
}
