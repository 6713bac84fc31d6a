package entity

import (
	"encoding/json"
	"fmt"
)

// Metadata is the open-ended key/value bag stored as JSONB.
type Metadata map[string]any

// Merge returns a copy of m with patch applied on top. Keys in patch win.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// JSON encodes the bag; a nil bag encodes as an empty object.
func (m Metadata) JSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

// ParseMetadata decodes a JSON object. Empty input yields an empty bag.
func ParseMetadata(raw []byte) (Metadata, error) {
	m := Metadata{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
