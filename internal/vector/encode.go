package vector

import (
	"encoding/json"
	"fmt"
)

// EncodeEmbedding serializes an embedding as a JSON array for storage in a
// text column.
func EncodeEmbedding(v []float32) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(data), nil
}

// DecodeEmbedding parses a JSON-array embedding. Empty input returns nil
// without error; malformed input returns an error so callers can skip the
// fragment rather than abort the search.
func DecodeEmbedding(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return v, nil
}
