// Package embedding provides text embedding providers: an ONNX runtime
// model behind a cgo build tag and a deterministic hash fallback, with LRU
// caching.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the configured provider. "onnx" needs a model path and a cgo
// build; "hash" (the default) needs nothing and produces deterministic
// vectors, which keeps ingestion and search usable without a model.
func New(provider, modelPath string, dimensions, maxTokens, cacheSize int) (Embedder, error) {
	switch provider {
	case "onnx":
		return NewONNXEmbedder(modelPath, dimensions, maxTokens, cacheSize)
	case "", "hash":
		return NewHashEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}
