package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/kotae/pkg/utils"
)

// HashEmbedder derives bag-of-words embeddings by hashing tokens into
// buckets. It stands in wherever a real model is unavailable: the same text
// always maps to the same unit-length vector, and texts sharing words land
// in shared buckets, so lexical overlap drives the similarity ordering. The
// vectors carry no semantic meaning beyond that.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a deterministic embedder of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed hashes each token into a bucket and normalizes the counts to unit
// length. Text with no tokens yields the zero vector, which similarity
// treats as matching nothing.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, word := range SplitWords(text) {
		tok := normalizeToken(word)
		if tok == "" {
			continue
		}
		vec[HashString(tok)%e.dimensions]++
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

// normalizeToken lowercases a word and strips surrounding punctuation so
// "Go," and "go" share a bucket.
func normalizeToken(word string) string {
	return strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
