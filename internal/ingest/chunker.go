package ingest

import "strings"

// Chunk budgets are in characters, tuned per source format.
var chunkSizes = map[string]int{
	"pdf":  1000,
	"docx": 800,
	"txt":  1200,
	"csv":  500,
}

const defaultChunkSize = 512

// ChunkContent splits extracted text into embedding-sized sections. PDF text
// splits on paragraph breaks, CSV text on rows, everything else on word
// boundaries.
func ChunkContent(content, docType string) []string {
	size, ok := chunkSizes[docType]
	if !ok {
		size = defaultChunkSize
	}
	switch docType {
	case "pdf":
		return chunkBySeparator(content, "\n\n", " ", size)
	case "csv":
		return chunkBySeparator(content, "\n", "\n", size)
	default:
		return chunkByWords(content, size)
	}
}

// chunkBySeparator accumulates parts until adding the next would overflow the
// budget, then starts a new chunk. A single oversized part becomes its own
// chunk rather than being split mid-part.
func chunkBySeparator(content, sep, join string, size int) []string {
	var chunks []string
	var current string
	for _, part := range strings.Split(content, sep) {
		switch {
		case current != "" && len(current)+len(part) > size:
			chunks = appendChunk(chunks, current)
			current = part
		case current == "":
			current = part
		default:
			current += join + part
		}
	}
	return appendChunk(chunks, current)
}

func chunkByWords(content string, size int) []string {
	var chunks []string
	var current []string
	length := 0
	for _, word := range strings.Fields(content) {
		if length+len(word) > size && len(current) > 0 {
			chunks = appendChunk(chunks, strings.Join(current, " "))
			current = []string{word}
			length = len(word)
		} else {
			current = append(current, word)
			length += len(word) + 1
		}
	}
	return appendChunk(chunks, strings.Join(current, " "))
}

func appendChunk(chunks []string, chunk string) []string {
	chunk = strings.TrimSpace(chunk)
	if chunk == "" {
		return chunks
	}
	return append(chunks, chunk)
}

// WordCount returns the whitespace-separated token count recorded per
// fragment.
func WordCount(s string) int { return len(strings.Fields(s)) }
