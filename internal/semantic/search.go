package semantic

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Method names the ranking strategy in document-lane responses.
const Method = "vector_similarity"

// NoDocumentsMessage signals an empty fragment store, distinct from a search
// that matched nothing.
const NoDocumentsMessage = "No documents available for search"

const (
	defaultThreshold  = 0.2
	defaultTopK       = 15
	defaultSnippetLen = 300
)

// FragmentSource enumerates every stored fragment. Implemented by the
// system store.
type FragmentSource interface {
	AllFragments(ctx context.Context) ([]models.Fragment, error)
}

// Result is the outcome of one search. Message is set only when the store
// holds no fragments at all.
type Result struct {
	Results []models.DocumentResult
	Message string
}

// Searcher embeds queries and ranks fragments by cosine similarity.
type Searcher struct {
	source     FragmentSource
	embedder   embedding.Embedder
	threshold  float64
	topK       int
	snippetLen int
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Searcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithThreshold sets the minimum similarity; matches must score strictly
// above it.
func WithThreshold(threshold float64) Option {
	return func(s *Searcher) {
		s.threshold = threshold
	}
}

// WithTopK caps the number of returned results.
func WithTopK(k int) Option {
	return func(s *Searcher) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithSnippetLength sets the content truncation length.
func WithSnippetLength(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.snippetLen = n
		}
	}
}

// WithEmbedTimeout bounds the query-embedding call.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(s *Searcher) {
		s.timeout = timeout
	}
}

// NewSearcher builds a Searcher over a fragment source and an embedding
// provider.
func NewSearcher(source FragmentSource, embedder embedding.Embedder, opts ...Option) *Searcher {
	s := &Searcher{
		source:     source,
		embedder:   embedder,
		threshold:  defaultThreshold,
		topK:       defaultTopK,
		snippetLen: defaultSnippetLen,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search embeds the query and ranks every stored fragment against it.
// Fragments without a usable embedding are skipped. Results score strictly
// above the threshold, sorted by similarity descending with (document id,
// fragment index) as the tie-break, capped at topK, content truncated for
// display.
func (s *Searcher) Search(ctx context.Context, query string) (*Result, error) {
	embedCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	queryVec, err := s.embedder.Embed(embedCtx, query)
	if err != nil {
		return nil, &SearchError{Err: err}
	}

	fragments, err := s.source.AllFragments(ctx)
	if err != nil {
		return nil, &SearchError{Err: err}
	}
	if len(fragments) == 0 {
		return &Result{Results: []models.DocumentResult{}, Message: NoDocumentsMessage}, nil
	}

	var matches []models.DocumentResult
	skipped := 0
	for _, frag := range fragments {
		if len(frag.Embedding) == 0 {
			skipped++
			continue
		}
		similarity := vector.CosineSimilarity(queryVec, frag.Embedding)
		if similarity <= s.threshold {
			continue
		}
		matches = append(matches, models.DocumentResult{
			DocumentID:      frag.DocumentID,
			ChunkIndex:      frag.ChunkIndex,
			Content:         utils.Truncate(frag.Content, s.snippetLen),
			Similarity:      similarity,
			TokenCount:      frag.TokenCount,
			ScorePercentage: int(similarity * 100),
		})
	}
	if skipped > 0 {
		s.logger.Debug("skipped fragments without embeddings", zap.Int("count", skipped))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].DocumentID != matches[j].DocumentID {
			return matches[i].DocumentID < matches[j].DocumentID
		}
		return matches[i].ChunkIndex < matches[j].ChunkIndex
	})
	if len(matches) > s.topK {
		matches = matches[:s.topK]
	}
	if matches == nil {
		matches = []models.DocumentResult{}
	}
	return &Result{Results: matches}, nil
}
