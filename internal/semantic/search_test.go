package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

type fakeSource struct {
	fragments []models.Fragment
	err       error
}

func (f *fakeSource) AllFragments(context.Context) ([]models.Fragment, error) {
	return f.fragments, f.err
}

// fixedEmbedder returns a constant query vector so fragment similarities are
// fully controlled by the fragment embeddings.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (e *fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

func (e *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, e.err
}

func (e *fixedEmbedder) Dimensions() int { return len(e.vec) }

func (e *fixedEmbedder) Close() error { return nil }

func unitX() *fixedEmbedder { return &fixedEmbedder{vec: []float32{1, 0, 0}} }

func TestSearchRanksBySimilarity(t *testing.T) {
	source := &fakeSource{fragments: []models.Fragment{
		{DocumentID: "doc-1", ChunkIndex: 0, Content: "partial match", Embedding: []float32{0.6, 0.8, 0}, TokenCount: 2},
		{DocumentID: "doc-2", ChunkIndex: 0, Content: "exact match", Embedding: []float32{1, 0, 0}, TokenCount: 2},
		{DocumentID: "doc-3", ChunkIndex: 0, Content: "orthogonal", Embedding: []float32{0, 1, 0}, TokenCount: 1},
	}}
	s := NewSearcher(source, unitX())

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %d, want 2 (orthogonal fragment below threshold)", len(res.Results))
	}
	if res.Results[0].DocumentID != "doc-2" || res.Results[1].DocumentID != "doc-1" {
		t.Errorf("order = %s, %s; want doc-2 first", res.Results[0].DocumentID, res.Results[1].DocumentID)
	}
	if res.Results[0].ScorePercentage != 100 {
		t.Errorf("exact match percentage = %d, want 100", res.Results[0].ScorePercentage)
	}
	for _, r := range res.Results {
		if r.ScorePercentage != int(r.Similarity*100) {
			t.Errorf("percentage %d does not truncate similarity %f", r.ScorePercentage, r.Similarity)
		}
	}
	if res.Message != "" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

// The threshold is strict: a similarity exactly equal to it is excluded.
func TestSearchThresholdIsStrict(t *testing.T) {
	source := &fakeSource{fragments: []models.Fragment{
		{DocumentID: "doc-1", ChunkIndex: 0, Content: "identical", Embedding: []float32{1, 0, 0}},
	}}
	s := NewSearcher(source, unitX(), WithThreshold(1.0))

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 0 {
		t.Errorf("similarity equal to threshold must be excluded, got %d results", len(res.Results))
	}
	if res.Message != "" {
		t.Errorf("zero matches over a non-empty store must not set the empty-store message, got %q", res.Message)
	}
}

func TestSearchTieBreaksOnDocumentAndIndex(t *testing.T) {
	emb := []float32{1, 0, 0}
	source := &fakeSource{fragments: []models.Fragment{
		{DocumentID: "doc-b", ChunkIndex: 0, Content: "b0", Embedding: emb},
		{DocumentID: "doc-a", ChunkIndex: 2, Content: "a2", Embedding: emb},
		{DocumentID: "doc-a", ChunkIndex: 1, Content: "a1", Embedding: emb},
	}}
	s := NewSearcher(source, unitX())

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := make([]string, len(res.Results))
	for i, r := range res.Results {
		got[i] = r.Content
	}
	want := []string{"a1", "a2", "b0"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSearchCapsResults(t *testing.T) {
	var frags []models.Fragment
	for i := 0; i < 5; i++ {
		frags = append(frags, models.Fragment{
			DocumentID: "doc-1",
			ChunkIndex: i,
			Content:    "chunk",
			Embedding:  []float32{1, 0, 0},
		})
	}
	s := NewSearcher(&fakeSource{fragments: frags}, unitX(), WithTopK(2))

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 2 {
		t.Errorf("results = %d, want 2", len(res.Results))
	}
}

func TestSearchTruncatesContent(t *testing.T) {
	source := &fakeSource{fragments: []models.Fragment{{
		DocumentID: "doc-1",
		ChunkIndex: 0,
		Content:    strings.Repeat("x", 400),
		Embedding:  []float32{1, 0, 0},
	}}}
	s := NewSearcher(source, unitX())

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	content := res.Results[0].Content
	if !strings.HasSuffix(content, "...") {
		t.Errorf("truncated content missing ellipsis: %q", content[290:])
	}
	if n := utf8.RuneCountInString(content); n != 303 {
		t.Errorf("content length = %d runes, want 300 plus ellipsis", n)
	}
}

func TestSearchSkipsFragmentsWithoutEmbeddings(t *testing.T) {
	source := &fakeSource{fragments: []models.Fragment{
		{DocumentID: "doc-1", ChunkIndex: 0, Content: "no vector"},
		{DocumentID: "doc-2", ChunkIndex: 0, Content: "good", Embedding: []float32{1, 0, 0}},
	}}
	s := NewSearcher(source, unitX())

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].DocumentID != "doc-2" {
		t.Errorf("results = %+v, want only doc-2", res.Results)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	s := NewSearcher(&fakeSource{}, unitX())

	res, err := s.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Message != NoDocumentsMessage {
		t.Errorf("message = %q, want %q", res.Message, NoDocumentsMessage)
	}
	if len(res.Results) != 0 {
		t.Errorf("results = %d, want 0", len(res.Results))
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	s := NewSearcher(&fakeSource{}, &fixedEmbedder{err: errors.New("model gone")})

	_, err := s.Search(context.Background(), "anything")
	var serr *SearchError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SearchError, got %v", err)
	}
}

func TestSearchSourceFailure(t *testing.T) {
	s := NewSearcher(&fakeSource{err: errors.New("store offline")}, unitX())

	_, err := s.Search(context.Background(), "anything")
	var serr *SearchError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SearchError, got %v", err)
	}
}
