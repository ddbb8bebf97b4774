package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"rentalsearch-ai/internal/indexer/mocks"
	"rentalsearch-ai/internal/listing"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fakeVectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out
}

func testDocs(n int) []listing.Document {
	docs := make([]listing.Document, n)
	for i := range docs {
		docs[i] = listing.Document{
			Text:     "Address: " + strings.Repeat("x", i+1),
			Metadata: listing.Metadata{ID: string(rune('A' + i))},
		}
	}
	return docs
}

func TestNewPipeline_DefaultBatchSize(t *testing.T) {
	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	p := NewPipeline(c, nil, 0, "model")
	if p.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", p.batchSize, DefaultBatchSize)
	}
}

func TestPipeline_Run_Batches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	var batchSizes []int
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			batchSizes = append(batchSizes, len(texts))
			return fakeVectors(texts), nil
		}).
		Times(3)

	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	p := NewPipeline(c, embedder, 2, "model")

	docs := testDocs(5)
	entries, stats, err := p.Run(context.Background(), docs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(entries) != 5 {
		t.Fatalf("Run() returned %d entries, want 5", len(entries))
	}
	if want := []int{2, 2, 1}; len(batchSizes) != 3 || batchSizes[0] != want[0] || batchSizes[2] != want[2] {
		t.Errorf("batch sizes = %v, want %v", batchSizes, want)
	}
	for i, e := range entries {
		if e.Metadata.ID != docs[i].Metadata.ID {
			t.Errorf("entry %d metadata ID = %s, want %s", i, e.Metadata.ID, docs[i].Metadata.ID)
		}
		if e.Text != docs[i].Text {
			t.Errorf("entry %d text = %q, want %q", i, e.Text, docs[i].Text)
		}
		if int(e.Vector[0]) != len(e.Text) {
			t.Errorf("entry %d got the vector of another segment", i)
		}
	}
	if stats.Documents != 5 || stats.Segments != 5 {
		t.Errorf("stats = %+v, want 5 documents and 5 segments", stats)
	}
}

func TestPipeline_Run_EmbeddingFailureIsAtomic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	providerErr := errors.New("provider unavailable")
	embedder := mocks.NewMockEmbedder(ctrl)
	gomock.InOrder(
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
				return fakeVectors(texts), nil
			}),
		embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, providerErr),
	)

	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	p := NewPipeline(c, embedder, 2, "model")

	entries, stats, err := p.Run(context.Background(), testDocs(4))
	if !errors.Is(err, providerErr) {
		t.Fatalf("Run() error = %v, want wrapped provider error", err)
	}
	if entries != nil || stats != nil {
		t.Error("Run() should not return partial results on failure")
	}
}

func TestPipeline_Run_CountMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return([][]float32{{1, 2}}, nil)

	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	p := NewPipeline(c, embedder, 10, "model")

	if _, _, err := p.Run(context.Background(), testDocs(3)); err == nil {
		t.Error("Run() should fail when the provider returns fewer vectors than texts")
	}
}

func TestPipeline_Run_EmptyCorpus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)

	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	p := NewPipeline(c, embedder, 10, "model")

	entries, stats, err := p.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Run() returned %d entries, want 0", len(entries))
	}
	if stats.Segments != 0 {
		t.Errorf("Segments = %d, want 0", stats.Segments)
	}
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)

	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	p := NewPipeline(c, embedder, 10, "model")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := p.Run(ctx, testDocs(2)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
