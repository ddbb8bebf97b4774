package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/llm"
	"rentalsearch-ai/internal/rag/mocks"
	"rentalsearch-ai/internal/vectorstore"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// constantEmbed maps every text to the same direction so ties keep corpus order.
func constantEmbed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 1, 1}
	}
	return out, nil
}

type engineFixture struct {
	engine    Engine
	index     *vectorstore.MemoryIndex
	source    *mocks.MockCorpusSource
	embedder  *mocks.MockEmbedder
	completer *mocks.MockCompleter
}

func newEngineFixture(t *testing.T, opts Options) *engineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &engineFixture{
		index:     vectorstore.NewMemoryIndex(),
		source:    mocks.NewMockCorpusSource(ctrl),
		embedder:  mocks.NewMockEmbedder(ctrl),
		completer: mocks.NewMockCompleter(ctrl),
	}

	engine, err := NewEngine(Deps{
		Source:    f.source,
		Embedder:  f.embedder,
		Completer: f.completer,
		Index:     f.index,
	}, opts)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	f.engine = engine
	return f
}

func TestNewEngine_Validation(t *testing.T) {
	if _, err := NewEngine(Deps{}, Options{}); err == nil {
		t.Error("NewEngine() without dependencies should fail")
	}

	f := newEngineFixture(t, Options{})
	_, err := NewEngine(Deps{
		Source:    f.source,
		Embedder:  f.embedder,
		Completer: f.completer,
		Index:     f.index,
	}, Options{PromptTemplate: "missing placeholders"})
	if err == nil {
		t.Error("NewEngine() should reject an invalid prompt template")
	}

	_, err = NewEngine(Deps{
		Source:    f.source,
		Embedder:  f.embedder,
		Completer: f.completer,
		Index:     f.index,
	}, Options{ChunkSize: 10, ChunkOverlap: 10})
	if err == nil {
		t.Error("NewEngine() should reject overlap >= chunk size")
	}
}

func TestEngine_Answer_SingleListing(t *testing.T) {
	f := newEngineFixture(t, Options{})

	f.source.EXPECT().Load(gomock.Any()).Return([]listing.Record{{
		ID:               "1",
		FormattedAddress: "123 Main St",
		PropertyType:     "Apartment",
		Price:            ptr(1000),
		Bedrooms:         ptr(2),
		Bathrooms:        ptr(1),
	}}, nil)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed).Times(2)

	var prompt string
	f.completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), llm.ChatParams{MaxTokens: DefaultMaxTokens, Temperature: 0}).
		DoAndReturn(func(_ context.Context, p string, _ llm.ChatParams) (string, error) {
			prompt = p
			return "1. Address: 123 Main St - $1000", nil
		})

	if f.engine.Status() != StatusUninitialized {
		t.Fatalf("Status() = %v, want uninitialized", f.engine.Status())
	}

	answer, err := f.engine.Answer(context.Background(), "2 bedroom apartment under $1200")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "1. Address: 123 Main St - $1000" {
		t.Errorf("Answer() = %q", answer)
	}

	wantContext := "1. Address: 123 Main St\n   Type: Apartment\n   Price: $1000\n   Bedrooms: 2\n   Bathrooms: 1\n"
	if prompt != RenderPrompt(DefaultPromptTemplate, "2 bedroom apartment under $1200", wantContext) {
		t.Errorf("prompt does not carry exactly one formatted listing:\n%s", prompt)
	}
	if f.engine.Status() != StatusReady {
		t.Errorf("Status() = %v, want ready", f.engine.Status())
	}
	stats := f.engine.Stats()
	if stats == nil || stats.Documents != 1 || stats.Segments != 1 {
		t.Errorf("Stats() = %+v, want 1 document and 1 segment", stats)
	}
}

func TestEngine_Answer_EmptyCorpus(t *testing.T) {
	f := newEngineFixture(t, Options{})

	f.source.EXPECT().Load(gomock.Any()).Return([]listing.Record{}, nil)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), []string{"anything"}).DoAndReturn(constantEmbed)
	f.completer.EXPECT().
		Complete(gomock.Any(), RenderPrompt(DefaultPromptTemplate, "anything", ""), gomock.Any()).
		Return("No properties are available.", nil)

	answer, err := f.engine.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer != "No properties are available." {
		t.Errorf("Answer() = %q", answer)
	}

	count, _ := f.engine.Count(context.Background())
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}
	if f.engine.Status() != StatusReady {
		t.Errorf("Status() = %v, want ready", f.engine.Status())
	}
}

func TestEngine_Answer_CollapsesSameAddressAndPrice(t *testing.T) {
	f := newEngineFixture(t, Options{})

	f.source.EXPECT().Load(gomock.Any()).Return([]listing.Record{
		{FormattedAddress: "5 Elm St", Price: ptr(1500), Status: "Active"},
		{FormattedAddress: "5 Elm St", Price: ptr(1500), Status: "Inactive"},
	}, nil)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed).Times(2)

	var prompt string
	f.completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p string, _ llm.ChatParams) (string, error) {
			prompt = p
			return "ok", nil
		})

	if _, err := f.engine.Answer(context.Background(), "elm street"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if got := strings.Count(prompt, "Address: 5 Elm St"); got != 1 {
		t.Errorf("prompt lists the address %d times, want 1", got)
	}
	if strings.Contains(prompt, "2. Address:") {
		t.Error("prompt should contain a single numbered entry")
	}
}

func TestEngine_Answer_GenerationTimeoutKeepsReady(t *testing.T) {
	f := newEngineFixture(t, Options{Timeout: 20 * time.Millisecond})

	f.source.EXPECT().Load(gomock.Any()).Return([]listing.Record{{ID: "1", FormattedAddress: "1 Main St"}}, nil)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed).AnyTimes()
	gomock.InOrder(
		f.completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ string, _ llm.ChatParams) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			}),
		f.completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("second answer", nil),
	)

	_, err := f.engine.Answer(context.Background(), "first")
	if !IsTimeout(err) {
		t.Fatalf("Answer() error = %v, want timed-out GenerationError", err)
	}
	if f.engine.Status() != StatusReady {
		t.Errorf("Status() = %v after generation timeout, want ready", f.engine.Status())
	}

	answer, err := f.engine.Answer(context.Background(), "second")
	if err != nil {
		t.Fatalf("second Answer() error = %v", err)
	}
	if answer != "second answer" {
		t.Errorf("second Answer() = %q", answer)
	}
}

func TestEngine_Build_FailureThenRetry(t *testing.T) {
	f := newEngineFixture(t, Options{})

	gomock.InOrder(
		f.source.EXPECT().Load(gomock.Any()).Return(nil, errors.New("file missing")),
		f.source.EXPECT().Load(gomock.Any()).Return([]listing.Record{{ID: "1"}}, nil),
	)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed).Times(2)
	f.completer.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return("ok", nil)

	_, err := f.engine.Answer(context.Background(), "q")
	var notReady *IndexNotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("Answer() error = %v, want IndexNotReadyError", err)
	}
	var loadErr *listing.LoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("Answer() error = %v, want wrapped LoadError", err)
	}
	if f.engine.Status() != StatusUninitialized {
		t.Errorf("Status() = %v after failed build, want uninitialized", f.engine.Status())
	}
	if f.engine.Stats() != nil {
		t.Error("Stats() should be nil before a successful build")
	}

	if _, err := f.engine.Answer(context.Background(), "q"); err != nil {
		t.Fatalf("retry Answer() error = %v", err)
	}
	if f.engine.Status() != StatusReady {
		t.Errorf("Status() = %v after retry, want ready", f.engine.Status())
	}
}

func TestEngine_Build_EmbeddingFailure(t *testing.T) {
	f := newEngineFixture(t, Options{})

	providerErr := errors.New("quota exceeded")
	f.source.EXPECT().Load(gomock.Any()).Return([]listing.Record{{ID: "1"}}, nil)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).Return(nil, providerErr)

	err := f.engine.Build(context.Background())
	var embErr *EmbeddingError
	if !errors.As(err, &embErr) || embErr.Op != "build" {
		t.Fatalf("Build() error = %v, want EmbeddingError{Op: build}", err)
	}
	if !errors.Is(err, providerErr) {
		t.Error("EmbeddingError should unwrap to the provider error")
	}
	if count, _ := f.engine.Count(context.Background()); count != 0 {
		t.Errorf("Count() = %d, failed build must not leave a partial index", count)
	}
	if f.engine.Status() != StatusUninitialized {
		t.Errorf("Status() = %v, want uninitialized", f.engine.Status())
	}
}

func TestEngine_Build_ConcurrentCallersShareOneBuild(t *testing.T) {
	f := newEngineFixture(t, Options{})

	release := make(chan struct{})
	f.source.EXPECT().Load(gomock.Any()).
		DoAndReturn(func(context.Context) ([]listing.Record, error) {
			<-release
			return []listing.Record{{ID: "1"}, {ID: "2"}}, nil
		}).
		Times(1)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed).Times(1)

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.engine.Build(context.Background())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Build() error = %v", err)
		}
	}
	if count, _ := f.engine.Count(context.Background()); count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	// Ready engines do not rebuild.
	if err := f.engine.Build(context.Background()); err != nil {
		t.Errorf("Build() on ready engine error = %v", err)
	}
}

func TestEngine_Build_CallerCancellationDoesNotAbortBuild(t *testing.T) {
	f := newEngineFixture(t, Options{})

	release := make(chan struct{})
	f.source.EXPECT().Load(gomock.Any()).
		DoAndReturn(func(ctx context.Context) ([]listing.Record, error) {
			<-release
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return []listing.Record{{ID: "1"}}, nil
		}).
		Times(1)
	f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.engine.Build(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}

	close(release)
	if err := f.engine.Build(context.Background()); err != nil {
		t.Fatalf("Build() after cancellation error = %v", err)
	}
	if f.engine.Status() != StatusReady {
		t.Errorf("Status() = %v, want ready", f.engine.Status())
	}
}

func TestEngine_Build_Idempotent(t *testing.T) {
	records := []listing.Record{
		{ID: "1", FormattedAddress: "1 Main St", Price: ptr(900)},
		{ID: "2", FormattedAddress: "2 Oak Ave", Price: ptr(1100)},
		{FormattedAddress: "3 Pine Rd"},
	}

	snapshot := func() []vectorstore.Result {
		f := newEngineFixture(t, Options{})
		f.source.EXPECT().Load(gomock.Any()).Return(records, nil)
		f.embedder.EXPECT().EmbedTexts(gomock.Any(), gomock.Any()).DoAndReturn(constantEmbed)
		if err := f.engine.Build(context.Background()); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		results, err := f.index.Query(context.Background(), []float32{1, 1, 1}, 100)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		return results
	}

	first, second := snapshot(), snapshot()
	if len(first) != len(second) || len(first) != len(records) {
		t.Fatalf("builds differ in size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Entry.ID != second[i].Entry.ID || first[i].Entry.Text != second[i].Entry.Text {
			t.Errorf("entry %d differs between builds", i)
		}
	}
}
