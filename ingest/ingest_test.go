package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wikichat/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	statuses      []types.DocumentStatus
	deletedDocs   []uuid.UUID
	savedChunks   []types.Chunk
	saveChunksErr error
}

func (f *fakeStore) SetDocumentStatus(_ context.Context, _ uuid.UUID, status types.DocumentStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) DeleteChunksByDocID(_ context.Context, docID uuid.UUID) error {
	f.deletedDocs = append(f.deletedDocs, docID)
	return nil
}

func (f *fakeStore) SaveChunks(_ context.Context, chunks []types.Chunk) error {
	if f.saveChunksErr != nil {
		return f.saveChunksErr
	}
	f.savedChunks = append(f.savedChunks, chunks...)
	return nil
}

type fakeEmbedder struct {
	err   error
	panic bool
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, f.err
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.panic {
		panic("embedder blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int                   { return 2 }
func (f *fakeEmbedder) HealthCheck(context.Context) bool { return true }

// Long enough to survive chunking without being filtered as a runt.
var sampleText = strings.Repeat("Each sentence here carries enough words to form a useful chunk. ", 8)

func TestIngest_ReadyPath(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeEmbedder{}, 120, 20)
	docID := uuid.New()

	err := svc.Ingest(context.Background(), docID, "guide.md", sampleText)
	require.NoError(t, err)

	assert.Equal(t, []types.DocumentStatus{types.StatusProcessing, types.StatusReady}, store.statuses)
	assert.Equal(t, []uuid.UUID{docID}, store.deletedDocs)
	require.NotEmpty(t, store.savedChunks)
	for i, ch := range store.savedChunks {
		assert.Equal(t, docID, ch.DocID)
		assert.Equal(t, i, ch.Index)
		assert.NotEmpty(t, ch.Embedding)
	}
}

func TestIngest_EmbedFailureMarksFailed(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeEmbedder{err: errors.New("ollama unreachable")}, 120, 20)

	err := svc.Ingest(context.Background(), uuid.New(), "guide.md", sampleText)
	require.Error(t, err)

	assert.Equal(t, []types.DocumentStatus{types.StatusProcessing, types.StatusFailed}, store.statuses)
	assert.Empty(t, store.savedChunks)
}

func TestIngest_PanicMarksFailed(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeEmbedder{panic: true}, 120, 20)

	err := svc.Ingest(context.Background(), uuid.New(), "guide.md", sampleText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion panic")
	assert.Equal(t, []types.DocumentStatus{types.StatusProcessing, types.StatusFailed}, store.statuses)
}

func TestIngest_SaveFailureMarksFailed(t *testing.T) {
	store := &fakeStore{saveChunksErr: errors.New("disk full")}
	svc := New(store, &fakeEmbedder{}, 120, 20)

	err := svc.Ingest(context.Background(), uuid.New(), "guide.md", sampleText)
	require.Error(t, err)
	assert.Equal(t, []types.DocumentStatus{types.StatusProcessing, types.StatusFailed}, store.statuses)
}

func TestIngest_InvalidChunkParams(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, &fakeEmbedder{}, 10, 20)

	err := svc.Ingest(context.Background(), uuid.New(), "guide.md", sampleText)
	require.Error(t, err)
	assert.Equal(t, []types.DocumentStatus{types.StatusProcessing, types.StatusFailed}, store.statuses)
}
