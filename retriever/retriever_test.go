package retriever

import (
	"context"
	"errors"
	"testing"

	"wikichat/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	gotVec      []float32
	gotDistance float64
	gotLimit    int
	chunks      []types.Chunk
	err         error
}

func (f *fakeSearcher) Search(_ context.Context, queryVec []float32, maxDistance float64, limit int) ([]types.Chunk, error) {
	f.gotVec = queryVec
	f.gotDistance = maxDistance
	f.gotLimit = limit
	return f.chunks, f.err
}

func TestNew_ValidatesConstruction(t *testing.T) {
	store := &fakeSearcher{}

	_, err := New(store, 1.5, 5)
	require.Error(t, err)

	_, err = New(store, -0.1, 5)
	require.Error(t, err)

	_, err = New(store, 0.7, 0)
	require.Error(t, err)

	r, err := New(store, 0.0, 1)
	require.NoError(t, err)
	require.NotNil(t, r)
}

func TestFindSimilar_ThresholdConversion(t *testing.T) {
	store := &fakeSearcher{}
	r, err := New(store, 0.8, 5)
	require.NoError(t, err)

	_, err = r.FindSimilar(context.Background(), []float32{0.1, 0.2})
	require.NoError(t, err)

	assert.InDelta(t, 0.2, store.gotDistance, 1e-12)
	assert.Equal(t, 5, store.gotLimit)
	assert.Equal(t, []float32{0.1, 0.2}, store.gotVec)
}

func TestFindSimilar_ArgumentValidation(t *testing.T) {
	store := &fakeSearcher{}
	r, err := New(store, 0.8, 5)
	require.NoError(t, err)

	_, err = r.FindSimilar(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = r.FindSimilarN(context.Background(), []float32{0.1}, 0)
	require.ErrorIs(t, err, ErrInvalidTopK)

	_, err = r.FindSimilarN(context.Background(), []float32{0.1}, -3)
	require.ErrorIs(t, err, ErrInvalidTopK)
}

func TestFindSimilar_WrapsStoreErrors(t *testing.T) {
	cause := errors.New("pq: relation chunks does not exist")
	store := &fakeSearcher{err: cause}
	r, err := New(store, 0.8, 5)
	require.NoError(t, err)

	_, err = r.FindSimilar(context.Background(), []float32{0.1})
	require.ErrorIs(t, err, ErrRetrieval)
	// The raw storage error is not part of the unwrap chain.
	assert.NotErrorIs(t, err, cause)
}

func TestFindSimilar_PassesResultsThrough(t *testing.T) {
	chunks := []types.Chunk{
		{Content: "closest", Distance: 0.05},
		{Content: "further", Distance: 0.15},
	}
	store := &fakeSearcher{chunks: chunks}
	r, err := New(store, 0.8, 5)
	require.NoError(t, err)

	got, err := r.FindSimilarN(context.Background(), []float32{0.1}, 2)
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
	assert.Equal(t, 2, store.gotLimit)
}
