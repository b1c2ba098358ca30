package model

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	batches [][]string
	fn      func(texts []string) ([][]float32, error)
}

func (f *fakeProvider) embed(_ context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, append([]string(nil), texts...))
	return f.fn(texts)
}

// oneHot maps each known text to a distinct unit vector, so ordering is
// observable through the results.
func oneHot(texts []string) ([][]float32, error) {
	position := map[string]int{"a": 0, "b": 1, "c": 2}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 3)
		vec[position[t]] = 1
		out[i] = vec
	}
	return out, nil
}

func TestGateway_EmbedBatchOrdering(t *testing.T) {
	fake := &fakeProvider{fn: oneHot}
	g := NewGateway(fake, 3, 2)

	vecs, err := g.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, vecs)

	// Batch cap of 2 splits three texts into two sequential upstream calls.
	require.Equal(t, [][]string{{"a", "b"}, {"c"}}, fake.batches)
}

func TestGateway_CountMismatchIsFatal(t *testing.T) {
	fake := &fakeProvider{fn: func(texts []string) ([][]float32, error) {
		vecs, _ := oneHot(texts)
		return vecs[:len(vecs)-1], nil
	}}
	g := NewGateway(fake, 3, 10)

	_, err := g.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.ErrorIs(t, err, ErrCountMismatch)
}

func TestGateway_EmptyInput(t *testing.T) {
	fake := &fakeProvider{fn: oneHot}
	g := NewGateway(fake, 3, 10)

	_, err := g.Embed(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = g.EmbedBatch(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = g.EmbedBatch(context.Background(), []string{"a", "", "c"})
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Contains(t, err.Error(), "index 1")

	// Validation happens before any upstream call.
	assert.Empty(t, fake.batches)
}

func TestGateway_MalformedResponse(t *testing.T) {
	t.Run("empty vector", func(t *testing.T) {
		fake := &fakeProvider{fn: func(texts []string) ([][]float32, error) {
			return make([][]float32, len(texts)), nil
		}}
		g := NewGateway(fake, 3, 10)
		_, err := g.Embed(context.Background(), "a")
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		fake := &fakeProvider{fn: func(texts []string) ([][]float32, error) {
			return [][]float32{{1, 2}}, nil
		}}
		g := NewGateway(fake, 3, 10)
		_, err := g.Embed(context.Background(), "a")
		require.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestGateway_UpstreamFailureWrapped(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	fake := &fakeProvider{fn: func([]string) ([][]float32, error) {
		return nil, cause
	}}
	g := NewGateway(fake, 3, 10)

	_, err := g.Embed(context.Background(), "a")
	require.ErrorIs(t, err, ErrUpstream)
	require.ErrorIs(t, err, cause)
}

func TestGateway_NormalizesVectors(t *testing.T) {
	fake := &fakeProvider{fn: func([]string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil
	}}
	g := NewGateway(fake, 2, 10)

	vec, err := g.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestGateway_HealthCheck(t *testing.T) {
	healthy := NewGateway(&fakeProvider{fn: func(texts []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}}, nil
	}}, 3, 10)
	assert.True(t, healthy.HealthCheck(context.Background()))

	down := NewGateway(&fakeProvider{fn: func([]string) ([][]float32, error) {
		return nil, errors.New("unreachable")
	}}, 3, 10)
	assert.False(t, down.HealthCheck(context.Background()))
}

func TestRetryEmbedder_RetriesUpstreamOnly(t *testing.T) {
	calls := 0
	fake := &fakeProvider{fn: func(texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("socket closed")
		}
		return oneHot(texts)
	}}
	r := NewRetryEmbedder(NewGateway(fake, 3, 10))

	vec, err := r.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, 2, calls)
}

func TestRetryEmbedder_PermanentOnBadResponse(t *testing.T) {
	calls := 0
	fake := &fakeProvider{fn: func(texts []string) ([][]float32, error) {
		calls++
		return [][]float32{}, nil
	}}
	r := NewRetryEmbedder(NewGateway(fake, 3, 10))

	_, err := r.Embed(context.Background(), "a")
	require.ErrorIs(t, err, ErrCountMismatch)
	assert.Equal(t, 1, calls)
}
