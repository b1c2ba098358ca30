package retriever

import (
	"context"
	"errors"
	"fmt"

	"wikichat/types"
)

var (
	ErrInvalidQuery = errors.New("invalid query vector")
	ErrInvalidTopK  = errors.New("invalid top-k")
	ErrRetrieval    = errors.New("retrieval failure")
)

// Searcher is the vector store query contract the retriever consumes:
// chunks within maxDistance of the query vector, ascending distance,
// capped at limit. Tie order among equal distances is store-determined.
type Searcher interface {
	Search(ctx context.Context, queryVec []float32, maxDistance float64, limit int) ([]types.Chunk, error)
}

// Retriever converts the configured similarity threshold into a distance
// threshold and issues ranked nearest-neighbor queries. It holds no
// mutable state after construction.
type Retriever struct {
	store               Searcher
	similarityThreshold float64
	defaultTopK         int
}

func New(store Searcher, similarityThreshold float64, defaultTopK int) (*Retriever, error) {
	if similarityThreshold < 0.0 || similarityThreshold > 1.0 {
		return nil, fmt.Errorf("similarity threshold must be in [0.0, 1.0], got %v", similarityThreshold)
	}
	if defaultTopK <= 0 {
		return nil, fmt.Errorf("default top-k must be positive, got %d", defaultTopK)
	}
	return &Retriever{
		store:               store,
		similarityThreshold: similarityThreshold,
		defaultTopK:         defaultTopK,
	}, nil
}

// FindSimilar queries with the default result cap.
func (r *Retriever) FindSimilar(ctx context.Context, queryVec []float32) ([]types.Chunk, error) {
	return r.FindSimilarN(ctx, queryVec, r.defaultTopK)
}

// FindSimilarN returns up to topK chunks within the similarity threshold,
// most similar first. Embeddings are unit length, so cosine distance
// maps to similarity as 1 - distance and the threshold converts the
// same way.
func (r *Retriever) FindSimilarN(ctx context.Context, queryVec []float32, topK int) ([]types.Chunk, error) {
	if len(queryVec) == 0 {
		return nil, ErrInvalidQuery
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}

	maxDistance := 1.0 - r.similarityThreshold

	chunks, err := r.store.Search(ctx, queryVec, maxDistance, topK)
	if err != nil {
		// Storage internals stay behind the retrieval error kind.
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return chunks, nil
}
