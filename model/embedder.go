package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultBatchSize caps how many texts go upstream in one request.
// Providers rate-limit by request, so batches run sequentially, never in
// parallel.
const DefaultBatchSize = 100

var (
	ErrEmptyInput        = errors.New("empty input text")
	ErrUpstream          = errors.New("embedding provider failure")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrCountMismatch     = errors.New("embedding count mismatch")
)

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	HealthCheck(ctx context.Context) bool
}

// Generator produces an answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// provider is the raw upstream embedding call. Gateway layers batching,
// validation and normalization on top, so providers stay thin.
type provider interface {
	embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway is the embedding gateway: one immutable object constructed at
// process start and shared by ingestion and query paths.
type Gateway struct {
	provider  provider
	dimension int
	batchSize int
}

func NewGateway(p provider, dimension, batchSize int) *Gateway {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Gateway{
		provider:  p,
		dimension: dimension,
		batchSize: batchSize,
	}
}

func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	vecs, err := g.call(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds every text, preserving order one-to-one with the
// input. Internally the input is partitioned into sequential upstream
// batches of at most the configured cap.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts given", ErrEmptyInput)
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text at index %d is blank", ErrEmptyInput, i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		vecs, err := g.call(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d..%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *Gateway) Dimension() int {
	return g.dimension
}

// HealthCheck embeds a trivial probe and verifies the dimension. It never
// returns an error, only false.
func (g *Gateway) HealthCheck(ctx context.Context) bool {
	vec, err := g.Embed(ctx, "ping")
	return err == nil && len(vec) == g.dimension
}

// call issues one upstream batch and validates the response: count must
// match, every vector must be non-empty and of the configured dimension.
// A mismatch is fatal, never truncated or padded.
func (g *Gateway) call(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := g.provider.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrCountMismatch, len(texts), len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector at index %d", ErrMalformedResponse, i)
		}
		if g.dimension > 0 && len(v) != g.dimension {
			return nil, fmt.Errorf("%w: vector at index %d has dimension %d, want %d",
				ErrMalformedResponse, i, len(v), g.dimension)
		}
		vecs[i] = normalize(v)
	}
	return vecs, nil
}

// normalize scales the vector to unit length so cosine distance in the
// store stays within the range the retriever's threshold conversion
// assumes.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
