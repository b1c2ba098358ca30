package model

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryEmbedder decorates an Embedder with exponential backoff on
// transient upstream failures. Input validation errors, count mismatches
// and malformed responses pass through untouched: retrying those cannot
// help.
type RetryEmbedder struct {
	next       Embedder
	maxElapsed time.Duration
}

func NewRetryEmbedder(next Embedder) *RetryEmbedder {
	return &RetryEmbedder{
		next:       next,
		maxElapsed: 30 * time.Second,
	}
}

func (r *RetryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.retry(ctx, func() error {
		var err error
		vec, err = r.next.Embed(ctx, text)
		return err
	})
	return vec, err
}

func (r *RetryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.retry(ctx, func() error {
		var err error
		vecs, err = r.next.EmbedBatch(ctx, texts)
		return err
	})
	return vecs, err
}

func (r *RetryEmbedder) Dimension() int {
	return r.next.Dimension()
}

func (r *RetryEmbedder) HealthCheck(ctx context.Context) bool {
	return r.next.HealthCheck(ctx)
}

func (r *RetryEmbedder) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = r.maxElapsed

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUpstream) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}
