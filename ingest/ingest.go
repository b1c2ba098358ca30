package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wikichat/chunker"
	"wikichat/model"
	"wikichat/types"

	"github.com/google/uuid"
)

// Store is the slice of document storage the ingestion pipeline needs.
type Store interface {
	SetDocumentStatus(ctx context.Context, docID uuid.UUID, status types.DocumentStatus) error
	DeleteChunksByDocID(ctx context.Context, docID uuid.UUID) error
	SaveChunks(ctx context.Context, chunks []types.Chunk) error
}

// Service turns raw document text into embedded chunks. A document moves
// pending -> processing -> ready, or failed on any exit that is not a
// clean finish.
type Service struct {
	store     Store
	embedder  model.Embedder
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

func New(store Store, embedder model.Embedder, chunkSize, overlap int) *Service {
	return &Service{
		store:     store,
		embedder:  embedder,
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    slog.Default(),
	}
}

// Ingest chunks, embeds and persists one document. The final status
// write runs detached from the caller's context so a cancelled or
// panicking ingestion still lands on failed instead of sticking in
// processing forever.
func (s *Service) Ingest(ctx context.Context, docID uuid.UUID, title, text string) (err error) {
	start := time.Now()

	if err := s.store.SetDocumentStatus(ctx, docID, types.StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panic: %v", r)
		}

		status := types.StatusReady
		if err != nil {
			status = types.StatusFailed
		}

		statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if serr := s.store.SetDocumentStatus(statusCtx, docID, status); serr != nil {
			s.logger.Error("status write failed", "doc", docID, "status", status, "error", serr)
		}
	}()

	pieces, err := chunker.Split(text, s.chunkSize, s.overlap)
	if err != nil {
		return fmt.Errorf("chunk %q: %w", title, err)
	}
	if len(pieces) == 0 {
		s.logger.Warn("document produced no chunks", "doc", docID, "title", title)
		return nil
	}

	vecs, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return fmt.Errorf("embed %q: %w", title, err)
	}

	chunks := make([]types.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = types.Chunk{
			ID:        uuid.New(),
			DocID:     docID,
			Index:     i,
			Content:   content,
			Embedding: vecs[i],
		}
	}

	// Re-ingestion replaces the previous chunk set wholesale.
	if err := s.store.DeleteChunksByDocID(ctx, docID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	s.logger.Info("document ingested", "doc", docID, "title", title, "chunks", len(chunks), "took", time.Since(start))
	return nil
}
