package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"wikichat/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var ErrDocumentNotFound = errors.New("document not found")

type DBStorer interface {
	SaveDocument(context.Context, types.Document) error
	GetDocumentByID(context.Context, uuid.UUID) (*types.Document, error)
	ListDocuments(context.Context) ([]types.Document, error)
	DeleteDocument(context.Context, uuid.UUID) error
	SetDocumentStatus(context.Context, uuid.UUID, types.DocumentStatus) error
	SaveChunks(context.Context, []types.Chunk) error
	DeleteChunksByDocID(context.Context, uuid.UUID) error
	Search(ctx context.Context, queryVec []float32, maxDistance float64, limit int) ([]types.Chunk, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) SaveDocument(ctx context.Context, doc types.Document) error {
	query := `INSERT INTO documents (id, title, source, source_path, status, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			source_path = EXCLUDED.source_path,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
			`
	_, err := p.pool.Exec(
		ctx,
		query,
		doc.ID,
		doc.Title,
		doc.Source,
		doc.SourcePath,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
		doc.Version,
	)

	return err
}

func (p *PostgresStore) GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, title, source, source_path, status, created_at, updated_at, version
		 FROM documents WHERE id = $1`, docID)

	doc := &types.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Source,
		&doc.SourcePath,
		&doc.Status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *PostgresStore) ListDocuments(ctx context.Context) ([]types.Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, title, source, source_path, status, created_at, updated_at, version
		 FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.Source,
			&doc.SourcePath,
			&doc.Status,
			&doc.CreatedAt,
			&doc.UpdatedAt,
			&doc.Version); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *PostgresStore) SetDocumentStatus(ctx context.Context, docID uuid.UUID, status types.DocumentStatus) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`,
		docID, status, time.Now())
	return err
}

// DeleteDocument removes the document; chunks go with it via the foreign
// key cascade. Conversation turns keep their source snapshots untouched.
func (p *PostgresStore) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (p *PostgresStore) DeleteChunksByDocID(ctx context.Context, docID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE doc_id = $1", docID)
	return err
}

func (p *PostgresStore) SaveChunks(ctx context.Context, chunks []types.Chunk) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO chunks (id, doc_id, position, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.DocID, c.Index, c.Content, pgvector.NewVector(c.Embedding), time.Now(),
		)
	}
	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

// Search returns up to limit chunks whose stored embedding lies within
// maxDistance of the query vector, most similar first. Cosine distance
// via the pgvector <=> operator.
func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, maxDistance float64, limit int) ([]types.Chunk, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	vector := pgvector.NewVector(queryVec)

	query := `
		SELECT c.id, c.doc_id, c.position, c.content, d.title,
		       c.embedding <=> $1 AS distance
		FROM chunks c
		JOIN documents d ON c.doc_id = d.id
		WHERE c.embedding IS NOT NULL
		  AND c.embedding <=> $1 <= $2
		ORDER BY c.embedding <=> $1
		LIMIT $3
	`
	rows, err := p.pool.Query(ctx, query, vector, maxDistance, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocID,
			&chunk.Index,
			&chunk.Content,
			&chunk.DocTitle,
			&chunk.Distance); err != nil {
			return nil, err
		}

		log.Printf("[SEARCH] hit doc=%s index=%d distance=%.4f", chunk.DocID, chunk.Index, chunk.Distance)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) createRagTables(ctx context.Context, dimension int) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		source TEXT,
		source_path TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP WITH TIME ZONE,
		updated_at TIMESTAMP WITH TIME ZONE,
		version INTEGER DEFAULT 1
	);

    CREATE TABLE IF NOT EXISTS chunks (
        id UUID PRIMARY KEY,
        doc_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
        position INT NOT NULL,
        content TEXT NOT NULL,
        embedding vector(%d),
        created_at TIMESTAMP WITH TIME ZONE
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);

	CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS conversation_turns (
		id UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		seq BIGSERIAL,
		role TEXT NOT NULL CHECK (role IN ('USER','ASSISTANT')),
		content TEXT NOT NULL,
		sources JSONB,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(conversation_id, seq);
    `, dimension)
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context, dimension int) error {
	return p.createRagTables(ctx, dimension)
}

// Close закрывает пул подключений
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
