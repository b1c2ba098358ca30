package types

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Chunk struct {
	ID        uuid.UUID
	DocID     uuid.UUID
	Index     int
	Content   string
	Embedding []float32
	CreatedAt time.Time

	// DocTitle and Distance are filled by similarity search only.
	DocTitle string
	Distance float64
}

type Document struct {
	ID         uuid.UUID
	Title      string
	Source     string
	SourcePath string
	Status     DocumentStatus
	Chunks     []Chunk
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int
}

type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// SourceReference is a citation snapshot taken at answer time. It carries
// copies of the chunk data so history stays readable after the source
// document is deleted.
type SourceReference struct {
	DocumentName    string  `json:"document_name"`
	ChunkContent    string  `json:"chunk_content"`
	ChunkIndex      int     `json:"chunk_index"`
	SimilarityScore float64 `json:"similarity_score"`
}

type ConversationTurn struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"-"`
	Role           Role              `json:"role"`
	Content        string            `json:"content"`
	Sources        []SourceReference `json:"sources,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type Conversation struct {
	ID        uuid.UUID
	SessionID string
	CreatedAt time.Time
}

// ChatResult is what the orchestrator hands back to the transport layer.
type ChatResult struct {
	Answer  string
	Sources []SourceReference
}
