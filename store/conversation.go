package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wikichat/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationStorer interface {
	GetOrCreateConversation(ctx context.Context, sessionID string) (*types.Conversation, error)
	AppendTurns(ctx context.Context, conversationID uuid.UUID, turns []types.ConversationTurn) error
	History(ctx context.Context, sessionID string, limit int) ([]types.ConversationTurn, error)
}

// GetOrCreateConversation resolves the conversation for a session,
// creating it on the first turn. The upsert keeps concurrent first
// requests for the same session from racing.
func (p *PostgresStore) GetOrCreateConversation(ctx context.Context, sessionID string) (*types.Conversation, error) {
	query := `
		INSERT INTO conversations (id, session_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING id, session_id, created_at
	`
	conv := &types.Conversation{}
	err := p.pool.QueryRow(ctx, query, uuid.New(), sessionID, time.Now()).
		Scan(&conv.ID, &conv.SessionID, &conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}
	return conv, nil
}

// AppendTurns writes the given turns in order inside one transaction, so
// a request either records its full user/assistant pair or nothing.
func (p *PostgresStore) AppendTurns(ctx context.Context, conversationID uuid.UUID, turns []types.ConversationTurn) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, turn := range turns {
		var sources []byte
		if len(turn.Sources) > 0 {
			sources, err = json.Marshal(turn.Sources)
			if err != nil {
				return fmt.Errorf("marshal sources: %w", err)
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_turns (id, conversation_id, role, content, sources, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), conversationID, turn.Role, turn.Content, sources, time.Now())
		if err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// History returns the most recent limit turns, oldest first. limit <= 0
// means no cap.
func (p *PostgresStore) History(ctx context.Context, sessionID string, limit int) ([]types.ConversationTurn, error) {
	var conversationID uuid.UUID
	err := p.pool.QueryRow(ctx,
		"SELECT id FROM conversations WHERE session_id = $1", sessionID).Scan(&conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, conversation_id, role, content, sources, created_at
		FROM conversation_turns
		WHERE conversation_id = $1
		ORDER BY seq DESC
	`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []types.ConversationTurn
	for rows.Next() {
		var turn types.ConversationTurn
		var sources []byte
		if err := rows.Scan(&turn.ID, &turn.ConversationID, &turn.Role, &turn.Content, &sources, &turn.CreatedAt); err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &turn.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows come newest first; flip to oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
