package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wikichat/model"
	"wikichat/store"
	"wikichat/types"

	"github.com/pkoukk/tiktoken-go"
)

// Retriever is the ranked-retrieval contract the orchestrator consumes.
type Retriever interface {
	FindSimilarN(ctx context.Context, queryVec []float32, topK int) ([]types.Chunk, error)
}

// Config carries the orchestration knobs; everything is fixed at
// construction.
type Config struct {
	TopK             int
	HistoryLimit     int
	IncludeHistory   bool
	MaxContextTokens int
}

// Agent is the RAG pipeline: resolve the conversation, embed the query,
// retrieve context, build the prompt, generate, persist the turn pair.
// All collaborators are injected and immutable, so concurrent
// ProcessQuery calls need no coordination.
type Agent struct {
	embedder      model.Embedder
	generator     model.Generator
	retriever     Retriever
	conversations store.ConversationStorer
	cfg           Config
	encoder       *tiktoken.Tiktoken
	logger        *slog.Logger
}

func New(embedder model.Embedder, generator model.Generator, retr Retriever, conversations store.ConversationStorer, cfg Config) *Agent {
	// Token counting is best effort: without the encoding (e.g. no cache
	// and no network) the budget falls back to a character estimate.
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, using character estimate", "error", err)
		encoder = nil
	}
	return &Agent{
		embedder:      embedder,
		generator:     generator,
		retriever:     retr,
		conversations: conversations,
		cfg:           cfg,
		encoder:       encoder,
		logger:        slog.Default(),
	}
}

// ProcessQuery runs the full pipeline for one user query. Zero retrieved
// chunks is a valid outcome, not an error; any stage failure aborts the
// remaining steps and nothing is persisted.
func (a *Agent) ProcessQuery(ctx context.Context, query, sessionID string) (*types.ChatResult, error) {
	start := time.Now()
	defer func() {
		a.logger.Info("query processed", "session", sessionID, "took", time.Since(start))
	}()

	conv, err := a.conversations.GetOrCreateConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	var history []types.ConversationTurn
	if a.cfg.IncludeHistory {
		history, err = a.conversations.History(ctx, sessionID, a.cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}

	queryVec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &StageError{Stage: StageEmbedding, Err: err}
	}

	chunks, err := a.retriever.FindSimilarN(ctx, queryVec, a.cfg.TopK)
	if err != nil {
		return nil, &StageError{Stage: StageRetrieval, Err: err}
	}

	contextText := a.buildContext(chunks)
	prompt := buildPrompt(contextText, history, query)
	a.logger.Info("prompt assembled",
		"chunks", len(chunks),
		"history_turns", len(history),
		"prompt_tokens", a.countTokens(prompt))

	answer, err := a.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, &StageError{Stage: StageGeneration, Err: err}
	}

	sources := buildSources(chunks)

	turns := []types.ConversationTurn{
		{Role: types.RoleUser, Content: query},
		{Role: types.RoleAssistant, Content: answer, Sources: sources},
	}
	if err := a.conversations.AppendTurns(ctx, conv.ID, turns); err != nil {
		return nil, fmt.Errorf("persist turns: %w", err)
	}

	return &types.ChatResult{Answer: answer, Sources: sources}, nil
}

// History is a read-through to the persisted turns, uncapped.
func (a *Agent) History(ctx context.Context, sessionID string) ([]types.ConversationTurn, error) {
	return a.conversations.History(ctx, sessionID, 0)
}

// buildContext concatenates retrieved chunks in retrieval order, each
// tagged with its source document, stopping once the token budget is
// spent. No re-ranking happens here.
func (a *Agent) buildContext(chunks []types.Chunk) string {
	var b []byte
	used := 0
	for i, ch := range chunks {
		block := fmt.Sprintf("Document %q:\n%s\n\n", ch.DocTitle, ch.Content)
		cost := a.countTokens(block)
		if used > 0 && used+cost > a.cfg.MaxContextTokens {
			a.logger.Info("context budget reached", "tokens", used, "chunks_used", i, "chunks_retrieved", len(chunks))
			break
		}
		b = append(b, block...)
		used += cost
	}
	return string(b)
}

// buildSources snapshots every retrieved chunk, in retrieval order, with
// similarity = 1 - distance clamped against floating-point drift.
func buildSources(chunks []types.Chunk) []types.SourceReference {
	sources := make([]types.SourceReference, len(chunks))
	for i, ch := range chunks {
		sources[i] = types.SourceReference{
			DocumentName:    ch.DocTitle,
			ChunkContent:    ch.Content,
			ChunkIndex:      ch.Index,
			SimilarityScore: clamp01(1.0 - ch.Distance),
		}
	}
	return sources
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (a *Agent) countTokens(text string) int {
	if a.encoder == nil {
		return len(text) / 4
	}
	return len(a.encoder.Encode(text, nil, nil))
}
