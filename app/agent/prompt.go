package agent

import (
	"strings"

	"wikichat/types"
)

const systemPrompt = `You are a helpful assistant that answers questions using the provided document excerpts.
Base your answer on the excerpts. If they do not contain the answer, say so plainly instead of guessing.
Answer in the language of the question.`

// buildPrompt lays out the generation prompt: retrieved context first,
// then prior conversation, then the current question. An empty context
// is stated explicitly so the model does not invent sources.
func buildPrompt(contextText string, history []types.ConversationTurn, query string) string {
	var b strings.Builder

	b.WriteString("Context from documents:\n")
	if strings.TrimSpace(contextText) == "" {
		b.WriteString("No relevant material was found for this question.\n")
	} else {
		b.WriteString(contextText)
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			b.WriteString(string(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")

	return b.String()
}
