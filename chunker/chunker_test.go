package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wikiChatSample = "Introduction. WikiChat is a retrieval augmented chat service that answers questions about uploaded documents.\n\n" +
	"Installation requires a Postgres database with the pgvector extension. Configuration is done through environment variables read at startup."

func TestSplit_ParameterValidation(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{"zero chunk size", 0, 0, true},
		{"negative chunk size", -5, 0, true},
		{"overlap equals chunk size", 10, 10, true},
		{"overlap exceeds chunk size", 10, 20, true},
		{"negative overlap", 10, -1, true},
		{"overlap one below chunk size", 10, 9, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("x", tc.chunkSize, tc.overlap)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidParameters)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t  \n"} {
		chunks, err := Split(text, 100, 20)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestSplit_ShortTextIdentity(t *testing.T) {
	chunks, err := Split("  short text \r\n", 100, 20)
	require.NoError(t, err)
	require.Equal(t, []string{"short text"}, chunks)

	// The single-chunk short circuit bypasses the minimum size filter.
	chunks, err = Split("x", 10, 9)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, chunks)
}

func TestSplit_NormalizesControlCharacters(t *testing.T) {
	chunks, err := Split("a\x00b\rc\ttail", 100, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ab\nc\ttail", chunks[0])
}

func TestSplit_Deterministic(t *testing.T) {
	first, err := Split(wikiChatSample, 100, 20)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Split(wikiChatSample, 100, 20)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSplit_WikiChatFixture(t *testing.T) {
	chunks, err := Split(wikiChatSample, 100, 20)
	require.NoError(t, err)

	// The leading "Introduction." sentence flushes as a 13-char chunk and
	// is dropped by the size filter; three chunks remain.
	require.Len(t, chunks, 3)
	assert.True(t, strings.HasPrefix(chunks[0], "Introduction.\nWikiChat"), "chunk 0 = %q", chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], "uploaded documents.\nInstallation"), "chunk 1 = %q", chunks[1])
	assert.True(t, strings.HasPrefix(chunks[2], "pgvector extension.\nConfiguration"), "chunk 2 = %q", chunks[2])

	joined := strings.Join(chunks, " ")
	for _, token := range []string{"WikiChat", "Installation", "Configuration"} {
		assert.Contains(t, joined, token)
	}

	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c), MinChunkSize)
	}
}

func TestSplit_NoTokenLoss(t *testing.T) {
	// Six ~65-char sentences; every produced chunk stays above the size
	// filter, so every token must survive.
	var sentences []string
	for i := 0; i < 6; i++ {
		sentences = append(sentences, fmt.Sprintf(
			"Sentence number %02d carries enough characters to stand entirely alone.", i))
	}
	text := strings.Join(sentences, " ")

	chunks, err := Split(text, 100, 0)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	joined := " " + strings.Join(chunks, " ") + " "
	for _, token := range strings.Fields(text) {
		assert.Contains(t, joined, " "+token+" ", "token %q lost", token)
	}
}

func TestSplit_OverlapPresence(t *testing.T) {
	// ~200 characters of distinct 5-char tokens.
	var tokens []string
	for i := 0; i < 33; i++ {
		tokens = append(tokens, fmt.Sprintf("tok%02d", i))
	}
	text := strings.Join(tokens, " ")

	chunks, err := Split(text, 80, 15)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		head, _, found := strings.Cut(chunks[i], "\n")
		require.True(t, found, "chunk %d has no overlap prefix: %q", i, chunks[i])

		shared := false
		for _, tok := range strings.Fields(head) {
			if strings.Contains(chunks[i-1], tok) {
				shared = true
				break
			}
		}
		assert.True(t, shared, "chunk %d overlap %q shares no token with chunk %d", i, head, i-1)
	}
}

func TestSplit_HardSplitPathologicalWord(t *testing.T) {
	word := strings.Repeat("a", 250)
	chunks, err := Split(word, 100, 0)
	require.NoError(t, err)
	require.Equal(t, []string{
		strings.Repeat("a", 100),
		strings.Repeat("a", 100),
		strings.Repeat("a", 50),
	}, chunks)
}

func TestSplit_ParagraphPacking(t *testing.T) {
	// Two short paragraphs that fit one chunk together, a third that
	// forces a flush.
	text := "First paragraph stays small here today fine.\n\n" +
		"Second paragraph stays small here as well ok.\n\n" +
		"Third paragraph arrives later and does not fit in with both of the others."

	chunks, err := Split(text, 100, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph stays small here today fine.\n\nSecond paragraph stays small here as well ok.", chunks[0])
	assert.Equal(t, "Third paragraph arrives later and does not fit in with both of the others.", chunks[1])
}
