package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinChunkSize is the smallest chunk worth embedding. Anything shorter
// after overlap injection carries no independent semantic value and is
// dropped.
const MinChunkSize = 50

var ErrInvalidParameters = errors.New("invalid chunking parameters")

var paragraphSplitter = regexp.MustCompile(`\n{2,}`)

// Split cuts text into overlapping chunks of at most chunkSize characters.
// Boundaries are chosen in cascading order: paragraphs first, then
// sentences inside oversized paragraphs, then words, then a fixed-size
// hard split for pathological tokens. Every chunk after the first starts
// with the trailing overlap characters of its predecessor.
//
// Split is pure and deterministic. The only error it returns is
// ErrInvalidParameters; arbitrary text never fails.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidParameters, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", ErrInvalidParameters, overlap)
	}

	text = normalize(text)
	if text == "" {
		return nil, nil
	}

	// Short texts pass through untouched, min-size filter included.
	if len(text) <= chunkSize {
		return []string{text}, nil
	}

	chunks := splitParagraphs(text, chunkSize)
	chunks = injectOverlap(chunks, overlap)

	filtered := chunks[:0]
	for _, c := range chunks {
		if len(c) >= MinChunkSize {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// normalize unifies line endings to \n, strips control characters except
// newline and tab, and trims outer whitespace.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// splitParagraphs greedily packs paragraphs into chunks. A paragraph that
// alone exceeds chunkSize is never appended whole; it goes through the
// sentence pass and its pieces come back as finished chunks.
func splitParagraphs(text string, chunkSize int) []string {
	paragraphs := paragraphSplitter.Split(text, -1)

	var chunks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if len(p) > chunkSize {
			flush()
			chunks = append(chunks, splitSentences(p, chunkSize)...)
			continue
		}

		// +2 accounts for the paragraph separator.
		if buf.Len() > 0 && buf.Len()+2+len(p) > chunkSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
	}
	flush()
	return chunks
}

// splitSentences packs the sentences of one oversized paragraph, joined by
// single spaces. Sentences that still exceed chunkSize fall through to the
// word pass.
func splitSentences(paragraph string, chunkSize int) []string {
	sentences := sentenceBoundaries(paragraph)

	var chunks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}

	for _, s := range sentences {
		if len(s) > chunkSize {
			flush()
			chunks = append(chunks, splitWords(s, chunkSize)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+1+len(s) > chunkSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(s)
	}
	flush()
	return chunks
}

// sentenceBoundaries splits on '.', '!' or '?' immediately followed by
// whitespace. The trailing fragment without terminal punctuation is kept
// as a sentence of its own.
func sentenceBoundaries(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpaceByte(text[i+1]) {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n'
}

// splitWords is the last resort: pack whitespace-separated words, and
// hard-split any single word longer than chunkSize into fixed slices.
func splitWords(sentence string, chunkSize int) []string {
	words := strings.Fields(sentence)

	var chunks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}

	for _, w := range words {
		if len(w) > chunkSize {
			flush()
			chunks = append(chunks, hardSplit(w, chunkSize)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+1+len(w) > chunkSize {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(w)
	}
	flush()
	return chunks
}

// hardSplit cuts a word into chunkSize slices. Cuts back up to the nearest
// rune start so multibyte characters never break in the middle. This is
// the only place content may split mid-token.
func hardSplit(word string, chunkSize int) []string {
	var parts []string
	for len(word) > chunkSize {
		cut := chunkSize
		for cut > 0 && !utf8.RuneStart(word[cut]) {
			cut--
		}
		if cut == 0 {
			cut = chunkSize
		}
		parts = append(parts, word[:cut])
		word = word[cut:]
	}
	if word != "" {
		parts = append(parts, word)
	}
	return parts
}

// injectOverlap prepends the trailing overlap characters of each previous
// pre-overlap chunk, joined by a newline. The tail is cut forward at a
// space when one sits in its first half, so the overlap does not start
// mid-word.
func injectOverlap(chunks []string, overlap int) []string {
	if overlap == 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		tail := overlapTail(chunks[i-1], overlap)
		if strings.TrimSpace(tail) == "" {
			out[i] = chunks[i]
			continue
		}
		out[i] = tail + "\n" + chunks[i]
	}
	return out
}

func overlapTail(prev string, overlap int) string {
	if overlap >= len(prev) {
		return prev
	}
	cut := len(prev) - overlap
	for cut < len(prev) && !utf8.RuneStart(prev[cut]) {
		cut++
	}
	tail := prev[cut:]

	half := len(tail) / 2
	if idx := strings.IndexByte(tail[:half], ' '); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}
