package rag

import (
	"unicode"
	"unicode/utf8"
)

// tokenSpan is the byte range of a single token in the source text.
type tokenSpan struct {
	start int
	end   int
}

// tokenize splits text into a deterministic token stream: maximal runs of
// letters and digits, with every other non-space rune counted as its own
// token. This is only a stable proxy for model tokenization, but it is
// reproducible across runs, which is what chunk boundaries and citation
// offsets depend on.
func tokenize(text string) []tokenSpan {
	var spans []tokenSpan
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			start := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			spans = append(spans, tokenSpan{start: start, end: i})
		default:
			spans = append(spans, tokenSpan{start: i, end: i + size})
			i += size
		}
	}
	return spans
}

// CountTokens returns the deterministic token count used for chunk sizing.
func CountTokens(text string) int {
	return len(tokenize(text))
}
