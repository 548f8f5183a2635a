package rag_test

import (
	"testing"

	"scholarbot/src/core/rag"
)

func TestCountTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "empty",
			text: "",
			want: 0,
		},
		{
			name: "only whitespace",
			text: "  \n\t  ",
			want: 0,
		},
		{
			name: "simple words",
			text: "the quick brown fox",
			want: 4,
		},
		{
			name: "punctuation counts separately",
			text: "Hello, world!",
			want: 4,
		},
		{
			name: "digits group with letters",
			text: "section 3a covers utf8",
			want: 4,
		},
		{
			name: "hyphenated word",
			text: "state-of-the-art",
			want: 7,
		},
		{
			name: "unicode letters",
			text: "naïve café",
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rag.CountTokens(tt.text); got != tt.want {
				t.Errorf("CountTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}
