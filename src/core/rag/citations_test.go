package rag

import "testing"

func TestResolveCitations(t *testing.T) {
	sources := []RetrievedChunk{
		{ChunkID: "a:0", DocumentID: "a", PageNumber: 3},
		{ChunkID: "b:1", DocumentID: "b", PageNumber: 7},
		{ChunkID: "a:4", DocumentID: "a", PageNumber: 9},
	}
	names := map[string]string{"a": "paper.pdf", "b": "notes.txt"}

	tests := []struct {
		name   string
		answer string
		want   []Citation
	}{
		{
			name:   "no markers",
			answer: "I do not know.",
			want:   nil,
		},
		{
			name:   "first mention order",
			answer: "Second says [S2], first says [S1].",
			want: []Citation{
				{Marker: "[S2]", DocumentID: "b", DocumentName: "notes.txt", PageNumber: 7},
				{Marker: "[S1]", DocumentID: "a", DocumentName: "paper.pdf", PageNumber: 3},
			},
		},
		{
			name:   "duplicates collapse",
			answer: "[S1] and again [S1] and [S3].",
			want: []Citation{
				{Marker: "[S1]", DocumentID: "a", DocumentName: "paper.pdf", PageNumber: 3},
				{Marker: "[S3]", DocumentID: "a", DocumentName: "paper.pdf", PageNumber: 9},
			},
		},
		{
			name:   "out of range dropped",
			answer: "[S0] [S4] [S99] but [S2] stands.",
			want: []Citation{
				{Marker: "[S2]", DocumentID: "b", DocumentName: "notes.txt", PageNumber: 7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCitations(tt.answer, sources, names)
			if len(got) != len(tt.want) {
				t.Fatalf("resolveCitations() returned %d citations, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("citation %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
