package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scholarbot/src/core/rag"
)

type stubConverter struct {
	pages []rag.PageText
	err   error
}

func (s *stubConverter) Convert(ctx context.Context, filename string, data []byte) ([]rag.PageText, error) {
	return s.pages, s.err
}

func TestExtractPlainTextPages(t *testing.T) {
	extractor := rag.NewExtractor(nil)

	data := []byte("first page\ftwo here\fthird")
	got, err := extractor.Extract(context.Background(), "notes.txt", data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got.Text != "first pagetwo herethird" {
		t.Errorf("Extract() text = %q", got.Text)
	}
	if len(got.Pages) != 3 {
		t.Fatalf("Extract() pages = %d, want 3", len(got.Pages))
	}
	for i, page := range got.Pages {
		if page.Number != i+1 {
			t.Errorf("page %d Number = %d, want %d", i, page.Number, i+1)
		}
	}
	if text := got.Text[got.Pages[1].Start:got.Pages[1].End]; text != "two here" {
		t.Errorf("page 2 span = %q, want %q", text, "two here")
	}
}

func TestExtractMarkdownSinglePage(t *testing.T) {
	extractor := rag.NewExtractor(nil)

	data := []byte("# Title\n\nSome **bold** prose.\n")
	got, err := extractor.Extract(context.Background(), "README.md", data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Text != string(data) {
		t.Errorf("Extract() altered markdown source")
	}
	if len(got.Pages) != 1 || got.Pages[0].Number != 1 {
		t.Errorf("Extract() pages = %+v, want one page numbered 1", got.Pages)
	}
	if got.Pages[0].End != len(got.Text) {
		t.Errorf("page span End = %d, want %d", got.Pages[0].End, len(got.Text))
	}
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		data      []byte
		converter rag.PaginatedConverter
		wantErr   error
	}{
		{
			name:     "unsupported extension",
			filename: "slides.pptx",
			data:     []byte("whatever"),
			wantErr:  rag.ErrUnsupportedFormat,
		},
		{
			name:     "invalid utf8 text",
			filename: "broken.txt",
			data:     []byte{0xff, 0xfe, 0xfd},
			wantErr:  rag.ErrCorruptDocument,
		},
		{
			name:     "invalid utf8 markdown",
			filename: "broken.md",
			data:     []byte{0x80, 0x81},
			wantErr:  rag.ErrCorruptDocument,
		},
		{
			name:     "pdf without converter",
			filename: "paper.pdf",
			data:     []byte("%PDF-1.4"),
			wantErr:  rag.ErrUnsupportedFormat,
		},
		{
			name:      "pdf with zero pages",
			filename:  "empty.pdf",
			data:      []byte("%PDF-1.4"),
			converter: &stubConverter{},
			wantErr:   rag.ErrCorruptDocument,
		},
		{
			name:      "converter failure propagates",
			filename:  "bad.pdf",
			data:      []byte("%PDF-1.4"),
			converter: &stubConverter{err: rag.ErrCorruptDocument},
			wantErr:   rag.ErrCorruptDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := rag.NewExtractor(tt.converter)
			_, err := extractor.Extract(context.Background(), tt.filename, tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Extract() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractPaginated(t *testing.T) {
	converter := &stubConverter{pages: []rag.PageText{
		{Number: 1, Text: "introduction text"},
		{Number: 2, Text: "method text"},
	}}
	extractor := rag.NewExtractor(converter)

	got, err := extractor.Extract(context.Background(), "paper.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got.Pages) != 2 {
		t.Fatalf("Extract() pages = %d, want 2", len(got.Pages))
	}
	if !strings.Contains(got.Text, "introduction text") || !strings.Contains(got.Text, "method text") {
		t.Errorf("Extract() text missing page content: %q", got.Text)
	}
	if span := got.Text[got.Pages[1].Start:got.Pages[1].End]; span != "method text" {
		t.Errorf("page 2 span = %q, want %q", span, "method text")
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"paper.pdf", "application/pdf"},
		{"notes.TXT", "text/plain"},
		{"readme.markdown", "text/markdown"},
		{"data.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := rag.MimeTypeFor(tt.filename); got != tt.want {
			t.Errorf("MimeTypeFor(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
