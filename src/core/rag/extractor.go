package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor converts raw document bytes into plain text with page offsets.
// Plain text and Markdown are handled inline; paginated formats are delegated
// to a conversion service.
type Extractor struct {
	converter PaginatedConverter
}

func NewExtractor(converter PaginatedConverter) *Extractor {
	return &Extractor{converter: converter}
}

// MimeTypeFor maps a file name to the declared type used in the registry.
func MimeTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// SupportedExtensions lists the file extensions the extractor accepts.
func SupportedExtensions() []string {
	return []string{".txt", ".text", ".md", ".markdown", ".pdf"}
}

// Extract dispatches on the file extension. Unknown extensions fail with
// ErrUnsupportedFormat; irrecoverable parse failures with ErrCorruptDocument.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (ExtractedText, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		return extractPlainText(name, data)
	case ".md", ".markdown":
		return extractMarkdown(name, data)
	case ".pdf":
		return e.extractPaginated(ctx, name, data)
	default:
		return ExtractedText{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// extractPlainText treats form feeds as page breaks, matching how paged text
// exports delimit pages.
func extractPlainText(name string, data []byte) (ExtractedText, error) {
	if !utf8.Valid(data) {
		return ExtractedText{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrCorruptDocument, name)
	}
	raw := string(data)
	var (
		b     strings.Builder
		pages []PageSpan
	)
	for i, page := range strings.Split(raw, "\f") {
		start := b.Len()
		b.WriteString(page)
		pages = append(pages, PageSpan{Number: i + 1, Start: start, End: b.Len()})
	}
	return ExtractedText{Text: b.String(), Pages: pages}, nil
}

// extractMarkdown keeps the source verbatim as a single page; heading
// structure is useful context for the model and harmless to the chunker.
func extractMarkdown(name string, data []byte) (ExtractedText, error) {
	if !utf8.Valid(data) {
		return ExtractedText{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrCorruptDocument, name)
	}
	text := string(data)
	return ExtractedText{
		Text:  text,
		Pages: []PageSpan{{Number: 1, Start: 0, End: len(text)}},
	}, nil
}

func (e *Extractor) extractPaginated(ctx context.Context, name string, data []byte) (ExtractedText, error) {
	if e.converter == nil {
		return ExtractedText{}, fmt.Errorf("%w: no converter configured for %s", ErrUnsupportedFormat, name)
	}
	pageTexts, err := e.converter.Convert(ctx, name, data)
	if err != nil {
		return ExtractedText{}, fmt.Errorf("failed to convert %s: %w", name, err)
	}
	if len(pageTexts) == 0 {
		return ExtractedText{}, fmt.Errorf("%w: %s produced no pages", ErrCorruptDocument, name)
	}

	var (
		b     strings.Builder
		pages []PageSpan
	)
	for i, p := range pageTexts {
		if i > 0 {
			b.WriteString("\n")
		}
		start := b.Len()
		b.WriteString(p.Text)
		pages = append(pages, PageSpan{Number: p.Number, Start: start, End: b.Len()})
	}
	return ExtractedText{Text: b.String(), Pages: pages}, nil
}
