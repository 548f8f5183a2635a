package rag

import (
	"regexp"
	"strconv"
)

var citationPattern = regexp.MustCompile(`\[S(\d+)\]`)

// resolveCitations parses the source markers referenced in the final answer
// text and maps them back to the retrieved chunks, preserving first-mention
// order and dropping duplicates and out-of-range markers.
func resolveCitations(answer string, sources []RetrievedChunk, names map[string]string) []Citation {
	var (
		citations []Citation
		seen      = make(map[int]bool)
	)
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(sources) || seen[n] {
			continue
		}
		seen[n] = true
		src := sources[n-1]
		citations = append(citations, Citation{
			Marker:       match[0],
			DocumentID:   src.DocumentID,
			DocumentName: names[src.DocumentID],
			PageNumber:   src.PageNumber,
		})
	}
	return citations
}
