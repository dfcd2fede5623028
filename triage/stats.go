package triage

import "strings"

// Stats summarizes a digest for API consumers. File and folder counts come
// from the tree header and are zero when the tree could not be parsed.
type Stats struct {
	Lines           int `json:"lines"`
	Words           int `json:"words"`
	EstimatedTokens int `json:"estimated_tokens"`
	FileCount       int `json:"file_count"`
	FolderCount     int `json:"folder_count"`
}

// ComputeStats derives digest stats from raw text and its parsed document.
func ComputeStats(text string, doc *Document) Stats {
	text = normalizeNewlines(text)
	return Stats{
		Lines:           strings.Count(text, "\n"),
		Words:           len(strings.Fields(text)),
		EstimatedTokens: EstimateTokens(text),
		FileCount:       doc.FileCount,
		FolderCount:     doc.FolderCount,
	}
}
