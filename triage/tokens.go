package triage

// Token estimation uses a fixed chars/3.5 ratio. For source code this tracks
// real tokenizers far better than word-count heuristics: dense punctuation
// inflates token counts relative to prose.

// EstimateTokens estimates the LLM token cost of text.
func EstimateTokens(text string) int {
	return EstimateChars(len(text))
}

// EstimateChars converts a precomputed character count into a token estimate,
// rounding up. ceil(n/3.5) == ceil(2n/7).
func EstimateChars(n int) int {
	if n <= 0 {
		return 0
	}
	return (2*n + 6) / 7
}
