package llm

import (
	"strconv"
	"strings"
)

// PromptTemplate is the default summarization prompt. {word_count} is
// substituted at build time; GET /api/v1/prompt serves it verbatim.
const PromptTemplate = `You are a senior software engineer reviewing an unfamiliar codebase.
Below is a flattened digest of a GitHub repository: a directory tree followed
by the contents of its files.

Write a summary of roughly {word_count} words covering:
- What the system does and who it is for.
- Where execution starts and how control flows through the code.
- The core modules, how they are coupled, and the main data models.
- External systems and services it depends on.
- How to run it locally.

Respond with a single JSON object, no markdown fences, with exactly these keys:
- "summary": the prose summary as markdown.
- "technologies": an array of the languages, frameworks, and notable
  libraries in use, most important first.
- "structure": one short paragraph describing the repository layout.`

// BuildPrompt substitutes the word count and appends the optional focus
// instruction.
func BuildPrompt(wordCount int, focus string) string {
	prompt := strings.ReplaceAll(PromptTemplate, "{word_count}", strconv.Itoa(wordCount))
	if focus != "" {
		prompt += "\n\nAdditional user instruction: " + focus
	}
	return prompt
}
