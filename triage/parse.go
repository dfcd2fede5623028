// CLAUDE:SUMMARY Tree Parser: splits raw digest text into a directory-tree header and exact-span file records.
package triage

import "strings"

// Parse splits raw digest text into a Document.
//
// The header is everything before the first file boundary; each record's
// Content is the exact byte span from its boundary line to the next, so the
// records partition the body and concatenation reconstructs it byte for byte.
//
// Format drift never fails: when no boundary is found in non-empty text the
// whole input becomes a single synthetic record with an empty path, which
// classifies as "other" and is the first drop candidate.
func (e *Engine) Parse(text string) *Document {
	text = normalizeNewlines(text)

	doc := &Document{}
	if text == "" {
		return doc
	}

	matches := e.boundary.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		doc.Records = []*FileRecord{{
			Path:      "",
			Content:   text,
			SizeChars: len(text),
			Tier:      TierOther,
		}}
		return doc
	}

	header := text[:matches[0][0]]
	doc.Header = splitLines(header)
	doc.TreeParsed = true
	doc.FileCount, doc.FolderCount = e.countTreeEntries(doc.Header)

	doc.Records = make([]*FileRecord, 0, len(matches))
	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := text[start:end]
		doc.Records = append(doc.Records, &FileRecord{
			Path:      strings.TrimSpace(text[m[2]:m[3]]),
			Content:   content,
			SizeChars: len(content),
			Tier:      TierOther,
		})
	}
	return doc
}

// countTreeEntries tallies files and folders from the tree header. A line
// holds one entry when it contains a branch connector; the entry is a folder
// when its name ends with "/". Indentation depth is not needed here.
func (e *Engine) countTreeEntries(lines []string) (files, folders int) {
	f := e.cfg.Format
	for _, line := range lines {
		name, ok := cutBranch(line, f.BranchMiddle)
		if !ok {
			name, ok = cutBranch(line, f.BranchLast)
		}
		if !ok {
			continue
		}
		if strings.HasSuffix(name, "/") {
			folders++
		} else {
			files++
		}
	}
	return files, folders
}

func cutBranch(line, connector string) (string, bool) {
	if connector == "" {
		return "", false
	}
	_, name, ok := strings.Cut(line, connector)
	return strings.TrimSpace(name), ok
}

// normalizeNewlines folds Windows line endings before any pattern matching.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// splitLines is the lossless inverse of strings.Join(lines, "\n"): a trailing
// newline survives as a final empty element.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
