// CLAUDE:SUMMARY Budget Trimmer: multi-pass record dropping and last-resort header truncation against a token threshold.
package triage

import (
	"fmt"
	"sort"
)

// Markers substituted for the directory tree when Pass 3 cuts it.
const (
	headerTruncatedMarker = "[... directory tree truncated to fit context window ...]"
	headerOmittedMarker   = "[directory tree omitted: file sections fill context window]"
)

// Trim enforces the token budget on a classified document.
//
// Pass 1 walks tiers from lowest signal (other) to highest (docs_contract);
// within a tier candidates go largest first, ties broken by insertion order
// (earlier record dropped first). Records are removed one at a time with the
// running estimate recomputed after each removal, and trimming stops the
// moment the threshold is met: never a file more than necessary. Pass 3
// truncates the tree header, the only structural loss the trimmer may inflict,
// and applies only when every record is already gone. If even the minimal
// header floor exceeds the threshold the error wraps ErrBudgetExceeded.
//
// The input document is not modified; the returned document shares surviving
// records with it. Given identical input and configuration the output is
// byte-identical on every run.
func (e *Engine) Trim(doc *Document) (*Document, *Report, error) {
	threshold := e.cfg.TokenThreshold

	pre := doc.EstimateTokens()
	if pre <= threshold {
		return doc, &Report{
			Applied:          false,
			PreTriageTokens:  pre,
			PostTriageTokens: pre,
		}, nil
	}

	e.cfg.Logger.Debug("triage triggered", "pre_tokens", pre, "threshold", threshold)

	out := &Document{
		Header:      append([]string(nil), doc.Header...),
		Records:     append([]*FileRecord(nil), doc.Records...),
		TreeParsed:  doc.TreeParsed,
		FileCount:   doc.FileCount,
		FolderCount: doc.FolderCount,
	}

	headerText := out.HeaderText()
	recordChars := 0
	for _, r := range out.Records {
		recordChars += r.SizeChars
	}

	live := len(out.Records)
	tokens := EstimateChars(reassembledChars(headerText, live, recordChars))
	removed := make(map[*FileRecord]bool)
	var dropped []string

	// Pass 1: tiered drop, lowest signal first.
	for tier := TierOther; tier >= TierDocsContract && tokens > threshold; tier-- {
		candidates := make([]*FileRecord, 0)
		for _, r := range out.Records {
			if r.Tier == tier && !removed[r] {
				candidates = append(candidates, r)
			}
		}
		// Largest first; stable keeps insertion order on equal sizes.
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].SizeChars > candidates[j].SizeChars
		})
		for _, r := range candidates {
			if tokens <= threshold {
				break
			}
			removed[r] = true
			dropped = append(dropped, r.Path)
			recordChars -= r.SizeChars
			live--
			tokens = EstimateChars(reassembledChars(headerText, live, recordChars))
		}
	}

	if len(removed) > 0 {
		survivors := out.Records[:0]
		for _, r := range out.Records {
			if !removed[r] {
				survivors = append(survivors, r)
			}
		}
		out.Records = survivors
	}

	// Pass 3: header truncation, reached only when the tree itself is the
	// dominant cost (pathological flat trees).
	if tokens > threshold {
		e.cfg.Logger.Debug("triage truncating tree header", "tokens", tokens, "threshold", threshold)
		out.Header = truncateHeader(out.Header, threshold-EstimateChars(recordChars))
		out.TreeTruncated = true
		tokens = out.EstimateTokens()
	}

	report := &Report{
		Applied:           true,
		PreTriageTokens:   pre,
		PostTriageTokens:  tokens,
		FilesDroppedCount: len(dropped),
		FilesDropped:      dropped,
		HeaderTruncated:   out.TreeTruncated,
	}

	if tokens > threshold {
		return out, report, fmt.Errorf("minimal header still costs %d tokens against threshold %d: %w",
			tokens, threshold, ErrBudgetExceeded)
	}

	e.cfg.Logger.Debug("triage complete",
		"pre_tokens", pre, "post_tokens", tokens, "files_dropped", len(dropped))
	return out, report, nil
}

// truncateHeader reduces the tree header to fit budget tokens, appending a
// marker line so readers know structure was lost. Floor: a single marker line.
func truncateHeader(lines []string, budget int) []string {
	markerCost := EstimateTokens(headerTruncatedMarker) + 1
	reduced := ReduceHeader(lines, budget-markerCost)
	if len(reduced) == 0 {
		return []string{headerOmittedMarker}
	}
	return append(reduced, headerTruncatedMarker)
}
