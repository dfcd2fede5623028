package triage

// ReduceHeader drops trailing header lines until the joined text fits
// targetTokens. It never reorders: the result is either empty or a strict
// prefix of the input (the input itself when it already fits). Reusable
// outside the trimmer, e.g. for preview rendering.
func ReduceHeader(lines []string, targetTokens int) []string {
	if targetTokens <= 0 {
		return nil
	}
	// chars includes the "\n" joins.
	chars := 0
	for i, l := range lines {
		if i > 0 {
			chars++
		}
		chars += len(l)
	}
	n := len(lines)
	for n > 0 && EstimateChars(chars) > targetTokens {
		chars -= len(lines[n-1])
		if n > 1 {
			chars-- // the join newline goes with the dropped line
		}
		n--
	}
	return lines[:n]
}
