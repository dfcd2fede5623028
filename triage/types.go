// CLAUDE:SUMMARY Defines SignalTier, FileRecord, Document, and Report types for the digest triage engine.
package triage

import "strings"

// SignalTier ranks a file's information value for LLM summarization.
// The order is total and fixed: lower values carry higher signal, and the
// trimmer drops tiers in reverse order (TierOther first, TierDocsContract last).
type SignalTier int

const (
	TierDocsContract SignalTier = iota
	TierDocsNarrative
	TierSkills
	TierBuildDeps
	TierEntrypoints
	TierConfigSurfaces
	TierDomainModel
	TierCI
	TierTests
	TierOther
)

var tierNames = [...]string{
	"docs_contract",
	"docs_narrative",
	"skills",
	"build_deps",
	"entrypoints",
	"config_surfaces",
	"domain_model",
	"ci",
	"tests",
	"other",
}

// String returns the configuration name of the tier.
func (t SignalTier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "other"
	}
	return tierNames[t]
}

// TierNames returns all tier names in signal order, highest first.
func TierNames() []string {
	out := make([]string, len(tierNames))
	copy(out, tierNames[:])
	return out
}

// ParseTier resolves a configuration name to its tier. The second return
// value is false for unknown names.
func ParseTier(name string) (SignalTier, bool) {
	for i, n := range tierNames {
		if n == name {
			return SignalTier(i), true
		}
	}
	return TierOther, false
}

// FileRecord is one file's entry in the digest body. Content is the raw byte
// span as captured from the digest, boundary header included, so that
// concatenating all records in order reconstructs the body exactly.
type FileRecord struct {
	Path      string
	Content   string
	SizeChars int
	Tier      SignalTier
}

// Document is the parsed representation of one digest.
//
// Header holds the directory-tree lines exactly as emitted before the first
// file boundary; joining them with "\n" reproduces the original header text.
// Records preserve insertion order, which doubles as the stable tie-break
// order during trimming.
type Document struct {
	Header  []string
	Records []*FileRecord

	// TreeParsed is false when no file boundary was found and the whole
	// input was degraded to a single synthetic record.
	TreeParsed  bool
	FileCount   int
	FolderCount int

	// TreeTruncated is set by the trimmer when the header itself was cut.
	TreeTruncated bool
}

// HeaderText returns the header joined back into its original text form.
func (d *Document) HeaderText() string {
	return strings.Join(d.Header, "\n")
}

// Text reassembles the digest: header followed by every surviving record in
// original relative order.
func (d *Document) Text() string {
	header := d.HeaderText()
	var sb strings.Builder
	sb.WriteString(header)
	if len(d.Records) > 0 && header != "" && !strings.HasSuffix(header, "\n") {
		sb.WriteByte('\n')
	}
	for _, r := range d.Records {
		sb.WriteString(r.Content)
	}
	return sb.String()
}

// reassembledChars counts the characters Text emits for a header plus
// recordCount records totalling recordChars, joiner newline included.
func reassembledChars(header string, recordCount, recordChars int) int {
	n := len(header) + recordChars
	if recordCount > 0 && header != "" && !strings.HasSuffix(header, "\n") {
		n++
	}
	return n
}

// TotalChars returns the character count of the reassembled document,
// exactly len(d.Text()).
func (d *Document) TotalChars() int {
	recordChars := 0
	for _, r := range d.Records {
		recordChars += r.SizeChars
	}
	return reassembledChars(d.HeaderText(), len(d.Records), recordChars)
}

// EstimateTokens estimates the token cost of the whole document.
func (d *Document) EstimateTokens() int {
	return EstimateChars(d.TotalChars())
}

// Report describes what triage did to a document. It is written once by the
// trimmer and never mutated afterwards.
type Report struct {
	Applied           bool     `json:"applied"`
	PreTriageTokens   int      `json:"pre_triage_tokens"`
	PostTriageTokens  int      `json:"post_triage_tokens"`
	FilesDroppedCount int      `json:"files_dropped_count"`
	FilesDropped      []string `json:"files_dropped,omitempty"`
	HeaderTruncated   bool     `json:"header_truncated,omitempty"`
}
