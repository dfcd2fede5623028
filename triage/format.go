package triage

import (
	"fmt"
	"regexp"
	"strings"
)

// Format collects the magic constants of the gitingest text format. They are
// configuration, not logic: when the upstream tool changes its separator or
// glyphs, only these values move.
type Format struct {
	// SeparatorChar and SeparatorWidth describe the boundary rule line,
	// a run of exactly SeparatorWidth SeparatorChar characters on its own line.
	SeparatorChar  string `yaml:"separator_char"`
	SeparatorWidth int    `yaml:"separator_width"`

	// FileMarker prefixes the path line between two separator lines.
	FileMarker string `yaml:"file_marker"`

	// BranchMiddle and BranchLast are the box-drawing connectors used in the
	// directory tree header.
	BranchMiddle string `yaml:"branch_middle"`
	BranchLast   string `yaml:"branch_last"`
}

// DefaultFormat returns the constants gitingest emits today.
func DefaultFormat() Format {
	return Format{
		SeparatorChar:  "=",
		SeparatorWidth: 48,
		FileMarker:     "FILE: ",
		BranchMiddle:   "├── ",
		BranchLast:     "└── ",
	}
}

// Separator returns the full boundary rule line.
func (f Format) Separator() string {
	return strings.Repeat(f.SeparatorChar, f.SeparatorWidth)
}

// boundary compiles the file-boundary pattern:
//
//	^{separator}$
//	FILE: <path>
//	^{separator}$
//
// Anchoring on the separator pair keeps stray separator-looking lines inside
// file content from drifting the parser. The path group tolerates any
// character except newline.
func (f Format) boundary() (*regexp.Regexp, error) {
	sep := regexp.QuoteMeta(f.Separator())
	marker := regexp.QuoteMeta(f.FileMarker)
	pat := fmt.Sprintf(`(?m)^%s\n%s(.+)\n%s\n?`, sep, marker, sep)
	return regexp.Compile(pat)
}

func (f Format) validate() error {
	if f.SeparatorChar == "" || f.SeparatorWidth <= 0 {
		return fmt.Errorf("separator: char %q width %d: %w", f.SeparatorChar, f.SeparatorWidth, ErrInvalidConfig)
	}
	if f.FileMarker == "" {
		return fmt.Errorf("file_marker is empty: %w", ErrInvalidConfig)
	}
	return nil
}
