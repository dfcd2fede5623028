package triage

import (
	"strings"
	"testing"
)

const testSep = "================================================" // 48 '='

type fixtureFile struct {
	path    string
	content string
}

// buildDigest assembles digest text the way gitingest emits it: tree header,
// then one boundary-delimited block per file.
func buildDigest(header string, files ...fixtureFile) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, f := range files {
		sb.WriteString(testSep + "\n")
		sb.WriteString("FILE: " + f.path + "\n")
		sb.WriteString(testSep + "\n")
		sb.WriteString(f.content + "\n")
	}
	return sb.String()
}

func testHeader() string {
	return "Directory structure:\n" +
		"└── repo/\n" +
		"    ├── README.md\n" +
		"    ├── app.py\n" +
		"    ├── docs/\n" +
		"    └── tests/\n"
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}
