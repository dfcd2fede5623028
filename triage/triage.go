// CLAUDE:SUMMARY Core triage engine that trims a repository digest to a token budget, lowest-signal files first.
// Package triage trims a repository digest to fit an LLM context budget.
//
// A digest is the flattened text a repository-ingestion tool emits: a
// directory-tree header, a separator, then one content block per file. When
// the digest exceeds the configured token threshold, the engine drops whole
// files, lowest signal tier first and largest file first within a tier, until
// the budget is met. As a last resort it truncates the tree header itself.
//
// The engine is pure and synchronous: no I/O, no shared state between
// invocations, byte-identical output for identical input.
//
// Usage:
//
//	eng, err := triage.New(triage.Config{TokenThreshold: 150_000})
//	text, report, err := eng.Run(rawDigest)
//	fmt.Println(report.Applied, report.FilesDroppedCount)
package triage

import "regexp"

// Engine is the digest triage engine.
type Engine struct {
	cfg      Config
	rules    []rule
	boundary *regexp.Regexp
}

// New creates an Engine with the given configuration. Invalid configuration
// is rejected here, before any document is processed.
func New(cfg Config) (*Engine, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	re, err := cfg.Format.boundary()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		rules:    buildRules(&cfg),
		boundary: re,
	}, nil
}

// Run executes the full pipeline on raw digest text: parse, classify, trim,
// reassemble. When the document already fits the budget the input text is
// returned unchanged.
func (e *Engine) Run(text string) (string, *Report, error) {
	doc := e.Parse(text)
	for _, r := range doc.Records {
		r.Tier = e.Classify(r.Path)
	}
	trimmed, report, err := e.Trim(doc)
	if err != nil {
		return "", report, err
	}
	if !report.Applied {
		return normalizeNewlines(text), report, nil
	}
	return trimmed.Text(), report, nil
}
