package ingest

import "errors"

var (
	// ErrInvalidRepoURL reports a URL that does not resolve to owner/repo.
	ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

	// ErrRepoNotAccessible reports an authentication or visibility failure
	// from the flattening tool. Private repositories need a token.
	ErrRepoNotAccessible = errors.New("repository not accessible")

	// ErrToolNotFound reports that no gitingest binary is on PATH.
	ErrToolNotFound = errors.New("gitingest binary not found")
)
