package ingest

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef identifies a GitHub repository, optionally pinned to a branch and
// subpath extracted from a /tree/ or /blob/ URL.
type RepoRef struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

// Slug returns "owner-repo", the base name used for output files.
func (r RepoRef) Slug() string {
	return r.Owner + "-" + r.Repo
}

// CloneURL returns the canonical https URL, with the branch embedded as a
// /tree/ suffix when set. gitingest resolves /tree/branch URLs natively and
// more reliably than its branch flag.
func (r RepoRef) CloneURL() string {
	u := "https://github.com/" + r.Owner + "/" + r.Repo
	if r.Branch != "" {
		u += "/tree/" + r.Branch
	}
	return u
}

// ParseRepoURL extracts owner, repo, branch, and path from any common GitHub
// URL shape: https, protocol-less, or ssh (git@github.com:owner/repo).
func ParseRepoURL(raw string) (RepoRef, error) {
	cleaned := strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git")
	cleaned = strings.ReplaceAll(cleaned, ".git/", "/")

	var path string
	if strings.HasPrefix(cleaned, "git@") {
		rest, ok := strings.CutPrefix(cleaned, "git@github.com:")
		if !ok {
			return RepoRef{}, fmt.Errorf("%w: unsupported ssh remote %q", ErrInvalidRepoURL, raw)
		}
		path = rest
	} else {
		candidate := cleaned
		if !strings.Contains(candidate, "://") {
			candidate = "https://" + candidate
		}
		u, err := url.Parse(candidate)
		if err != nil {
			return RepoRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRepoURL, raw, err)
		}
		path = strings.TrimPrefix(u.Path, "/")
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	ref := RepoRef{Owner: parts[0], Repo: parts[1]}
	if len(parts) > 3 && (parts[2] == "tree" || parts[2] == "blob") {
		ref.Branch = parts[3]
		if len(parts) > 4 {
			ref.Path = strings.Join(parts[4:], "/")
		}
	}
	return ref, nil
}
