// CLAUDE:SUMMARY Tier Classifier: ordered path-rule table mapping every file path to exactly one SignalTier.
package triage

import "strings"

// Classification is a pure function of the path string: case-insensitive,
// total, deterministic. Rules are an ordered (tier, predicate) table evaluated
// top to bottom; the first match wins and "other" is the catch-all. Disabled
// tiers are simply absent from the table, so their paths fall through.
//
// The agent-config rule sits above the docs rules on purpose: a README inside
// .claude/ is agent instruction material, not project documentation. General
// documentation still classifies as docs_* before the broad "skill" substring
// rule gets a chance.

type rule struct {
	tier  SignalTier
	match func(p pathInfo) bool
}

// pathInfo caches the lowered decomposition of a path so each predicate stays
// a cheap lookup.
type pathInfo struct {
	lower string   // whole path, lowered
	parts []string // lowered path segments
	name  string   // final segment
	stem  string   // name without extension
	ext   string   // extension including dot, "" when none
}

func newPathInfo(path string) pathInfo {
	lower := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	lower = strings.Trim(lower, "/")
	parts := strings.Split(lower, "/")
	name := parts[len(parts)-1]
	stem, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		stem, ext = name[:i], name[i:]
	}
	return pathInfo{lower: lower, parts: parts, name: name, stem: stem, ext: ext}
}

// hasSegment reports an exact path-segment match.
func (p pathInfo) hasSegment(seg string) bool {
	for _, part := range p.parts {
		if part == seg {
			return true
		}
	}
	return false
}

// segmentContains reports a substring match against any path segment.
// Not used for docs: "docker" would match "doc".
func (p pathInfo) segmentContains(fragment string) bool {
	for _, part := range p.parts {
		if strings.Contains(part, fragment) {
			return true
		}
	}
	return false
}

func (p pathInfo) dirSegmentIn(set map[string]bool) bool {
	for _, part := range p.parts[:len(p.parts)-1] {
		if set[part] {
			return true
		}
	}
	return false
}

var (
	agentConfigDirs = []string{".claude", ".gemini", ".codex"}

	buildFileNames = map[string]bool{
		"pyproject.toml": true, "package.json": true, "makefile": true,
		"procfile": true, "setup.py": true, "setup.cfg": true,
		"environment.yml": true, "cargo.toml": true, "go.mod": true,
		"pom.xml": true, "build.gradle": true,
	}

	entrypointNames = map[string]bool{
		"main.py": true, "app.py": true, "server.py": true,
		"index.ts": true, "server.ts": true, "wsgi.py": true,
		"asgi.py": true, "manage.py": true, "__main__.py": true,
		"main.go": true, "main.ts": true, "index.js": true,
		"app.ts": true, "main.js": true,
	}

	entrypointStems = map[string]bool{
		"main": true, "bootstrap": true, "factory": true,
		"entry": true, "app": true, "server": true,
	}

	domainDirs = map[string]bool{
		"models": true, "schemas": true, "domain": true, "entities": true,
		"routes": true, "routers": true, "services": true,
		"controllers": true, "handlers": true, "use_cases": true, "api": true,
	}

	domainStems = []string{"model", "schema", "route", "router", "service", "controller", "handler"}

	scriptExts = map[string]bool{".py": true, ".ts": true, ".js": true, ".go": true}
)

func matchAgentConfig(p pathInfo) bool {
	for _, dir := range agentConfigDirs {
		if p.segmentContains(dir) {
			return true
		}
	}
	return false
}

func matchDocsContract(p pathInfo) bool {
	if p.hasSegment("adr") || p.hasSegment("adrs") || p.hasSegment("specs") {
		return true
	}
	for _, frag := range []string{"openapi", "swagger", "asyncapi"} {
		if strings.Contains(p.name, frag) {
			return true
		}
	}
	for _, prefix := range []string{"spec", "prd", "requirements", "schema"} {
		if strings.HasPrefix(p.name, prefix) {
			return true
		}
	}
	return false
}

func matchDocsNarrative(p pathInfo) bool {
	for _, prefix := range []string{"readme", "contributing", "changelog", "development"} {
		if strings.HasPrefix(p.name, prefix) {
			return true
		}
	}
	// Exact segment match only: substring would classify "docker/" as docs.
	return p.hasSegment("docs") || p.hasSegment("doc")
}

func matchSkills(p pathInfo) bool {
	return strings.Contains(p.lower, "skill")
}

func matchBuildDeps(p pathInfo) bool {
	if buildFileNames[p.name] {
		return true
	}
	if strings.HasPrefix(p.name, "requirements") && strings.HasSuffix(p.name, ".txt") {
		return true
	}
	return strings.HasPrefix(p.name, "dockerfile") || strings.HasPrefix(p.name, "docker-compose")
}

func matchEntrypoints(p pathInfo) bool {
	if entrypointNames[p.name] {
		return true
	}
	return entrypointStems[p.stem] && scriptExts[p.ext]
}

func matchConfigSurfaces(p pathInfo) bool {
	if strings.Contains(p.name, "config") || strings.Contains(p.name, "settings") {
		return true
	}
	if strings.Contains(p.name, ".env.") {
		return true
	}
	switch p.name {
	case ".env.example", ".env.sample", "application.yml", "application.yaml", "appsettings.json":
		return true
	}
	return false
}

func matchDomainModel(p pathInfo) bool {
	if p.dirSegmentIn(domainDirs) {
		return true
	}
	if !scriptExts[p.ext] {
		return false
	}
	for _, frag := range domainStems {
		if strings.Contains(p.stem, frag) {
			return true
		}
	}
	return false
}

func matchCI(p pathInfo) bool {
	if p.segmentContains("workflows") || p.segmentContains(".github") || p.segmentContains("deploy") {
		return true
	}
	return p.name == "procfile" || p.name == "procfile.windows"
}

func matchTests(p pathInfo) bool {
	if strings.HasPrefix(p.name, "test_") ||
		strings.HasSuffix(p.name, "_test.py") ||
		strings.HasSuffix(p.name, "_test.go") ||
		strings.Contains(p.name, ".test.") ||
		strings.Contains(p.name, ".spec.") {
		return true
	}
	return p.segmentContains("tests") || p.segmentContains("__tests__")
}

// buildRules assembles the ordered rule table for a configuration. Disabled
// tiers contribute no entry, which is exactly the fall-through the
// configuration contract promises.
func buildRules(cfg *Config) []rule {
	ordered := []rule{
		{TierSkills, matchAgentConfig}, // agent-config dirs outrank docs
		{TierDocsContract, matchDocsContract},
		{TierDocsNarrative, matchDocsNarrative},
		{TierSkills, matchSkills},
		{TierBuildDeps, matchBuildDeps},
		{TierEntrypoints, matchEntrypoints},
		{TierConfigSurfaces, matchConfigSurfaces},
		{TierDomainModel, matchDomainModel},
		{TierCI, matchCI},
		{TierTests, matchTests},
	}
	rules := make([]rule, 0, len(ordered))
	for _, r := range ordered {
		if cfg.enabled(r.tier) {
			rules = append(rules, r)
		}
	}
	return rules
}

// Classify maps a path to its signal tier. Total: every input yields exactly
// one tier, with TierOther as the default.
func (e *Engine) Classify(path string) SignalTier {
	if path == "" {
		return TierOther
	}
	p := newPathInfo(path)
	for _, r := range e.rules {
		if r.match(p) {
			return r.tier
		}
	}
	return TierOther
}
