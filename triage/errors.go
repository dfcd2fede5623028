package triage

import "errors"

// ErrBudgetExceeded reports that the document still exceeds the token
// threshold after every record was dropped and the header was reduced to its
// minimal floor. Callers should surface this as a client-facing condition,
// not serve an oversized payload.
var ErrBudgetExceeded = errors.New("token budget exceeded after full triage")

// ErrInvalidConfig reports a configuration rejected before any processing:
// a non-positive threshold, an unknown tier name, or every tier disabled.
var ErrInvalidConfig = errors.New("invalid triage configuration")
