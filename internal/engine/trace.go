package engine

import (
	"fmt"
	"strings"
)

// Trace collects the human-readable narration of one engine run in two
// tiers: structural validation of the document, and the per-decision
// matching log. A Trace is scoped to a single run and never shared.
type Trace struct {
	validation strings.Builder
	matching   strings.Builder
}

// Validf appends a line to the structural-validation tier.
func (t *Trace) Validf(format string, args ...any) {
	fmt.Fprintf(&t.validation, format, args...)
	t.validation.WriteByte('\n')
}

// Matchf appends a line to the matching tier.
func (t *Trace) Matchf(format string, args ...any) {
	fmt.Fprintf(&t.matching, format, args...)
	t.matching.WriteByte('\n')
}

// Validation returns the accumulated validation narration.
func (t *Trace) Validation() string { return t.validation.String() }

// Matching returns the accumulated matching narration.
func (t *Trace) Matching() string { return t.matching.String() }
