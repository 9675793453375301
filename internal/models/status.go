package models

import "strings"

// StatusKind is the terminal classification of a batch, independent of the
// user-facing outcome label.
type StatusKind string

const (
	StatusPending      StatusKind = "pending"
	StatusHealthy      StatusKind = "healthy"
	StatusContaminated StatusKind = "contaminated"
	StatusDiscarded    StatusKind = "discarded"
)

var (
	discardKeywords = []string{"discard", "废弃"}
	contamKeywords  = []string{"contam", "fail", "污染"}
)

// Valid reports whether k is one of the known kinds.
func (k StatusKind) Valid() bool {
	switch k {
	case StatusPending, StatusHealthy, StatusContaminated, StatusDiscarded:
		return true
	}
	return false
}

// Failed reports whether the kind counts against the contamination rate.
func (k StatusKind) Failed() bool {
	return k == StatusContaminated || k == StatusDiscarded
}

// ClassifyOutcome maps a free-text outcome label onto a StatusKind using
// keyword matching. Used for labels that carry no explicit kind.
func ClassifyOutcome(outcome string) StatusKind {
	lower := strings.ToLower(strings.TrimSpace(outcome))
	if lower == "" {
		return StatusPending
	}
	for _, kw := range discardKeywords {
		if strings.Contains(lower, kw) {
			return StatusDiscarded
		}
	}
	for _, kw := range contamKeywords {
		if strings.Contains(lower, kw) {
			return StatusContaminated
		}
	}
	return StatusHealthy
}

// EffectiveStatus returns the stored kind when present, otherwise the
// keyword classification of the outcome.
func (b *Batch) EffectiveStatus() StatusKind {
	if b.StatusKind.Valid() {
		return b.StatusKind
	}
	return ClassifyOutcome(b.Outcome)
}
