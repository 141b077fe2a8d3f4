// Package event models the monthly proposal/approval counts reported for a
// project, keyed by year-month.
package event

import (
	"fmt"
	"time"
)

// Kind distinguishes the two counters tracked per project and month.
type Kind string

const (
	KindProposal Kind = "proposal"
	KindApproval Kind = "approval"
)

// Kinds lists all event kinds in canonical order.
var Kinds = []Kind{KindProposal, KindApproval}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProposal, KindApproval:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// MonthKey is a year-month identifier in the form YYYY-MM. The string form
// orders chronologically, so keys compare with plain string comparison.
type MonthKey string

const monthKeyLayout = "2006-01"

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil || t.Format(monthKeyLayout) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey(s), nil
}

func (k MonthKey) String() string { return string(k) }

// Before reports whether k is chronologically before other.
func (k MonthKey) Before(other MonthKey) bool { return k < other }

// MonthlyEvent is one reported count for a (project, month, kind) tuple.
// SourceSnapshotDate records which snapshot reported the value; the canonical
// current value of a tuple is the row with the greatest source date.
type MonthlyEvent struct {
	ProjectID          string   `json:"project_id"`
	MonthKey           MonthKey `json:"month_key"`
	Kind               Kind     `json:"kind"`
	Count              int      `json:"count"`
	SourceSnapshotDate string   `json:"source_snapshot_date"`
}
