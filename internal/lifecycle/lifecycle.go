// Package lifecycle enforces the complaint status topology. It knows nothing
// about roles; callers filter the legal transitions by role before applying.
package lifecycle

import (
	"fmt"
	"slices"
	"strings"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusEscalated  Status = "ESCALATED"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusOpen,
	StatusAssigned,
	StatusInProgress,
	StatusEscalated,
	StatusResolved,
	StatusClosed,
}

var transitions = map[Status][]Status{
	StatusOpen:       {StatusAssigned, StatusEscalated},
	StatusAssigned:   {StatusInProgress, StatusEscalated},
	StatusInProgress: {StatusResolved, StatusEscalated},
	StatusEscalated:  {StatusAssigned, StatusInProgress},
	StatusResolved:   {StatusClosed},
	StatusClosed:     {},
}

// Parse normalizes a status name, accepting any case and spaces or dashes
// for underscores.
func Parse(value string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	status := Status(normalized)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("unknown complaint status %q", value)
	}
	return status, nil
}

// ValidNextStatuses returns the statuses reachable in one step. The result
// is a fresh slice; it is empty for terminal or unknown statuses.
func ValidNextStatuses(current Status) []Status {
	next := transitions[current]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// IsValidTransition reports whether from -> to is an edge.
func IsValidTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status Status) bool {
	return status == StatusClosed
}

// TransitionError is returned for an illegal status change. Allowed is
// empty when From is terminal.
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot move complaint from %s to %s: %s is a terminal status", e.From, e.To, e.From)
	}
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("cannot move complaint from %s to %s: allowed next statuses are %s", e.From, e.To, strings.Join(allowed, ", "))
}

// AssertValidTransition returns a *TransitionError when from -> to is not
// an edge.
func AssertValidTransition(from, to Status) error {
	if IsValidTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to, Allowed: ValidNextStatuses(from)}
}
