// Package lifecycle holds the status graph shared by plans, milestones and initiatives.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/anand-fs/plantrack/internal/models"
)

// Reason classifies a rejected transition.
type Reason string

const (
	ReasonAlreadyTerminal    Reason = "ALREADY_TERMINAL"
	ReasonIllegalForwardSkip Reason = "ILLEGAL_FORWARD_SKIP"
	ReasonIllegalTransition  Reason = "ILLEGAL_TRANSITION"
	ReasonUnknownStatus      Reason = "UNKNOWN_STATUS"
	ReasonNotFound           Reason = "NOT_FOUND"
)

// TransitionError is returned when a requested status change is not allowed.
type TransitionError struct {
	From   models.Status
	To     models.Status
	Reason Reason
}

func (e *TransitionError) Error() string {
	if e.Reason == ReasonNotFound {
		return "transition rejected: entity not found"
	}
	return fmt.Sprintf("transition %s -> %s rejected: %s", e.From, e.To, e.Reason)
}

// NotFound builds the rejection used when the entity to transition does not resolve.
func NotFound(to models.Status) *TransitionError {
	return &TransitionError{To: to, Reason: ReasonNotFound}
}

// Policy tunes the graph.
type Policy struct {
	// RequireInProgressBeforeComplete rejects ACTIVE -> COMPLETED.
	RequireInProgressBeforeComplete bool
}

// Machine validates status transitions. It holds no state beyond its policy
// and is safe for concurrent use.
type Machine struct {
	policy Policy
}

func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy}
}

var edges = map[models.Status][]models.Status{
	models.StatusActive:     {models.StatusInProgress, models.StatusCompleted, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
}

// Check returns nil when current -> requested is allowed.
func (m *Machine) Check(current, requested models.Status) error {
	if !current.Valid() || !requested.Valid() {
		return &TransitionError{From: current, To: requested, Reason: ReasonUnknownStatus}
	}
	if current.IsTerminal() {
		return &TransitionError{From: current, To: requested, Reason: ReasonAlreadyTerminal}
	}
	if m.policy.RequireInProgressBeforeComplete &&
		current == models.StatusActive && requested == models.StatusCompleted {
		return &TransitionError{From: current, To: requested, Reason: ReasonIllegalForwardSkip}
	}
	for _, next := range edges[current] {
		if next == requested {
			return nil
		}
	}
	return &TransitionError{From: current, To: requested, Reason: ReasonIllegalTransition}
}

// CheckReactivate allows only CANCELLED -> ACTIVE.
func (m *Machine) CheckReactivate(current models.Status) error {
	if current == models.StatusCancelled {
		return nil
	}
	if !current.Valid() {
		return &TransitionError{From: current, To: models.StatusActive, Reason: ReasonUnknownStatus}
	}
	return &TransitionError{From: current, To: models.StatusActive, Reason: ReasonIllegalTransition}
}

// IsReason reports whether err is a TransitionError with the given reason.
func IsReason(err error, reason Reason) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Reason == reason
}
