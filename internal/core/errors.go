package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nicsuzor/aops/pkg/models"
)

// Sentinel errors for the store's failure taxonomy. Callers branch with
// errors.Is; the typed errors below carry structured detail and are
// matched with errors.As.
var (
	ErrNotFound        = errors.New("task not found")
	ErrAlreadyClaimed  = errors.New("task already claimed")
	ErrCycleDetected   = errors.New("dependency cycle detected")
	ErrTerminalStatus  = errors.New("status is terminal")
	ErrVersionConflict = errors.New("task version conflict")
)

// ValidationError reports malformed input, rejected before any mutation
// takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HasIncompleteChildrenError is returned by Complete when a child task
// is not yet terminal. It names the offending children so the caller
// can act on them instead of guessing.
type HasIncompleteChildrenError struct {
	TaskID   string
	Children []string
}

func (e *HasIncompleteChildrenError) Error() string {
	return fmt.Sprintf("task %s has incomplete children: %s",
		e.TaskID, strings.Join(e.Children, ", "))
}

// InvalidTransitionError reports a status transition the state machine
// does not permit.
type InvalidTransitionError struct {
	TaskID string
	From   models.TaskStatus
	To     models.TaskStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// GateDeniedError reports a gate denial together with the exact missing
// flags, so the session knows precisely what to satisfy. Denial is
// always recoverable.
type GateDeniedError struct {
	Operation string
	Missing   []models.GateFlag
	Reason    string
}

func (e *GateDeniedError) Error() string {
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}
		return fmt.Sprintf("gate denied: missing %s", strings.Join(names, ", "))
	}
	return "gate denied: " + e.Reason
}
