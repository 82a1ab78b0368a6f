package hooks

import (
	"strings"

	"github.com/nicsuzor/aops/pkg/models"
)

// Verdict is the tag of a hook decision.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
)

// Decision is the engine's answer to a hook event. A denial always
// names what is missing; a reminder may ride along on an allow.
type Decision struct {
	Verdict  Verdict           `json:"decision"`
	Reason   string            `json:"reason,omitempty"`
	Missing  []models.GateFlag `json:"missing_flags,omitempty"`
	Reminder string            `json:"reminder,omitempty"`
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Verdict: VerdictAllow}
}

// AllowWithReminder returns an allowing decision carrying a
// non-blocking reminder.
func AllowWithReminder(reminder string) Decision {
	return Decision{Verdict: VerdictAllow, Reminder: reminder}
}

// Deny returns a denying decision with a reason.
func Deny(reason string, missing ...models.GateFlag) Decision {
	return Decision{Verdict: VerdictDeny, Reason: reason, Missing: missing}
}

// Denied reports whether the decision blocks the operation.
func (d Decision) Denied() bool {
	return d.Verdict == VerdictDeny
}

// MissingList renders the missing flags for error messages.
func (d Decision) MissingList() string {
	names := make([]string, len(d.Missing))
	for i, f := range d.Missing {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
