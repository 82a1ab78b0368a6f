package core

import "github.com/nicsuzor/aops/pkg/models"

// transitions maps each status to the statuses reachable from it.
// Terminal statuses have no outgoing edges: done and cancelled are
// write-once, and reopening a finished task means creating a new one
// that references it (force override excepted, see CanTransition).
//
//	inbox -> active -> in_progress -> {blocked, review, merge_ready} -> done
//
// blocked only returns to active once the blocking dependency resolves.
// in_progress -> active is the explicit operator revert of a claimed
// task that stalled; it is never applied automatically.
// review -> merge_ready is the explicit merge re-queue.
var transitions = map[models.TaskStatus][]models.TaskStatus{
	models.StatusInbox: {
		models.StatusActive,
		models.StatusCancelled,
	},
	models.StatusActive: {
		models.StatusInProgress,
		models.StatusCancelled,
	},
	models.StatusInProgress: {
		models.StatusActive,
		models.StatusBlocked,
		models.StatusReview,
		models.StatusMergeReady,
		models.StatusDone,
		models.StatusCancelled,
	},
	models.StatusBlocked: {
		models.StatusActive,
		models.StatusCancelled,
	},
	models.StatusReview: {
		models.StatusMergeReady,
		models.StatusDone,
		models.StatusCancelled,
	},
	models.StatusMergeReady: {
		models.StatusReview,
		models.StatusDone,
		models.StatusCancelled,
	},
	models.StatusDone:      {},
	models.StatusCancelled: {},
}

// CanTransition checks whether from -> to is a legal status change.
// With force, a terminal status may be reopened to active — the one
// documented override of the no-regress invariant. Force does not
// unlock any other edge.
func CanTransition(from, to models.TaskStatus, force bool) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return force && to == models.StatusActive
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
