package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/nicsuzor/aops/pkg/models"
)

// GitOps is the git boundary for the merge orchestrator. Defining it
// here keeps core independent of the integration package; app.go wires
// the adapter. All operations act on the repository the implementation
// was created for.
type GitOps interface {
	// ListBranches returns local branch names starting with prefix.
	ListBranches(prefix string) ([]string, error)
	// UnmergedCommits counts commits on branch not patch-equivalent to
	// anything on main (cherry equivalence, not raw SHA comparison).
	UnmergedCommits(branch, main string) (int, error)
	WorkingTreeClean() (bool, error)
	Checkout(branch string) error
	Head() (string, error)
	// SquashMerge stages branch onto the current branch without
	// committing. The returned output carries conflict markers on error.
	SquashMerge(branch string) (string, error)
	AbortMerge() error
	Commit(message string) (string, error)
	ResetHard(ref string) error
	Push(remote, branch string) error
	DeleteBranch(branch string) error
	DeleteRemoteBranch(remote, branch string) error
}

// TestRunner runs the project's verification command with a hard
// timeout. timedOut is true when the deadline killed the run.
type TestRunner interface {
	Run(command string, timeout time.Duration) (output string, timedOut bool, err error)
}

// MergePhase is a merge candidate's position in its lifecycle.
type MergePhase string

const (
	PhaseDiscovered MergePhase = "discovered"
	PhaseValidated  MergePhase = "validated"
	PhaseMerging    MergePhase = "merging"
	PhaseVerified   MergePhase = "verified"
	PhaseFailed     MergePhase = "failed"
	PhaseCleaned    MergePhase = "cleaned"
	// PhaseAlreadyMerged marks a branch with no unmerged work; the
	// orchestrator is a no-op for it.
	PhaseAlreadyMerged MergePhase = "already_merged"
	// PhaseSkipped marks a candidate whose task state disqualifies it,
	// e.g. a task sitting in review awaiting an explicit re-queue.
	PhaseSkipped MergePhase = "skipped"
)

// FailureReason distinguishes why a merge candidate failed.
type FailureReason string

const (
	ReasonConflict      FailureReason = "conflict"
	ReasonCommitFailure FailureReason = "commit_failure"
	ReasonTestFailure   FailureReason = "test_failure"
	ReasonTimeout       FailureReason = "timeout"
)

// MergeResult records what happened to one candidate.
type MergeResult struct {
	TaskID string
	Branch string
	Phase  MergePhase
	Reason FailureReason
	Detail string
}

// Failed reports whether the candidate ended in the failed phase.
func (r MergeResult) Failed() bool {
	return r.Phase == PhaseFailed
}

const mergeActor = "merge-orchestrator"

// MergeOrchestrator reconciles task branches into main: discovery,
// validation, squash merge, verification, rollback or cleanup. Merges
// are strictly sequential — the trunk is a single mutable resource and
// a second concurrent merge would invalidate the first one's base.
type MergeOrchestrator struct {
	git   GitOps
	tests TestRunner
	store *GraphStore
	cfg   models.MergeConfig
	audit AuditSink
}

// NewMergeOrchestrator creates an orchestrator. audit may be nil.
func NewMergeOrchestrator(git GitOps, tests TestRunner, store *GraphStore, cfg models.MergeConfig, audit AuditSink) *MergeOrchestrator {
	return &MergeOrchestrator{git: git, tests: tests, store: store, cfg: cfg, audit: audit}
}

// Run discovers every merge candidate and drives each one through its
// lifecycle, one at a time. It returns a result per candidate; the
// returned error reports orchestration-level problems (git itself
// unusable), not per-candidate failures.
func (o *MergeOrchestrator) Run() ([]MergeResult, error) {
	branches, err := o.git.ListBranches(o.cfg.BranchPrefix)
	if err != nil {
		return nil, fmt.Errorf("discovering branches: %w", err)
	}

	var results []MergeResult
	for _, branch := range branches {
		taskID := strings.TrimPrefix(branch, o.cfg.BranchPrefix)
		results = append(results, o.processCandidate(taskID, branch))
	}
	return results, nil
}

func (o *MergeOrchestrator) processCandidate(taskID, branch string) MergeResult {
	res := MergeResult{TaskID: taskID, Branch: branch, Phase: PhaseDiscovered}

	unmerged, err := o.git.UnmergedCommits(branch, o.cfg.MainBranch)
	if err != nil {
		res.Phase = PhaseSkipped
		res.Detail = fmt.Sprintf("classifying %s: %s", branch, err)
		return res
	}
	if unmerged == 0 {
		res.Phase = PhaseAlreadyMerged
		return res
	}

	task, err := o.store.Get(taskID)
	if err != nil {
		res.Phase = PhaseSkipped
		res.Detail = fmt.Sprintf("no task for branch %s: %s", branch, err)
		return res
	}

	// Validation. Only merge_ready tasks merge; review means a prior
	// failure awaiting an explicit re-queue, and anything earlier would
	// integrate unreviewed work.
	switch task.Status {
	case models.StatusMergeReady:
	case models.StatusReview:
		res.Phase = PhaseSkipped
		res.Detail = "task is in review; re-queue to merge_ready to retry"
		return res
	default:
		res.Phase = PhaseSkipped
		res.Detail = fmt.Sprintf("task status is %s, want merge_ready", task.Status)
		return res
	}

	if err := o.git.Checkout(o.cfg.MainBranch); err != nil {
		res.Phase = PhaseSkipped
		res.Detail = fmt.Sprintf("checking out %s: %s", o.cfg.MainBranch, err)
		return res
	}
	clean, err := o.git.WorkingTreeClean()
	if err != nil {
		res.Phase = PhaseSkipped
		res.Detail = fmt.Sprintf("checking working tree: %s", err)
		return res
	}
	if !clean {
		res.Phase = PhaseSkipped
		res.Detail = "working tree on " + o.cfg.MainBranch + " is not clean"
		return res
	}
	res.Phase = PhaseValidated

	preHead, err := o.git.Head()
	if err != nil {
		res.Phase = PhaseSkipped
		res.Detail = fmt.Sprintf("reading HEAD: %s", err)
		return res
	}

	res.Phase = PhaseMerging
	o.record(taskID, "merge.start", "branch="+branch)

	if output, err := o.git.SquashMerge(branch); err != nil {
		// Conflict. Abort the merge so the trunk is untouched, then
		// hand the literal conflict output to a human via review.
		_ = o.git.AbortMerge()
		_ = o.git.ResetHard(preHead)
		return o.fail(res, ReasonConflict,
			fmt.Sprintf("merge conflict merging %s:\n%s", branch, output))
	}
	message := fmt.Sprintf("%s: %s (squash of %s)", taskID, task.Title, branch)
	if _, err := o.git.Commit(message); err != nil {
		_ = o.git.ResetHard(preHead)
		return o.fail(res, ReasonCommitFailure,
			fmt.Sprintf("committing squash of %s: %s", branch, err))
	}

	// Verification. On any failure the merge commit is rolled back
	// before anything else happens — a failed verification must never
	// leave a partially integrated trunk.
	output, timedOut, err := o.tests.Run(o.cfg.TestCommand, o.cfg.TestTimeout)
	if timedOut {
		_ = o.git.ResetHard(preHead)
		return o.fail(res, ReasonTimeout,
			fmt.Sprintf("test command %q timed out after %s:\n%s", o.cfg.TestCommand, o.cfg.TestTimeout, output))
	}
	if err != nil {
		_ = o.git.ResetHard(preHead)
		return o.fail(res, ReasonTestFailure,
			fmt.Sprintf("tests failed after merging %s:\n%s", branch, output))
	}
	res.Phase = PhaseVerified
	o.record(taskID, "merge.verified", "branch="+branch)

	if o.cfg.Push {
		if err := o.git.Push(o.cfg.Remote, o.cfg.MainBranch); err != nil {
			res.Detail = fmt.Sprintf("merged but push failed: %s", err)
		}
	}

	done := models.StatusDone
	if _, err := o.store.Update(taskID, TaskPatch{Status: &done, Actor: mergeActor}, false); err != nil {
		res.Detail = fmt.Sprintf("merged but marking task done failed: %s", err)
		return res
	}

	// Cleanup runs only after Verified, never on Failed.
	if err := o.git.DeleteBranch(branch); err == nil {
		_ = o.git.DeleteRemoteBranch(o.cfg.Remote, branch)
		res.Phase = PhaseCleaned
	}
	o.record(taskID, "merge.done", "branch="+branch)
	return res
}

// fail rolls the task into review carrying the primary failure
// evidence, so the next actor works from the literal output rather
// than a paraphrase.
func (o *MergeOrchestrator) fail(res MergeResult, reason FailureReason, detail string) MergeResult {
	res.Phase = PhaseFailed
	res.Reason = reason
	res.Detail = detail

	review := models.StatusReview
	if _, err := o.store.Update(res.TaskID, TaskPatch{
		Status:     &review,
		BodyAppend: detail,
		Actor:      mergeActor,
	}, false); err != nil {
		res.Detail += fmt.Sprintf("\n(also failed to move task to review: %s)", err)
	}
	o.record(res.TaskID, "merge.failed", string(reason))
	return res
}

func (o *MergeOrchestrator) record(taskID, action, detail string) {
	if o.audit == nil {
		return
	}
	o.audit.Record(mergeActor, taskID, action, detail)
}
