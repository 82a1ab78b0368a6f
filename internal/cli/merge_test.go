package cli

import (
	"strings"
	"testing"

	"github.com/nicsuzor/aops/internal/core"
)

func TestDescribeResult(t *testing.T) {
	cases := []struct {
		name string
		res  core.MergeResult
		want string
	}{
		{
			"cleaned",
			core.MergeResult{Phase: core.PhaseCleaned},
			"merged, verified, branch cleaned",
		},
		{
			"verified with detail",
			core.MergeResult{Phase: core.PhaseVerified, Detail: "merged but push failed: remote unreachable"},
			"push failed",
		},
		{
			"already merged",
			core.MergeResult{Phase: core.PhaseAlreadyMerged},
			"already merged",
		},
		{
			"skipped",
			core.MergeResult{Phase: core.PhaseSkipped, Detail: "task is in review; re-queue to merge_ready to retry"},
			"re-queue",
		},
		{
			"failed",
			core.MergeResult{Phase: core.PhaseFailed, Reason: core.ReasonTestFailure},
			"test_failure",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := describeResult(tc.res)
			if !strings.Contains(got, tc.want) {
				t.Errorf("describeResult(%+v) = %q, want substring %q", tc.res, got, tc.want)
			}
		})
	}
}

func TestDescribeResultFailedMentionsReview(t *testing.T) {
	got := describeResult(core.MergeResult{Phase: core.PhaseFailed, Reason: core.ReasonConflict})
	if !strings.Contains(got, "review") {
		t.Errorf("failure description %q should say the task moved to review", got)
	}
}
