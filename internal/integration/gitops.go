package integration

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitCLI implements the merge orchestrator's git boundary with the git
// CLI, running every command with -C rooted at RepoPath.
type GitCLI struct {
	repoPath  string
	cmdRunner func(name string, args ...string) (string, error)
}

// NewGitCLI creates a GitCLI for the repository at repoPath.
func NewGitCLI(repoPath string) *GitCLI {
	return &GitCLI{repoPath: repoPath, cmdRunner: execCommand}
}

// newGitCLIWithRunner creates a GitCLI with an injectable command runner for testing.
func newGitCLIWithRunner(repoPath string, runner func(name string, args ...string) (string, error)) *GitCLI {
	return &GitCLI{repoPath: repoPath, cmdRunner: runner}
}

func (g *GitCLI) git(args ...string) (string, error) {
	full := append([]string{"-C", g.repoPath}, args...)
	output, err := g.cmdRunner("git", full...)
	if err != nil {
		return output, fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(output), err)
	}
	return output, nil
}

// ListBranches returns local branches whose name starts with prefix.
func (g *GitCLI) ListBranches(prefix string) ([]string, error) {
	output, err := g.git("branch", "--list", prefix+"*", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// UnmergedCommits counts commits on branch that are not patch-equivalent
// to any commit on main. git cherry marks unmerged commits with "+", so
// a squash-merged branch still reports zero.
func (g *GitCLI) UnmergedCommits(branch, main string) (int, error) {
	output, err := g.git("cherry", main, branch)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "+") {
			count++
		}
	}
	return count, nil
}

// WorkingTreeClean reports whether the working tree has no staged or
// unstaged changes.
func (g *GitCLI) WorkingTreeClean() (bool, error) {
	output, err := g.git("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) == "", nil
}

func (g *GitCLI) Checkout(branch string) error {
	_, err := g.git("checkout", branch)
	return err
}

// Head returns the full SHA of the current HEAD.
func (g *GitCLI) Head() (string, error) {
	output, err := g.git("rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// SquashMerge stages the branch's changes onto the current branch
// without committing. The combined output is returned so conflict
// details survive the error path.
func (g *GitCLI) SquashMerge(branch string) (string, error) {
	output, err := g.git("merge", "--squash", branch)
	return output, err
}

func (g *GitCLI) AbortMerge() error {
	// After merge --squash there is no MERGE_HEAD, so merge --abort can
	// refuse; restoring the index is what matters.
	if _, err := g.git("merge", "--abort"); err == nil {
		return nil
	}
	_, err := g.git("reset", "--merge")
	return err
}

func (g *GitCLI) Commit(message string) (string, error) {
	output, err := g.git("commit", "-m", message)
	return output, err
}

func (g *GitCLI) ResetHard(ref string) error {
	_, err := g.git("reset", "--hard", ref)
	return err
}

func (g *GitCLI) Push(remote, branch string) error {
	_, err := g.git("push", remote, branch)
	return err
}

func (g *GitCLI) DeleteBranch(branch string) error {
	_, err := g.git("branch", "-D", branch)
	return err
}

func (g *GitCLI) DeleteRemoteBranch(remote, branch string) error {
	_, err := g.git("push", remote, "--delete", branch)
	return err
}

func execCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}
