package gitsync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// commandRunner abstracts git command execution for testability.
// Production code uses execRunner; tests inject a fake.
type commandRunner interface {
	// Output runs git with args in dir and returns its stdout
	Output(ctx context.Context, dir string, args ...string) (string, error)
	// Run runs git with args in dir, forwarding output to the console
	Run(ctx context.Context, dir string, args ...string) error
}

// execRunner shells out to the git binary
type execRunner struct{}

func (execRunner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

func (execRunner) Run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Syncer resynchronizes a working tree to its remote tracking branch
type Syncer struct {
	repoDir string
	remote  string
	branch  string
	runner  commandRunner
}

// New creates a Syncer for the repository at repoDir tracking remote/branch
func New(repoDir, remote, branch string) *Syncer {
	return &Syncer{
		repoDir: repoDir,
		remote:  remote,
		branch:  branch,
		runner:  execRunner{},
	}
}

// Dirty reports whether the working tree has any pending modification:
// staged, unstaged, or untracked
func (s *Syncer) Dirty(ctx context.Context) (bool, error) {
	out, err := s.runner.Output(ctx, s.repoDir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Sync fetches the tracking branch and hard-resets the working tree to
// FETCH_HEAD, discarding any divergent local commits.
//
// The fetch error is deliberately discarded: a failed fetch leaves
// FETCH_HEAD as it was and the reset proceeds against the previous state.
func (s *Syncer) Sync(ctx context.Context) error {
	_ = s.runner.Run(ctx, s.repoDir, "fetch", s.remote, s.branch)

	if err := s.runner.Run(ctx, s.repoDir, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("reset to %s/%s: %w", s.remote, s.branch, err)
	}
	return nil
}

// Head returns the short SHA of HEAD
func (s *Syncer) Head(ctx context.Context) (string, error) {
	out, err := s.runner.Output(ctx, s.repoDir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Remote returns the configured remote name
func (s *Syncer) Remote() string { return s.remote }

// Branch returns the configured branch name
func (s *Syncer) Branch() string { return s.branch }

// IsRepo reports whether repoDir is a git repository
func (s *Syncer) IsRepo() bool {
	info, err := os.Stat(filepath.Join(s.repoDir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsGitInstalled reports whether git is available on the system PATH
func IsGitInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
