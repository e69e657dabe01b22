// Package testhelpers provides on-disk git repositories and loggers for tests.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Logf is the logging sink of a LocalRepo, such as testing.T.Logf or TestLogger.Logf.
type Logf func(format string, args ...any)

// GitEnv isolates git from the user's and system's configuration and pins
// the identity commits are made with.
var GitEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
	"GIT_CONFIG_GLOBAL=" + os.DevNull,
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_AUTHOR_NAME=Test Author",
	"GIT_AUTHOR_EMAIL=author@example.com",
	"GIT_COMMITTER_NAME=Test Committer",
	"GIT_COMMITTER_EMAIL=committer@example.com",
}

// HasGit reports whether a git binary is available.
func HasGit() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// LocalRepo is a git repository with a work tree in a directory owned by the caller.
type LocalRepo struct {
	Path string

	logf Logf
}

// NewLocalRepo runs git init in dir with main as the initial branch.
func NewLocalRepo(dir string, logf Logf) (*LocalRepo, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	repo := &LocalRepo{Path: dir, logf: logf}
	if _, err := repo.Git("init", "-q", "-b", "main"); err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	return repo, nil
}

// Git executes a git command in the repository directory and returns its
// trimmed combined output.
func (r *LocalRepo) Git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Path
	cmd.Env = append(os.Environ(), GitEnv...)

	r.logf("[LOCAL] $ git %s", strings.Join(args, " "))
	output, err := cmd.CombinedOutput()
	outputStr := strings.TrimSpace(string(output))
	if err != nil {
		r.logf("[LOCAL] error: %v\n%s", err, outputStr)
		return outputStr, fmt.Errorf("git %s: %w: %s", args[0], err, outputStr)
	}
	return outputStr, nil
}

// CreateFile writes content to path, creating parent directories.
func (r *LocalRepo) CreateFile(path, content string) error {
	fullPath := filepath.Join(r.Path, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// DeleteFile removes a file from the work tree.
func (r *LocalRepo) DeleteFile(path string) error {
	if err := os.Remove(filepath.Join(r.Path, path)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CommitAll stages everything and commits it, returning the new HEAD id.
func (r *LocalRepo) CommitAll(message string) (string, error) {
	if _, err := r.Git("add", "-A"); err != nil {
		return "", err
	}
	if _, err := r.Git("commit", "-q", "--allow-empty", "-m", message); err != nil {
		return "", err
	}
	return r.Git("rev-parse", "HEAD")
}

// Status returns the porcelain status of the work tree.
func (r *LocalRepo) Status() (string, error) {
	return r.Git("status", "--porcelain", "--untracked-files=all")
}
