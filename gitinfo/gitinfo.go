// Package gitinfo collects repository metadata attached to cloud uploads:
// branch name, commit SHA and whether the branch tracks a remote. Everything
// degrades gracefully — outside a git repository the fields stay at their
// unknown defaults and nothing fails.
package gitinfo

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// commandTimeout bounds each git subprocess.
const commandTimeout = 5 * time.Second

// Context is the git state of the working directory at collection time.
// CommitSHA is the abbreviated form, as git resolves it.
type Context struct {
	Branch    string
	CommitSHA string
	HasRemote bool
}

// Collect gathers git metadata for dir. Unavailable values come back as
// "unknown"; Collect never returns an error.
func Collect(ctx context.Context, dir string) Context {
	info := Context{Branch: "unknown", CommitSHA: "unknown"}

	if branch, ok := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); ok && branch != "" {
		info.Branch = branch
	}
	if sha, ok := runGit(ctx, dir, "rev-parse", "--short", "HEAD"); ok && sha != "" {
		info.CommitSHA = sha
	}
	if info.Branch != "unknown" {
		_, info.HasRemote = runGit(ctx, dir, "rev-parse", "--abbrev-ref", info.Branch+"@{upstream}")
	}
	return info
}

// BranchType classifies the branch for cloud grouping: "origin" when the
// branch tracks a remote, "local" otherwise.
func (c Context) BranchType() string {
	if c.HasRemote {
		return "origin"
	}
	return "local"
}

// FullBranch is the branch qualified by its type, e.g. "origin/main" or
// "local/wip".
func (c Context) FullBranch() string {
	return c.BranchType() + "/" + c.Branch
}

func runGit(ctx context.Context, dir string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}
