package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/FryrAI/keel/internal/fsscan"
	"github.com/FryrAI/keel/internal/store"
)

// selectFiles resolves opts' file-set selector to a canonical, ignore-filtered
// list of paths relative to e.Root (§4.6 step 1). Explicit paths take
// precedence over --changed/--since; with none of the three, the full
// workspace is walked.
func (e *Engine) selectFiles(ctx context.Context, opts Options) ([]string, error) {
	scanner, err := fsscan.New(e.Root)
	if err != nil {
		return nil, fmt.Errorf("engine: build scanner: %w", err)
	}

	switch {
	case len(opts.Files) > 0:
		var out []string
		for _, f := range opts.Files {
			rel := f
			if filepath.IsAbs(f) {
				if r, err := filepath.Rel(e.Root, f); err == nil {
					rel = r
				}
			}
			rel = filepath.ToSlash(rel)
			if scanner.Ignored(rel) {
				continue
			}
			out = append(out, rel)
		}
		return out, nil

	case opts.Changed || opts.Since != "":
		ref := opts.Since
		if opts.Changed {
			ref = ""
		}
		names, err := gitDiffNames(ctx, e.Root, ref)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, n := range names {
			if !scanner.Ignored(n) {
				out = append(out, n)
			}
		}
		return out, nil

	default:
		abs, err := scanner.Walk()
		if err != nil {
			return nil, fmt.Errorf("engine: walk workspace: %w", err)
		}
		out := make([]string, len(abs))
		for i, a := range abs {
			rel, err := filepath.Rel(e.Root, a)
			if err != nil {
				rel = a
			}
			out[i] = filepath.ToSlash(rel)
		}
		return out, nil
	}
}

// gitDiffNames shells out to `git diff --name-only` (ref == "": working tree
// vs HEAD; otherwise <ref>...HEAD), grounded on the teacher's
// exec.CommandContext("git", ...) pattern for its git-history scanner
// (SPEC_FULL §C). A non-repo or missing git is not an error: it degrades to
// no files selected, matching the teacher's "skip, don't fail" git scan.
func gitDiffNames(ctx context.Context, root, ref string) ([]string, error) {
	args := []string{"diff", "--name-only"}
	if ref != "" {
		args = append(args, fmt.Sprintf("%s...HEAD", ref))
	} else {
		args = append(args, "HEAD")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		logger().Warn("git diff unavailable, treating as no changed files: %v", err)
		return nil, nil
	}

	var out []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// fanOut adds the direct-caller files of every node whose signature changed
// in this compile (one hop, §4.6 step 2, §9 Open Question (a)). Deeper
// propagation is intentionally not chased — it is instead caught by
// violation resolution on whatever future edit touches that second-hop file.
func (e *Engine) fanOut(updatedFuncNodeIDs []string, already map[string]bool) ([]string, error) {
	var added []string
	seen := map[string]bool{}
	for _, nodeID := range updatedFuncNodeIDs {
		callers, err := e.Store.Edges(nodeID, store.DirectionIn)
		if err != nil {
			return nil, err
		}
		for _, c := range callers {
			if c.FilePath == "" || already[c.FilePath] || seen[c.FilePath] {
				continue
			}
			seen[c.FilePath] = true
			added = append(added, c.FilePath)
		}
	}
	return added, nil
}
