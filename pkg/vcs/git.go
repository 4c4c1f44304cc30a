// Package vcs provides the git-backed history provider. It shells out
// to the git binary rather than reading the object store directly: the
// history enumeration is defined in terms of git's raw diff output, and
// rename following is something only git itself gets right.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	dserrors "github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/logging"
	"github.com/rescrv/deftsilo/pkg/types"
)

// GitProvider implements types.HistoryProvider by invoking git with its
// working directory set to the repository root.
type GitProvider struct {
	root string
}

// NewGit creates a history provider rooted at the given repository
// working tree.
func NewGit(root string) *GitProvider {
	return &GitProvider{root: root}
}

// run executes a git command in the provider's root, capturing stdout.
func (g *GitProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	logging.LogCommand("git", args)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, dserrors.Wrap(err, dserrors.ErrHistoryQuery,
				"git not found: ensure git is installed and in PATH")
		}
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return nil, dserrors.Wrapf(err, dserrors.ErrHistoryQuery,
			"git %s failed: %s", args[0], errMsg)
	}
	return stdout.Bytes(), nil
}

// ListRevisions returns the blob refs for every revision that touched
// rel, most recent first. The zero sentinel appears for revisions in
// which the file had no content (deletions) and must be skipped by the
// caller.
func (g *GitProvider) ListRevisions(ctx context.Context, rel string) ([]types.ContentRef, error) {
	out, err := g.run(ctx, "log", "--raw", "--follow", "--no-abbrev", "--oneline", "--", rel)
	if err != nil {
		return nil, err
	}
	return parseWhatchanged(string(out)), nil
}

// FetchBytes resolves a blob ref to its raw content.
func (g *GitProvider) FetchBytes(ctx context.Context, ref types.ContentRef) ([]byte, error) {
	if ref.IsZero() {
		return nil, dserrors.New(dserrors.ErrHistoryFetch, "cannot fetch the zero sentinel ref")
	}
	out, err := g.run(ctx, "cat-file", "blob", string(ref))
	if err != nil {
		return nil, dserrors.Wrapf(err, dserrors.ErrHistoryFetch, "cannot read blob %s", ref)
	}
	return out, nil
}

// parseWhatchanged extracts the post-image blob SHA from each raw diff
// line of `git log --raw --no-abbrev` output. Lines look like
//
//	:100644 100644 <old sha> <new sha> M\t<path>
//
// and only lines starting with ':' carry file changes.
func parseWhatchanged(out string) []types.ContentRef {
	var refs []types.ContentRef
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, ":") {
			continue
		}
		pieces := strings.Split(line, " ")
		if len(pieces) < 4 {
			continue
		}
		refs = append(refs, types.ContentRef(pieces[3]))
	}
	return refs
}

var _ types.HistoryProvider = (*GitProvider)(nil)
