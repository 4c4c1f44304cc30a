// Package types defines the core data model shared across deftsilo:
// the tracked-tree representation produced by scanning and the
// capability interfaces (filesystem, version-control history) that the
// rest of the codebase is written against.
package types

import (
	"context"
	"io/fs"
)

// TrackedFile is one regular file discovered under the source root.
// Instances are created by the scanner and are immutable afterwards.
type TrackedFile struct {
	// RelativePath is the slash-separated path relative to the source
	// root, e.g. ".vim/vimrc".
	RelativePath string

	// Mode is the file's permission bits as four octal digits,
	// e.g. "0644".
	Mode string

	// Hashes is the sorted, de-duplicated set of sha256 hex digests the
	// file's content has ever had, including its current content.
	// Never empty.
	Hashes []string
}

// TrackedDirectory is one directory discovered under the source root.
type TrackedDirectory struct {
	RelativePath string
	Mode         string
}

// ContentRef identifies one historical revision's content for a file.
// For the git provider this is a blob SHA.
type ContentRef string

// ZeroRef is the sentinel a history provider may report for a revision
// in which the file was created and had no prior content. Callers must
// skip it rather than try to fetch it.
const ZeroRef ContentRef = "0000000000000000000000000000000000000000"

// IsZero reports whether the ref is the no-prior-content sentinel.
func (r ContentRef) IsZero() bool {
	return r == ZeroRef
}

// HistoryProvider enumerates the content history of tracked files.
// Implementations may shell out to a version-control tool or serve a
// fixed in-memory history in tests.
type HistoryProvider interface {
	// ListRevisions returns one ContentRef per revision that touched
	// rel (a slash-separated path relative to the repository root),
	// ordered most recent first. The ZeroRef sentinel may appear and
	// must be skipped by callers. A file with no recorded history
	// yields an empty slice and no error.
	ListRevisions(ctx context.Context, rel string) ([]ContentRef, error)

	// FetchBytes resolves a non-sentinel ContentRef to the raw content
	// bytes of that revision.
	FetchBytes(ctx context.Context, ref ContentRef) ([]byte, error)
}

// FS is the minimal filesystem surface the scanner and hasher need.
// The OS implementation lives in pkg/filesystem; tests use the afero
// implementation there.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]fs.DirEntry, error)
}
