// Package scanner walks a source root and produces the ordered
// directory and file lists the script generator consumes. The
// version-control metadata directory is pruned from traversal entirely,
// and the installer's own output is excluded so re-running generation
// never packages its prior output.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/hasher"
	"github.com/rescrv/deftsilo/pkg/logging"
	"github.com/rescrv/deftsilo/pkg/script"
	"github.com/rescrv/deftsilo/pkg/types"
)

// GitDirName is the version-control metadata directory pruned from
// traversal.
const GitDirName = ".git"

// Options adjusts a scan.
type Options struct {
	// OutputName is the basename of the configured output artifact;
	// it is skipped wherever it appears so generation never packages
	// its own output.
	OutputName string

	// Exclude lists extra basenames to skip (from .deftsilo.toml).
	Exclude []string
}

// Result is the ordered outcome of a scan. Directories are sorted
// lexicographically, which places every parent before its children;
// files are likewise sorted.
type Result struct {
	Directories []types.TrackedDirectory
	Files       []types.TrackedFile
}

// Scan traverses root, computing the historical hash set of every
// regular file via provider. Entries that are neither files nor
// directories are fatal: the generated script has no statement that
// could reproduce them.
func Scan(ctx context.Context, fsys types.FS, provider types.HistoryProvider, root string, opts Options) (*Result, error) {
	logger := logging.GetLogger("scanner")

	skip := map[string]bool{script.ScriptName: true}
	if opts.OutputName != "" {
		skip[opts.OutputName] = true
	}
	for _, name := range opts.Exclude {
		skip[name] = true
	}

	var dirs []types.TrackedDirectory
	var relFiles []string
	if err := walk(fsys, root, "", skip, &dirs, &relFiles); err != nil {
		return nil, err
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].RelativePath < dirs[j].RelativePath })
	sort.Strings(relFiles)

	files := make([]types.TrackedFile, 0, len(relFiles))
	for _, rel := range relFiles {
		info, err := fsys.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", rel)
		}
		hashes, err := hasher.HashSet(ctx, fsys, provider, root, rel)
		if err != nil {
			return nil, err
		}
		files = append(files, types.TrackedFile{
			RelativePath: rel,
			Mode:         modeString(info.Mode()),
			Hashes:       hashes,
		})
	}

	logger.Debug().
		Str("root", root).
		Int("directories", len(dirs)).
		Int("files", len(files)).
		Msg("Scan complete")
	return &Result{Directories: dirs, Files: files}, nil
}

// walk recurses below root/rel, appending tracked directories and
// relative file paths. rel is "" for the root itself, which is not
// recorded as a directory.
func walk(fsys types.FS, root, rel string, skip map[string]bool, dirs *[]types.TrackedDirectory, files *[]string) error {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	entries, err := fsys.ReadDir(abs)
	if err != nil {
		return errors.Wrapf(err, errors.ErrScanFailed, "cannot read directory %s", displayPath(rel))
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == GitDirName || skip[name] {
			continue
		}
		childRel := path.Join(rel, name)

		// Stat (not Lstat) so a symlinked file is tracked by the
		// content it resolves to, matching git's view of the path.
		info, err := fsys.Stat(filepath.Join(root, filepath.FromSlash(childRel)))
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", childRel)
		}

		switch {
		case info.IsDir():
			*dirs = append(*dirs, types.TrackedDirectory{
				RelativePath: childRel,
				Mode:         modeString(info.Mode()),
			})
			if err := walk(fsys, root, childRel, skip, dirs, files); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			*files = append(*files, childRel)
		default:
			return errors.Newf(errors.ErrUnsupportedEntry,
				"%s is not a file or directory", childRel).
				WithDetail("mode", info.Mode().String())
		}
	}
	return nil
}

// modeString renders the low twelve permission bits as four octal
// digits, e.g. "0644" or "4755".
func modeString(m fs.FileMode) string {
	perm := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		perm |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		perm |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		perm |= 0o1000
	}
	return fmt.Sprintf("%04o", perm)
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}
