// Package hasher computes the historical hash set for a tracked file:
// the sha256 digest of every content the file has had across its
// version-control history, plus the digest of its current on-disk
// content.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"

	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/logging"
	"github.com/rescrv/deftsilo/pkg/types"
)

// SHA256Hex returns the lowercase hex sha256 digest of content.
func SHA256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashSet returns the sorted, de-duplicated digests of every historical
// content of rel plus its current content. rel is slash-separated and
// relative to root. A file with no recorded history yields a singleton
// set holding only the current content's digest.
//
// Any provider or read failure is fatal to generation: a hash set with
// holes would let the installer clobber user edits.
func HashSet(ctx context.Context, fsys types.FS, provider types.HistoryProvider, root, rel string) ([]string, error) {
	logger := logging.GetLogger("hasher")

	refs, err := provider.ListRevisions(ctx, rel)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistoryQuery, "cannot list revisions of %s", rel)
	}

	seen := make(map[string]struct{})
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		blob, err := provider.FetchBytes(ctx, ref)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrHistoryFetch, "cannot fetch revision %s of %s", ref, rel)
		}
		seen[SHA256Hex(blob)] = struct{}{}
	}

	current, err := fsys.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", rel)
	}
	seen[SHA256Hex(current)] = struct{}{}

	hashes := make([]string, 0, len(seen))
	for h := range seen {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	logger.Debug().
		Str("path", rel).
		Int("revisions", len(refs)).
		Int("hashes", len(hashes)).
		Msg("Computed hash set")
	return hashes, nil
}
