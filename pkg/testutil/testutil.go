// Package testutil provides shared test helpers for deftsilo:
// an in-memory history provider and builders for source-tree fixtures.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rescrv/deftsilo/pkg/types"
)

// MockHistoryProvider serves a fixed in-memory revision history.
// The zero value is usable and reports no history for every path.
type MockHistoryProvider struct {
	// Revisions maps a relative path to its ordered ContentRefs.
	Revisions map[string][]types.ContentRef

	// Blobs maps a ContentRef to its content bytes.
	Blobs map[types.ContentRef][]byte

	// ListErr / FetchErr force failures when set.
	ListErr  error
	FetchErr error
}

// NewMockHistoryProvider creates an empty mock provider.
func NewMockHistoryProvider() *MockHistoryProvider {
	return &MockHistoryProvider{
		Revisions: make(map[string][]types.ContentRef),
		Blobs:     make(map[types.ContentRef][]byte),
	}
}

// AddRevision records one historical content for rel and returns the
// ref it was stored under.
func (m *MockHistoryProvider) AddRevision(rel string, content []byte) types.ContentRef {
	sum := sha256.Sum256(content)
	ref := types.ContentRef(hex.EncodeToString(sum[:20]))
	m.Revisions[rel] = append(m.Revisions[rel], ref)
	m.Blobs[ref] = content
	return ref
}

// AddDeletion records a zero-sentinel revision for rel.
func (m *MockHistoryProvider) AddDeletion(rel string) {
	m.Revisions[rel] = append(m.Revisions[rel], types.ZeroRef)
}

func (m *MockHistoryProvider) ListRevisions(_ context.Context, rel string) ([]types.ContentRef, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Revisions[rel], nil
}

func (m *MockHistoryProvider) FetchBytes(_ context.Context, ref types.ContentRef) ([]byte, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	blob, ok := m.Blobs[ref]
	if !ok {
		return nil, fmt.Errorf("no blob for ref %s", ref)
	}
	return blob, nil
}

var _ types.HistoryProvider = (*MockHistoryProvider)(nil)

// SHA256Hex returns the hex sha256 digest of content, the same way the
// hasher computes it.
func SHA256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// TreeEntry describes one entry to create in a fixture source tree.
type TreeEntry struct {
	Path    string
	Dir     bool
	Mode    os.FileMode
	Content string
}

// CreateSourceTree materializes entries under a fresh t.TempDir and
// returns its path. Directories are created before files so nested
// entries only need their own TreeEntry.
func CreateSourceTree(t *testing.T, entries []TreeEntry) string {
	t.Helper()
	root := t.TempDir()
	for _, e := range entries {
		path := filepath.Join(root, filepath.FromSlash(e.Path))
		if e.Dir {
			if err := os.MkdirAll(path, 0755); err != nil {
				t.Fatalf("mkdir %s: %v", e.Path, err)
			}
			if err := os.Chmod(path, e.Mode); err != nil {
				t.Fatalf("chmod %s: %v", e.Path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir parent of %s: %v", e.Path, err)
		}
		if err := os.WriteFile(path, []byte(e.Content), 0644); err != nil {
			t.Fatalf("write %s: %v", e.Path, err)
		}
		if err := os.Chmod(path, e.Mode); err != nil {
			t.Fatalf("chmod %s: %v", e.Path, err)
		}
	}
	return root
}
