// pkg/hasher/hasher_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: mock history provider, afero memory filesystem
// PURPOSE: Verify hash-set completeness, de-duplication, and failure modes

package hasher_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/filesystem"
	"github.com/rescrv/deftsilo/pkg/hasher"
	"github.com/rescrv/deftsilo/pkg/testutil"
	"github.com/rescrv/deftsilo/pkg/types"
)

func memFSWithFile(t *testing.T, rel, content string) types.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/src/"+rel, []byte(content), 0644))
	return filesystem.NewAferoFS(mem)
}

func TestHashSetCompleteness(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	provider.AddRevision(".gitconfig", []byte("revision one"))
	provider.AddRevision(".gitconfig", []byte("revision two"))
	fsys := memFSWithFile(t, ".gitconfig", "current content")

	got, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".gitconfig")
	require.NoError(t, err)

	want := []string{
		testutil.SHA256Hex([]byte("revision one")),
		testutil.SHA256Hex([]byte("revision two")),
		testutil.SHA256Hex([]byte("current content")),
	}
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestHashSetDeduplicates(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	// Same content committed twice, and also the current content.
	provider.AddRevision(".zshrc", []byte("export EDITOR=vi"))
	provider.Revisions[".zshrc"] = append(provider.Revisions[".zshrc"], provider.Revisions[".zshrc"][0])
	fsys := memFSWithFile(t, ".zshrc", "export EDITOR=vi")

	got, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".zshrc")
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.SHA256Hex([]byte("export EDITOR=vi"))}, got)
}

func TestHashSetSkipsZeroSentinel(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	provider.AddDeletion(".profile")
	provider.AddRevision(".profile", []byte("old"))
	fsys := memFSWithFile(t, ".profile", "new")

	got, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".profile")
	require.NoError(t, err)

	want := []string{
		testutil.SHA256Hex([]byte("old")),
		testutil.SHA256Hex([]byte("new")),
	}
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestHashSetNoHistory(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	fsys := memFSWithFile(t, ".netrc", "machine example login me")

	got, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".netrc")
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.SHA256Hex([]byte("machine example login me"))}, got,
		"a never-committed file must still yield its current hash")
}

func TestHashSetSorted(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	for _, content := range []string{"a", "b", "c", "d"} {
		provider.AddRevision(".tmux.conf", []byte(content))
	}
	fsys := memFSWithFile(t, ".tmux.conf", "e")

	got, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".tmux.conf")
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(got))
	assert.Len(t, got, 5)
}

func TestHashSetProviderFailure(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	provider.ListErr = errors.New("git exploded")
	fsys := memFSWithFile(t, ".vimrc", "x")

	_, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".vimrc")
	require.Error(t, err)
	assert.True(t, dserrors.IsErrorCode(err, dserrors.ErrHistoryQuery))
}

func TestHashSetFetchFailure(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	provider.AddRevision(".vimrc", []byte("old"))
	provider.FetchErr = errors.New("missing blob")
	fsys := memFSWithFile(t, ".vimrc", "x")

	_, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".vimrc")
	require.Error(t, err)
	assert.True(t, dserrors.IsErrorCode(err, dserrors.ErrHistoryFetch))
}

func TestHashSetUnreadableFile(t *testing.T) {
	provider := testutil.NewMockHistoryProvider()
	fsys := filesystem.NewAferoFS(afero.NewMemMapFs())

	_, err := hasher.HashSet(context.Background(), fsys, provider, "/src", ".missing")
	require.Error(t, err)
	assert.True(t, dserrors.IsErrorCode(err, dserrors.ErrFileAccess))
}
