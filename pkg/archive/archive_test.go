// pkg/archive/archive_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: t.TempDir, afero memory filesystem
// PURPOSE: Verify format dispatch, member layout, the raw-script
// special case, and the stage-then-rename commit protocol

package archive_test

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/rescrv/deftsilo/pkg/archive"
	"github.com/rescrv/deftsilo/pkg/filesystem"
	"github.com/rescrv/deftsilo/pkg/types"
)

func TestFormatForFilename(t *testing.T) {
	tests := []struct {
		name string
		want archive.Format
	}{
		{"dotfiles.tar.gz", archive.FormatTarGz},
		{"dotfiles.tar.bz2", archive.FormatTarBz2},
		{"dotfiles.tar.xz", archive.FormatTarXz},
		{"dotfiles.tar", archive.FormatTar},
		{"dotfiles", archive.FormatTar},
		{"weird.zip", archive.FormatTar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, archive.FormatForFilename(tt.name))
		})
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"dotfiles.tar.gz", "dotfiles"},
		{"dotfiles.tar.bz2", "dotfiles"},
		{"dotfiles.tar.xz", "dotfiles"},
		{"dotfiles.tar", "dotfiles"},
		{"/some/dir/home.tar.gz", "home"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, archive.Prefix(tt.name))
		})
	}
}

func fixtureFS(t *testing.T) types.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/src/.vim", 0755))
	require.NoError(t, afero.WriteFile(mem, "/src/.vimrc", []byte("set nocompatible\n"), 0644))
	return filesystem.NewAferoFS(mem)
}

var fixtureDirs = []types.TrackedDirectory{{RelativePath: ".vim", Mode: "0775"}}

var fixtureFiles = []types.TrackedFile{{RelativePath: ".vimrc", Mode: "0644", Hashes: []string{"h"}}}

// readTar collects member name -> content from an uncompressed tar
// stream, recording directory members with empty content.
func readTar(t *testing.T, r io.Reader) (map[string]string, map[string]int64) {
	t.Helper()
	members := map[string]string{}
	modes := map[string]int64{}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = io.Copy(&buf, tr)
		require.NoError(t, err)
		members[hdr.Name] = buf.String()
		modes[hdr.Name] = hdr.Mode
	}
	return members, modes
}

func TestWriteUncompressed(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dotfiles.tar")
	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, "#!/bin/sh\n"))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	members, modes := readTar(t, f)
	assert.Equal(t, "set nocompatible\n", members["dotfiles/.vimrc"])
	assert.Equal(t, "#!/bin/sh\n", members["dotfiles/install.sh"])
	assert.Contains(t, members, "dotfiles/.vim/")
	assert.Equal(t, int64(0755), modes["dotfiles/install.sh"])
	assert.Equal(t, int64(0644), modes["dotfiles/.vimrc"])
	assert.Equal(t, int64(0775), modes["dotfiles/.vim/"])
}

func TestWriteArchiveFileMode(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dotfiles.tar.gz")
	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, "#!/bin/sh\n"))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm(),
		"staged archives must not keep the temp file's private mode")
}

func TestWriteGzip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dotfiles.tar.gz")
	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, "#!/bin/sh\n"))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	members, _ := readTar(t, gz)
	assert.Contains(t, members, "dotfiles/.vimrc")
	assert.Contains(t, members, "dotfiles/install.sh")
}

func TestWriteBzip2(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dotfiles.tar.bz2")
	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, "#!/bin/sh\n"))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	members, _ := readTar(t, bzip2.NewReader(f))
	assert.Contains(t, members, "dotfiles/.vimrc")
}

func TestWriteXz(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dotfiles.tar.xz")
	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, "#!/bin/sh\n"))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	xr, err := xz.NewReader(f)
	require.NoError(t, err)

	members, _ := readTar(t, xr)
	assert.Contains(t, members, "dotfiles/.vimrc")
}

func TestWriteRawScriptSpecialCase(t *testing.T) {
	out := filepath.Join(t.TempDir(), "install.sh")
	scriptText := "#!/bin/sh\necho hi\n"
	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, scriptText))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, scriptText, string(data), "install.sh output must be the raw script, not an archive")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestWriteReplacesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "dotfiles.tar")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	require.NoError(t, archive.Write(fixtureFS(t), "/src", out, fixtureDirs, fixtureFiles, "#!/bin/sh\n"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))
}

func TestWriteFailureLeavesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "dotfiles.tar")
	require.NoError(t, os.WriteFile(out, []byte("previous good output"), 0644))

	// A tracked file that cannot be read forces the write to fail.
	badFiles := []types.TrackedFile{{RelativePath: ".missing", Mode: "0644", Hashes: []string{"h"}}}
	err := archive.Write(fixtureFS(t), "/src", out, nil, badFiles, "#!/bin/sh\n")
	require.Error(t, err)

	data, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	assert.Equal(t, "previous good output", string(data),
		"a failed generation must not disturb the previous output")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary staging files must be cleaned up on failure")
}
