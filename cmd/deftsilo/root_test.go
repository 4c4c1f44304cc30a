// cmd/deftsilo/root_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: git binary (generation test skips when absent), t.TempDir
// PURPOSE: Exercise the command surface end to end

package main

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSelftestCommand(t *testing.T) {
	out, err := execRoot(t, "selftest")
	require.NoError(t, err)
	assert.Contains(t, out, "deftsilo_mkdir()")
	assert.Contains(t, out, "echo SUCCESS")

	// The help must show the placeholder-argument invocation; piping
	// straight into sh with no argument trips the runtime's shift.
	assert.Contains(t, selftestCmd.Long, "sh -s -- placeholder")
}

func TestVersionCommand(t *testing.T) {
	_, err := execRoot(t, "version")
	require.NoError(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	out, err := execRoot(t, "config", "init", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, ".deftsilo.toml")

	data, err := os.ReadFile(filepath.Join(dir, ".deftsilo.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# deftsilo configuration")

	// A second init must refuse to clobber the existing file.
	_, err = execRoot(t, "config", "init", "-C", dir)
	require.Error(t, err)
}

// git runs a git command in dir, skipping the test if git is unusable.
func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("git %v failed: %v\n%s", args, err, out)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	root := t.TempDir()
	git(t, root, "init")
	git(t, root, "config", "user.email", "test@example.com")
	git(t, root, "config", "user.name", "Test")

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".vim", "colors"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitconfig"), []byte("[user]\n"), 0644))
	git(t, root, "add", ".gitconfig")
	git(t, root, "commit", "-m", "add gitconfig")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitconfig"), []byte("[user]\n\tname = x\n"), 0644))

	outputFlag = "dotfiles.tar"
	sourceFlag = root
	defer func() { outputFlag = ""; sourceFlag = "." }()

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	require.NoError(t, runGenerate(cmd))

	f, err := os.Open(filepath.Join(root, "dotfiles.tar"))
	require.NoError(t, err)
	defer f.Close()

	members := map[string]string{}
	tr := tar.NewReader(f)
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
	}

	require.Contains(t, members, "dotfiles/install.sh")
	require.Contains(t, members, "dotfiles/.gitconfig")
	assert.Contains(t, members, "dotfiles/.vim/")
	assert.Contains(t, members, "dotfiles/.vim/colors/")

	installer := members["dotfiles/install.sh"]
	iVim := strings.Index(installer, "deftsilo_mkdir \".vim\"")
	iColors := strings.Index(installer, "deftsilo_mkdir \".vim/colors\"")
	iGitconfig := strings.Index(installer, "deftsilo_install \".gitconfig\"")
	require.GreaterOrEqual(t, iVim, 0)
	require.Greater(t, iColors, iVim)
	require.Greater(t, iGitconfig, iColors)

	// Two hashes: the committed content and the modified working copy.
	for _, line := range strings.Split(installer, "\n") {
		if strings.HasPrefix(line, "deftsilo_install \".gitconfig\"") {
			fields := strings.Fields(line)
			assert.Len(t, fields, 5, "expected path, mode, and two hashes: %q", line)
		}
	}

	// The previous output must be excluded from a re-run's scan.
	require.NoError(t, runGenerate(cmd))
	f2, err := os.Open(filepath.Join(root, "dotfiles.tar"))
	require.NoError(t, err)
	defer f2.Close()
	tr = tar.NewReader(f2)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.NotEqual(t, "dotfiles/dotfiles.tar", hdr.Name)
	}
}
