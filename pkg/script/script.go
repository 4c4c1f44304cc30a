// Package script renders the generated installer: the fixed POSIX
// runtime preamble followed by one statement per tracked directory and
// file. The statement stream is what makes the script relocatable - no
// absolute path from generation time ever appears in it.
package script

import (
	"strings"

	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/types"
)

// ScriptName is the conventional name of the generated installer, both
// as the archive member and as the special-cased raw output filename.
const ScriptName = "install.sh"

// QuotePath wraps a relative path in double quotes for safe embedding
// in a generated statement. Paths containing double quotes or ASCII
// control characters cannot be represented under this quoting scheme
// and abort generation.
func QuotePath(rel string) (string, error) {
	for _, r := range rel {
		if r == '"' || r < 0x20 || r == 0x7f {
			return "", errors.Newf(errors.ErrPathUnquotable,
				"path %q contains a double quote or control character", rel)
		}
	}
	return `"` + rel + `"`, nil
}

// MkdirStatement renders one deftsilo_mkdir statement.
func MkdirStatement(dir types.TrackedDirectory) (string, error) {
	qpath, err := QuotePath(dir.RelativePath)
	if err != nil {
		return "", err
	}
	return "deftsilo_mkdir " + qpath + " " + dir.Mode + "\n", nil
}

// InstallStatement renders one deftsilo_install statement with the
// file's full hash set as trailing arguments.
func InstallStatement(file types.TrackedFile) (string, error) {
	qpath, err := QuotePath(file.RelativePath)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("deftsilo_install ")
	b.WriteString(qpath)
	b.WriteString(" ")
	b.WriteString(file.Mode)
	for _, h := range file.Hashes {
		b.WriteString(" ")
		b.WriteString(h)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// Generate produces the full installer text: preamble, every mkdir
// statement (directories arrive parent-before-child from the scanner),
// every install statement, then a success echo. Statement order is the
// guarantee that file installation never targets a missing parent.
func Generate(dirs []types.TrackedDirectory, files []types.TrackedFile) (string, error) {
	var b strings.Builder
	b.WriteString(Preamble)
	for _, dir := range dirs {
		stmt, err := MkdirStatement(dir)
		if err != nil {
			return "", err
		}
		b.WriteString(stmt)
	}
	for _, file := range files {
		stmt, err := InstallStatement(file)
		if err != nil {
			return "", err
		}
		b.WriteString(stmt)
	}
	b.WriteString("echo all files successfully installed\n")
	return b.String(), nil
}
