// Package archive packages the scanned tree and generated installer
// into a tarball, with the compression scheme selected purely by the
// output filename's suffix. Output is staged to a temporary file and
// renamed into place so a pre-existing artifact is only replaced after
// fully successful generation.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"

	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/logging"
	"github.com/rescrv/deftsilo/pkg/script"
	"github.com/rescrv/deftsilo/pkg/types"
)

// Format selects the compression applied to the tar stream.
type Format int

const (
	// FormatTar is an uncompressed tar archive, the fallback for any
	// unrecognized suffix.
	FormatTar Format = iota
	FormatTarGz
	FormatTarBz2
	FormatTarXz
)

// String returns the canonical suffix for the format.
func (f Format) String() string {
	switch f {
	case FormatTarGz:
		return ".tar.gz"
	case FormatTarBz2:
		return ".tar.bz2"
	case FormatTarXz:
		return ".tar.xz"
	default:
		return ".tar"
	}
}

// FormatForFilename maps an output filename to its compression format.
// The mapping is total: unrecognized suffixes select uncompressed tar.
func FormatForFilename(name string) Format {
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return FormatTarGz
	case strings.HasSuffix(name, ".tar.bz2"):
		return FormatTarBz2
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatTarXz
	default:
		return FormatTar
	}
}

// Prefix derives the archive's top-level member prefix: the output
// basename with its recognized suffix stripped.
func Prefix(name string) string {
	base := filepath.Base(name)
	for _, suffix := range []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tar"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// Write produces the output artifact at outputPath. When the output
// basename is exactly the installer's conventional name, the raw script
// text is written there instead of an archive. Otherwise every tracked
// directory and file plus the script (as the install.sh member, mode
// 0755) is written under the derived prefix, compressed per the
// filename suffix.
func Write(fsys types.FS, root, outputPath string, dirs []types.TrackedDirectory, files []types.TrackedFile, scriptText string) error {
	logger := logging.GetLogger("archive")

	if filepath.Base(outputPath) == script.ScriptName {
		logger.Debug().Str("path", outputPath).Msg("Writing raw installer script")
		return commit(outputPath, func(tmp *os.File) error {
			if _, err := io.WriteString(tmp, scriptText); err != nil {
				return errors.Wrap(err, errors.ErrArchiveWrite, "cannot write script")
			}
			return tmp.Chmod(0755)
		})
	}

	format := FormatForFilename(outputPath)
	prefix := Prefix(outputPath)
	logger.Debug().
		Str("path", outputPath).
		Str("format", format.String()).
		Str("prefix", prefix).
		Msg("Writing archive")

	return commit(outputPath, func(tmp *os.File) error {
		if err := writeTar(tmp, format, prefix, fsys, root, dirs, files, scriptText); err != nil {
			return err
		}
		// CreateTemp stages the file 0600 and Rename preserves that.
		return tmp.Chmod(0644)
	})
}

// commit stages output through a temporary file in the destination
// directory and renames it over outputPath on success. The temp file is
// removed on every failure path, and a pre-existing output survives
// untouched unless the write fully succeeds.
func commit(outputPath string, write func(*os.File) error) error {
	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".deftsilo-*")
	if err != nil {
		return errors.Wrapf(err, errors.ErrArchiveWrite, "cannot create temporary file in %s", dir)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrArchiveWrite, "cannot finalize temporary file")
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrArchiveWrite, "cannot move output to %s", outputPath)
	}
	return nil
}

func writeTar(w io.Writer, format Format, prefix string, fsys types.FS, root string, dirs []types.TrackedDirectory, files []types.TrackedFile, scriptText string) error {
	var compressed io.WriteCloser
	switch format {
	case FormatTarGz:
		compressed = gzip.NewWriter(w)
	case FormatTarBz2:
		bw, err := bzip2.NewWriter(w, new(bzip2.WriterConfig))
		if err != nil {
			return errors.Wrap(err, errors.ErrArchiveWrite, "cannot initialize bzip2 writer")
		}
		compressed = bw
	case FormatTarXz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return errors.Wrap(err, errors.ErrArchiveWrite, "cannot initialize xz writer")
		}
		compressed = xw
	default:
		compressed = nopWriteCloser{w}
	}

	tw := tar.NewWriter(compressed)
	now := time.Now()

	for _, d := range dirs {
		mode, err := parseMode(d.Mode)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeDir,
			Name:     prefix + "/" + d.RelativePath + "/",
			Mode:     mode,
			ModTime:  now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, errors.ErrArchiveWrite, "cannot add directory %s", d.RelativePath)
		}
	}

	for _, f := range files {
		mode, err := parseMode(f.Mode)
		if err != nil {
			return err
		}
		content, err := fsys.ReadFile(filepath.Join(root, filepath.FromSlash(f.RelativePath)))
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", f.RelativePath)
		}
		if err := addMember(tw, prefix+"/"+f.RelativePath, mode, now, content); err != nil {
			return err
		}
	}

	if err := addMember(tw, prefix+"/"+script.ScriptName, 0755, now, []byte(scriptText)); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrArchiveWrite, "cannot finalize tar stream")
	}
	if err := compressed.Close(); err != nil {
		return errors.Wrap(err, errors.ErrArchiveWrite, "cannot finalize compressed stream")
	}
	return nil
}

func addMember(tw *tar.Writer, name string, mode int64, modTime time.Time, content []byte) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     mode,
		Size:     int64(len(content)),
		ModTime:  modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, errors.ErrArchiveWrite, "cannot add member %s", name)
	}
	if _, err := tw.Write(content); err != nil {
		return errors.Wrapf(err, errors.ErrArchiveWrite, "cannot write member %s", name)
	}
	return nil
}

func parseMode(mode string) (int64, error) {
	parsed, err := strconv.ParseInt(mode, 8, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrArchiveWrite, "invalid mode string %q", mode)
	}
	return parsed, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
