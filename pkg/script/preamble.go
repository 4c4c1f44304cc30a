package script

// Preamble is the fixed runtime of every generated installer. It is a
// compatibility contract between generator and runtime: the operation
// names, argument order, and error strings are the wire format, and the
// generated statements below it are the only intended callers.
//
// deftsilo_mkdir leaves a pre-existing directory completely untouched,
// including its permission bits; user customizations to directory
// modes on the target survive re-installs.
const Preamble = `#!/bin/sh

set -e

DEFTSILO_ROOT=` + "`dirname $0`" + `
if test "x${DEFTSILO_ROOT}" = x;
then
    DEFTSILO_ROOT=.
fi
DEFTSILO_ROOT=` + "`realpath -q ${DEFTSILO_ROOT}`" + `
DEFTSILO_INSTALL=deftsilo_cp

while getopts "l" arg
do
    case "$1" in
    -l)
        echo "linking, not copying"
        DEFTSILO_INSTALL=deftsilo_ln
        shift
        ;;
    --)
        shift
        break
        ;;
    esac
done

DEFTSILO_TARGET="$1"
shift

deftsilo_err_exit() {
    echo $*
    exit 1
}

deftsilo_sha256() {
    sha256sum "$1" | awk '{print $1}'
}

deftsilo_mkdir() {
    d="$1"
    shift
    m="$1"
    shift
    dest="${DEFTSILO_TARGET}/$d"
    if test -f "$dest"; then
        deftsilo_err_exit cannot mkdir '"'$dest'"': would clobber a file
    elif test '!' -e "$dest"; then
        mkdir "$dest"
        chmod $m "$dest"
    fi
}

deftsilo_cp() {
    f="$1"
    shift
    m="$1"
    shift
    dest="${DEFTSILO_TARGET}/$f"
    if test -d "$dest"; then
        deftsilo_err_exit cannot copy "$dest": would clobber a directory
    elif test '!' -f "$dest"; then
        cp "${DEFTSILO_ROOT}/$f" "$dest"
        chmod "$m" "$dest"
    else
        exp=` + "`deftsilo_sha256 \"$dest\"`" + `
        found=no
        for hash in $@
        do
            if test x"$exp" = x"$hash"; then
                cp "${DEFTSILO_ROOT}/$f" "$dest"
                chmod "$m" "$dest"
                found=yes
            fi
        done
        if test x"$found" = xno; then
            deftsilo_err_exit failed to copy "$f": unsaved changes
        fi
    fi
}

deftsilo_ln() {
    f="$1"
    shift
    m="$1"
    shift
    dest="${DEFTSILO_TARGET}/$f"
    if test -d "$dest"; then
        deftsilo_err_exit cannot link "$dest": would clobber a directory
    elif test -L "$dest"; then
        true
    elif test -f "$dest"; then
        exp=` + "`deftsilo_sha256 \"$dest\"`" + `
        found=no
        for hash in $@
        do
            if test x"$exp" = x"$hash"; then
                unlink "$dest"
                ln -s "${DEFTSILO_ROOT}/$f" "$dest"
                found=yes
            fi
        done
        if test x"$found" = xno; then
            deftsilo_err_exit failed to link "$f": unsaved changes
        fi
    elif test '!' -L "$dest"; then
        ln -s "${DEFTSILO_ROOT}/$f" "$dest"
    fi
}

deftsilo_install() {
    "$DEFTSILO_INSTALL" $@
}

`
