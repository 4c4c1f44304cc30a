package script

// selfTests is a POSIX test suite for the runtime preamble. It is
// emitted after the preamble by SelfTest so every branch of the
// deftsilo_* state machines can be exercised on a target platform
// before trusting an installer there. deftsilo_err_exit is overridden
// so expected failures are captured instead of aborting the suite.
const selfTests = `deftsilo_err_exit() {
    DEFTSILO_ERROR="$*"
}

deftsilo_mode() {
    ls -ld $1 | awk '{ print $1 }'
}

set -x

# Test setup
TESTING_ROOT=` + "`mktemp -d`" + `
DEFTSILO_ROOT="${TESTING_ROOT}/dotfiles"
DEFTSILO_TARGET="${TESTING_ROOT}/target"
mkdir -p "${DEFTSILO_ROOT}"
mkdir -p "${DEFTSILO_TARGET}"

# Test 1:  Does deftsilo_sha256 return a valid checksum?
echo "this is a test file" > "${DEFTSILO_ROOT}/file1"

EXPECTED_SHA256="b6668cf8c46c7075e18215d922e7812ca082fa6cc34668d00a6c20aee4551fb6"
RETURNED_SHA256=` + "`deftsilo_sha256 \"${DEFTSILO_ROOT}/file1\"`" + `
if test "x$EXPECTED_SHA256" != "x$RETURNED_SHA256"
then
    echo sha256 does not work on this platform
    exit 1
fi

# Test 2:  Does mkdir succeed in creating a directory under the target?
DEFTSILO_ERROR=""
deftsilo_mkdir dir1 777
if test "x$DEFTSILO_ERROR" != x
then
    echo mkdir does not work on this platform
    exit 2
fi
if ! test -d "${DEFTSILO_TARGET}/dir1"
then
    echo mkdir did not make a directory
    exit 2
fi
OBSERVED_MODE=` + "`deftsilo_mode \"${DEFTSILO_TARGET}/dir1\"`" + `
if test x"${OBSERVED_MODE}" != xdrwxrwxrwx
then
    echo mkdir did not chmod the directory it created
    exit 2
fi

# Test 3:  Does mkdir no-op if the directory already exists?
DEFTSILO_ERROR=""
deftsilo_mkdir dir1 777
if test "x$DEFTSILO_ERROR" != x
then
    echo mkdir does not work on this platform
    exit 3
fi
if ! test -d "${DEFTSILO_TARGET}/dir1"
then
    echo mkdir did not make a directory
    exit 3
fi

# Test 4:  Does mkdir preserve the mode of a pre-existing directory?
DEFTSILO_ERROR=""
deftsilo_mkdir dir1 755
if test "x$DEFTSILO_ERROR" != x
then
    echo mkdir does not work on this platform
    exit 4
fi
OBSERVED_MODE=` + "`deftsilo_mode \"${DEFTSILO_TARGET}/dir1\"`" + `
if test x"${OBSERVED_MODE}" != xdrwxrwxrwx
then
    echo mkdir changed the mode of a directory it did not create
    exit 4
fi

# Test 5:  Does mkdir fail when trying to create a directory name that's already in use as a file?
DEFTSILO_ERROR=""
cp "${DEFTSILO_ROOT}/file1" "${DEFTSILO_TARGET}/file1"
deftsilo_mkdir file1 750
if test "x$DEFTSILO_ERROR" != x'cannot mkdir "'"${DEFTSILO_TARGET}"'/file1": would clobber a file'
then
    echo mkdir does not work on this platform
    exit 5
fi

# Test 6:  Does cp copy a file that doesn't yet exist?
DEFTSILO_ERROR=""
cp "${DEFTSILO_ROOT}/file1" "${DEFTSILO_ROOT}/file6"
deftsilo_cp file6 750
if test "x$DEFTSILO_ERROR" != x
then
    echo cp does not work on this platform
    exit 6
fi
if ! test -f "${DEFTSILO_TARGET}/file6"
then
    echo cp did not copy a file
    exit 6
fi
OBSERVED_MODE=` + "`deftsilo_mode \"${DEFTSILO_TARGET}/file6\"`" + `
if test x"${OBSERVED_MODE}" != x-rwxr-x---
then
    echo cp did not chmod a file
    exit 6
fi

# Test 7:  Does cp copy a file if the hash matches?
DEFTSILO_ERROR=""
deftsilo_cp file6 777 b6668cf8c46c7075e18215d922e7812ca082fa6cc34668d00a6c20aee4551fb6
if test "x$DEFTSILO_ERROR" != x
then
    echo cp does not work on this platform
    exit 7
fi
if ! test -f "${DEFTSILO_TARGET}/file6"
then
    echo cp did not copy a file
    exit 7
fi
OBSERVED_MODE=` + "`deftsilo_mode \"${DEFTSILO_TARGET}/file6\"`" + `
if test x"${OBSERVED_MODE}" != x-rwxrwxrwx
then
    echo cp did not chmod a file
    exit 7
fi

# Test 8:  Does cp refuse to copy a file if the hash fails to match?
DEFTSILO_ERROR=""
deftsilo_cp file6 700
if test "x$DEFTSILO_ERROR" != "xfailed to copy file6: unsaved changes"
then
    echo cp does not work on this platform
    exit 8
fi
OBSERVED_MODE=` + "`deftsilo_mode \"${DEFTSILO_TARGET}/file6\"`" + `
if test x"${OBSERVED_MODE}" != x-rwxrwxrwx
then
    echo cp chmoded a file when it should not
    exit 8
fi

# Test 9:  Does cp fail to copy a file if it's already a directory?
DEFTSILO_ERROR=""
echo 'test 9 checks that files do not stomp directories' > "${DEFTSILO_ROOT}/test9"
mkdir "${DEFTSILO_TARGET}/test9"
deftsilo_cp test9 700
if test "x$DEFTSILO_ERROR" != "xcannot copy ${DEFTSILO_TARGET}/test9: would clobber a directory"
then
    echo cp moved a file over a directory
    exit 9
fi

# Test 10:  Does ln link a file that doesn't yet exist?
DEFTSILO_ERROR=""
cp "${DEFTSILO_ROOT}/file1" "${DEFTSILO_ROOT}/file10"
deftsilo_ln file10 750
if test "x$DEFTSILO_ERROR" != x
then
    echo ln does not work on this platform
    exit 10
fi
if ! test -L "${DEFTSILO_TARGET}/file10"
then
    echo ln did not link a file
    exit 10
fi

# Test 11:  Does ln leave an existing link alone?
DEFTSILO_ERROR=""
deftsilo_ln file10 777 b6668cf8c46c7075e18215d922e7812ca082fa6cc34668d00a6c20aee4551fb6
if test "x$DEFTSILO_ERROR" != x
then
    echo ln does not work on this platform
    exit 11
fi
if ! test -L "${DEFTSILO_TARGET}/file10"
then
    echo ln did not preserve the link
    exit 11
fi

# Test 12:  Does ln refuse to link a file if the hash fails to match?
DEFTSILO_ERROR=""
echo 'file 12 A' > "${DEFTSILO_ROOT}/file12"
echo 'file 12 B' > "${DEFTSILO_TARGET}/file12"
deftsilo_ln file12 700
if test "x$DEFTSILO_ERROR" != "xfailed to link file12: unsaved changes"
then
    echo ln does not work on this platform
    exit 12
fi

# Test 13:  Does ln fail to link a file if it's already a directory?
DEFTSILO_ERROR=""
echo 'test 13 checks that files do not stomp directories' > "${DEFTSILO_ROOT}/test13"
mkdir "${DEFTSILO_TARGET}/test13"
deftsilo_ln test13 700
if test "x$DEFTSILO_ERROR" != "xcannot link ${DEFTSILO_TARGET}/test13: would clobber a directory"
then
    echo ln moved a file over a directory
    exit 13
fi

echo SUCCESS
`

// SelfTest returns the preamble concatenated with its test suite,
// suitable for piping to a target machine's /bin/sh.
func SelfTest() string {
	return Preamble + selfTests
}
