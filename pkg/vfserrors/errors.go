// Package vfserrors defines the closed POSIX error taxonomy used across the
// kernel. Every operation in pkg/kernel returns errors from this package so
// that callers can branch on Code without parsing strings.
package vfserrors

import "fmt"

// Code identifies one of the POSIX error variants the kernel can raise.
type Code string

const (
	ENOENT       Code = "ENOENT"
	EPERM        Code = "EPERM"
	EACCES       Code = "EACCES"
	EBUSY        Code = "EBUSY"
	EEXIST       Code = "EEXIST"
	EXDEV        Code = "EXDEV"
	ENOTDIR      Code = "ENOTDIR"
	EISDIR       Code = "EISDIR"
	EINVAL       Code = "EINVAL"
	ENFILE       Code = "ENFILE"
	EMFILE       Code = "EMFILE"
	ENOSPC       Code = "ENOSPC"
	EROFS        Code = "EROFS"
	ENAMETOOLONG Code = "ENAMETOOLONG"
	ENOTEMPTY    Code = "ENOTEMPTY"
	ELOOP        Code = "ELOOP"
	EBADF        Code = "EBADF"
)

// errno carries the numeric errno conventionally associated with each code.
var errno = map[Code]int{
	ENOENT:       -2,
	EPERM:        -1,
	EACCES:       -13,
	EBUSY:        -16,
	EEXIST:       -17,
	EXDEV:        -18,
	ENOTDIR:      -20,
	EISDIR:       -21,
	EINVAL:       -22,
	ENFILE:       -23,
	EMFILE:       -24,
	ENOSPC:       -28,
	EROFS:        -30,
	ENAMETOOLONG: -36,
	ENOTEMPTY:    -39,
	ELOOP:        -40,
	EBADF:        -9,
}

var messages = map[Code]string{
	ENOENT:       "no such file or directory",
	EPERM:        "operation not permitted",
	EACCES:       "permission denied",
	EBUSY:        "resource busy",
	EEXIST:       "file already exists",
	EXDEV:        "cross-device link",
	ENOTDIR:      "not a directory",
	EISDIR:       "is a directory",
	EINVAL:       "invalid argument",
	ENFILE:       "file table overflow",
	EMFILE:       "too many open files",
	ENOSPC:       "no space left on device",
	EROFS:        "read-only filesystem",
	ENAMETOOLONG: "name too long",
	ENOTEMPTY:    "directory not empty",
	ELOOP:        "too many levels of symbolic links",
	EBADF:        "bad file descriptor",
}

// Error is the concrete error type returned by every kernel operation.
type Error struct {
	Code    Code
	Syscall string
	Path    string
	Dest    string
}

// New builds an Error for the given code and syscall name.
func New(code Code, syscall string) *Error {
	return &Error{Code: code, Syscall: syscall}
}

// WithPath returns a copy of the error carrying the given path.
func (e *Error) WithPath(path string) *Error {
	n := *e
	n.Path = path
	return &n
}

// WithDest returns a copy of the error carrying a destination path, used by
// two-path operations such as rename and link.
func (e *Error) WithDest(dest string) *Error {
	n := *e
	n.Dest = dest
	return &n
}

// Errno returns the numeric errno conventionally associated with Code.
func (e *Error) Errno() int {
	return errno[e.Code]
}

// Error implements the error interface with the format
// "CODE: human-message[, syscall 'path'[ -> 'dest']]".
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, messages[e.Code])
	if e.Syscall == "" {
		return msg
	}
	if e.Path == "" {
		return fmt.Sprintf("%s, %s", msg, e.Syscall)
	}
	if e.Dest == "" {
		return fmt.Sprintf("%s, %s '%s'", msg, e.Syscall, e.Path)
	}
	return fmt.Sprintf("%s, %s '%s' -> '%s'", msg, e.Syscall, e.Path, e.Dest)
}

// Is allows errors.Is(err, vfserrors.New(code, "")) comparisons on Code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap is a convenience constructor chaining New/WithPath/WithDest.
func Wrap(code Code, syscall, path string) *Error {
	return New(code, syscall).WithPath(path)
}

// WrapDest is Wrap plus a destination path, for rename/link-shaped errors.
func WrapDest(code Code, syscall, path, dest string) *Error {
	return New(code, syscall).WithPath(path).WithDest(dest)
}

// HasCode reports whether err is a *Error carrying the given Code; errors
// that wrap a *Error are not unwrapped.
func HasCode(err error, code Code) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	return e.Code == code
}
