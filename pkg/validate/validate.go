// Package validate runs the input checks spec §4.4 requires before any
// path touches state: length limits, forbidden bytes/code points, and the
// top-level "." / ".." rejection.
package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/vfscore/vfskernel/pkg/vfserrors"
)

const (
	// MaxPathLength is the maximum total length of a validated path, in bytes.
	MaxPathLength = 4096
	// MaxSegmentLength is the maximum length of any single '/'-delimited segment.
	MaxSegmentLength = 255
)

// forbiddenRunes are Unicode code points rejected anywhere in a path.
var forbiddenRunes = map[rune]bool{
	0x0000: true,
	0x202E: true, // BiDi override
	0x2028: true, // line separator
	0x2029: true, // paragraph separator
	0xFFFD: true, // replacement character
}

// Path validates p per spec §4.4 and returns a typed error on failure.
// It must run before normalization changes the path.
func Path(p, syscall string) error {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return vfserrors.Wrap(vfserrors.EINVAL, syscall, p)
	}

	if len(p) > MaxPathLength {
		return vfserrors.Wrap(vfserrors.ENAMETOOLONG, syscall, p)
	}

	if strings.Contains(p, "%00") {
		return vfserrors.Wrap(vfserrors.EINVAL, syscall, p)
	}

	for _, seg := range strings.Split(p, "/") {
		if len(seg) > MaxSegmentLength {
			return vfserrors.Wrap(vfserrors.ENAMETOOLONG, syscall, p)
		}
	}

	for _, b := range []byte(p) {
		if b <= 0x1F || b == 0x7F {
			return vfserrors.Wrap(vfserrors.EINVAL, syscall, p)
		}
	}

	for _, r := range p {
		if r == utf8.RuneError {
			return vfserrors.Wrap(vfserrors.EINVAL, syscall, p)
		}
		if forbiddenRunes[r] {
			return vfserrors.Wrap(vfserrors.EINVAL, syscall, p)
		}
	}

	if trimmed == "." || trimmed == ".." {
		return vfserrors.Wrap(vfserrors.EINVAL, syscall, p)
	}

	return nil
}

// Name validates a bare file/directory name (used for symlink target
// components and similar sub-path pieces) against Path's segment-length,
// control-byte and forbidden-code-point rules. Unlike Path it does not
// reject invalid UTF-8 or "%00", and has no top-level "."/".." restriction.
func Name(name, syscall string) error {
	if len(name) > MaxSegmentLength {
		return vfserrors.Wrap(vfserrors.ENAMETOOLONG, syscall, name)
	}
	for _, b := range []byte(name) {
		if b <= 0x1F || b == 0x7F {
			return vfserrors.Wrap(vfserrors.EINVAL, syscall, name)
		}
	}
	for _, r := range name {
		if forbiddenRunes[r] {
			return vfserrors.Wrap(vfserrors.EINVAL, syscall, name)
		}
	}
	return nil
}
