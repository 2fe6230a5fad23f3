// Package vpath implements POSIX path parsing and normalization with no
// host-filesystem dependency — every rule comes from spec §4.1, not from
// path/filepath's platform-specific behavior.
package vpath

import "strings"

// Normalize produces the canonical POSIX form of p:
//  1. split on '/', dropping empty segments (collapses repeated slashes)
//  2. elide '.' segments
//  3. '..' pops the last non-'..' element; extra '..' at absolute root are
//     discarded, leading '..' on relative paths is preserved
//  4. trailing slashes are removed except for the root itself
//  5. empty input normalizes to "."
func Normalize(p string) string {
	if p == "" {
		return "."
	}
	abs := strings.HasPrefix(p, "/")
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
				continue
			}
			if abs {
				continue
			}
			out = append(out, "..")
		default:
			out = append(out, s)
		}
	}
	joined := strings.Join(out, "/")
	if abs {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// IsAbsolute reports whether p starts with '/'.
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "/")
}

// Join joins path segments POSIX-style and normalizes the result.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

// Resolve resolves segments against base: absolute segments replace base
// entirely, relative ones are joined onto it, all normalized at the end.
func Resolve(base string, segments ...string) string {
	cur := base
	for _, s := range segments {
		if IsAbsolute(s) {
			cur = s
			continue
		}
		cur = cur + "/" + s
	}
	return Normalize(cur)
}

// Dirname returns the normalized parent of p. Dirname("/") == "/".
func Dirname(p string) string {
	n := Normalize(p)
	if n == "/" {
		return "/"
	}
	idx := strings.LastIndex(n, "/")
	if idx <= 0 {
		if IsAbsolute(n) {
			return "/"
		}
		return "."
	}
	return n[:idx]
}

// Basename returns the last segment of p, optionally stripping a trailing
// ext (mirroring Node's path.basename(p, ext)).
func Basename(p string, ext ...string) string {
	n := Normalize(p)
	if n == "/" {
		return ""
	}
	idx := strings.LastIndex(n, "/")
	base := n
	if idx >= 0 {
		base = n[idx+1:]
	}
	if len(ext) == 1 && ext[0] != "" && strings.HasSuffix(base, ext[0]) && base != ext[0] {
		base = base[:len(base)-len(ext[0])]
	}
	return base
}

// Extname returns the substring from the last '.' in the basename, unless
// that '.' is the first character (dotfiles have no extension) or the
// basename is "." or "..".
func Extname(p string) string {
	base := Basename(p)
	if base == "." || base == ".." || base == "" {
		return ""
	}
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

// Parsed is the decomposition returned by Parse.
type Parsed struct {
	Dir  string
	Base string
	Ext  string
	Name string
}

// Parse decomposes a normalized path into directory, base, extension, and
// extension-less name.
func Parse(p string) Parsed {
	base := Basename(p)
	ext := Extname(p)
	name := base
	if ext != "" {
		name = base[:len(base)-len(ext)]
	}
	return Parsed{
		Dir:  Dirname(p),
		Base: base,
		Ext:  ext,
		Name: name,
	}
}

// Format is the inverse of Parse: Dir joined with Base.
func Format(p Parsed) string {
	if p.Dir == "/" {
		return "/" + p.Base
	}
	return p.Dir + "/" + p.Base
}

// Relative computes a relative path from "from" to "to", both treated as
// absolute normalized paths.
func Relative(from, to string) string {
	f := splitNonEmpty(Normalize(from))
	t := splitNonEmpty(Normalize(to))

	common := 0
	for common < len(f) && common < len(t) && f[common] == t[common] {
		common++
	}

	ups := len(f) - common
	parts := make([]string, 0, ups+len(t)-common)
	for i := 0; i < ups; i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, t[common:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

func splitNonEmpty(p string) []string {
	segs := strings.Split(p, "/")
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Name returns the last segment of an already-normalized absolute path,
// matching Entry.name semantics: empty for root.
func Name(p string) string {
	if p == "/" {
		return ""
	}
	return Basename(p)
}

// Parent returns the absolute path of p's containing directory, or ""
// (meaning "no parent") when p is root.
func Parent(p string) string {
	if p == "/" {
		return ""
	}
	return Dirname(p)
}
