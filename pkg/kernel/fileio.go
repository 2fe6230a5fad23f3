package kernel

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/symlink"
	"github.com/vfscore/vfskernel/pkg/validate"
	"github.com/vfscore/vfskernel/pkg/vfserrors"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// Encoding selects how ReadFile renders the raw blob bytes.
type Encoding string

const (
	EncodingRaw    Encoding = ""
	EncodingUTF8   Encoding = "utf-8"
	EncodingUTF8Alt Encoding = "utf8"
	EncodingASCII  Encoding = "ascii"
	EncodingLatin1 Encoding = "latin1"
	EncodingBinary Encoding = "binary"
	EncodingBase64 Encoding = "base64"
	EncodingHex    Encoding = "hex"
)

// WriteFileOptions configures WriteFile (spec §4.10 write_file).
type WriteFileOptions struct {
	Mode *posixmode.Mode
}

// WriteFile validates & normalizes path, requires a non-root path whose
// parent exists and is a directory, and creates or overwrites a regular
// file with data. See spec §4.10 write_file for full semantics.
func (k *Kernel) WriteFile(ctx context.Context, path string, data []byte, opts WriteFileOptions) error {
	if err := validate.Path(path, "open"); err != nil {
		return err
	}
	p := vpath.Normalize(path)
	if p == "/" {
		return vfserrors.Wrap(vfserrors.EISDIR, "open", path)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	existing, err := k.lookupRaw(ctx, p)
	if err != nil {
		return err
	}
	if existing != nil && existing.Kind == posixmode.KindDirectory {
		return vfserrors.Wrap(vfserrors.EISDIR, "open", path)
	}
	if existing == nil {
		if _, err := k.requireParentDir(ctx, p, "open"); err != nil {
			return err
		}
	}

	// I4 / §3.1: blob_ref is present iff kind=regular and size>0. An
	// empty write has no bytes to hash or intern, so the blob plane is
	// skipped entirely rather than interning an empty blob.
	var hash string
	if len(data) > 0 {
		hash, err = k.blobs.Write(ctx, data)
		if err != nil {
			return err
		}
		if err := k.blobs.Incref(ctx, hash); err != nil {
			return err
		}
	}

	now := k.now()
	var e *entry.Entry
	if existing != nil {
		e = existing.Clone()
		e.BlobRef = hash
		e.Size = int64(len(data))
		e.Mtime = now
		e.Ctime = now
		if opts.Mode != nil {
			e.Mode = posixmode.IFMT(posixmode.KindRegular) | opts.Mode.Perm()
		}
		if err := k.md.Update(ctx, e); err != nil {
			return err
		}
		if existing.BlobRef != "" {
			if _, err := k.blobs.Decref(ctx, existing.BlobRef); err != nil {
				return err
			}
		}
		return nil
	}

	mode := posixmode.DefaultFileMode
	if opts.Mode != nil {
		mode = opts.Mode.Perm()
	}
	e = &entry.Entry{
		ID:      k.newID(),
		Path:    p,
		Kind:    posixmode.KindRegular,
		Mode:    posixmode.IFMT(posixmode.KindRegular) | mode,
		UID:     k.md.CurrentUID(),
		GID:     k.md.CurrentGID(),
		Size:    int64(len(data)),
		BlobRef: hash,
		Nlink:   1,
		Atime:   now,
		Mtime:   now,
		Ctime:   now,
		Birth:   now,
	}
	return k.md.Insert(ctx, e)
}

// ReadFile validates path, follows symlinks, and returns the blob bytes
// rendered per encoding. encoding == EncodingRaw returns raw bytes;
// textual encodings return the byte representation of the rendered
// string (e.g. EncodingBase64 returns the base64 text, not raw bytes).
func (k *Kernel) ReadFile(ctx context.Context, path string, enc Encoding) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !vpath.IsAbsolute(path) {
		return nil, vfserrors.Wrap(vfserrors.EINVAL, "open", path)
	}
	if err := validate.Path(path, "open"); err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	e, err := symlink.Resolve(ctx, k.md, path, true, symlink.MaxDepth)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, "/") && path != "/" && e.Kind != posixmode.KindDirectory {
		return nil, vfserrors.Wrap(vfserrors.ENOENT, "open", path)
	}
	if e.Kind == posixmode.KindDirectory {
		return nil, vfserrors.Wrap(vfserrors.EISDIR, "read", path)
	}

	var raw []byte
	if e.BlobRef != "" {
		raw, err = k.blobs.Get(ctx, e.BlobRef)
		if err != nil {
			return nil, err
		}
	}

	return encode(raw, enc), nil
}

func encode(raw []byte, enc Encoding) []byte {
	switch enc {
	case EncodingRaw:
		return raw
	case EncodingUTF8, EncodingUTF8Alt:
		return []byte(string(raw))
	case EncodingASCII:
		out := make([]byte, len(raw))
		for i, b := range raw {
			out[i] = b & 0x7F
		}
		return out
	case EncodingLatin1, EncodingBinary:
		return raw
	case EncodingBase64:
		return []byte(base64.StdEncoding.EncodeToString(raw))
	case EncodingHex:
		return []byte(hex.EncodeToString(raw))
	default:
		return raw
	}
}

// Truncate resizes the regular file at path to length bytes, zero-filling
// on extension, and re-writes it through the blob path (spec §4.10
// truncate).
func (k *Kernel) Truncate(ctx context.Context, path string, length int64) error {
	if err := validate.Path(path, "truncate"); err != nil {
		return err
	}
	if length < 0 {
		return vfserrors.Wrap(vfserrors.EINVAL, "truncate", path)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	p := vpath.Normalize(path)
	e, err := k.lookupRaw(ctx, p)
	if err != nil {
		return err
	}
	if e == nil {
		return vfserrors.Wrap(vfserrors.ENOENT, "truncate", path)
	}
	if e.Kind == posixmode.KindDirectory {
		return vfserrors.Wrap(vfserrors.EISDIR, "truncate", path)
	}
	if e.Size == length {
		return nil
	}

	var existing []byte
	if e.BlobRef != "" {
		existing, err = k.blobs.Get(ctx, e.BlobRef)
		if err != nil {
			return err
		}
	}
	buf := make([]byte, length)
	copy(buf, existing)

	var hash string
	if length > 0 {
		hash, err = k.blobs.Write(ctx, buf)
		if err != nil {
			return err
		}
		if err := k.blobs.Incref(ctx, hash); err != nil {
			return err
		}
	}

	prev := e.BlobRef
	n := e.Clone()
	n.BlobRef = hash
	n.Size = length
	now := k.now()
	n.Mtime = now
	n.Ctime = now
	if err := k.md.Update(ctx, n); err != nil {
		return err
	}
	if prev != "" && prev != hash {
		if _, err := k.blobs.Decref(ctx, prev); err != nil {
			return err
		}
	}
	return nil
}

// CopyFileMode carries the COPYFILE_* bit flags (spec §4.10 copy_file).
type CopyFileMode int

const (
	CopyFileExcl          CopyFileMode = 1 << 0
	CopyFileFIClone       CopyFileMode = 1 << 1
	CopyFileFICloneForce  CopyFileMode = 1 << 2
)

// CopyFile copies src to dest, preserving src's mode bits. Because the
// blob plane is content-addressed, the copy naturally reflinks: dest
// simply references src's existing blob hash with its refcount bumped.
func (k *Kernel) CopyFile(ctx context.Context, src, dest string, mode CopyFileMode) error {
	if err := validate.Path(src, "copyfile"); err != nil {
		return err
	}
	if err := validate.Path(dest, "copyfile"); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	sp := vpath.Normalize(src)
	dp := vpath.Normalize(dest)
	if sp == "/" {
		return vfserrors.WrapDest(vfserrors.EISDIR, "copyfile", src, dest)
	}

	se, err := symlink.Resolve(ctx, k.md, sp, true, symlink.MaxDepth)
	if err != nil {
		return err
	}
	if se.Kind == posixmode.KindDirectory {
		return vfserrors.WrapDest(vfserrors.EISDIR, "copyfile", src, dest)
	}

	de, err := k.lookupRaw(ctx, dp)
	if err != nil {
		return err
	}
	if de != nil {
		if mode&CopyFileExcl != 0 {
			return vfserrors.WrapDest(vfserrors.EEXIST, "copyfile", src, dest)
		}
		if de.Kind == posixmode.KindDirectory {
			return vfserrors.WrapDest(vfserrors.EISDIR, "copyfile", src, dest)
		}
	} else {
		if _, err := k.requireParentDir(ctx, dp, "copyfile"); err != nil {
			return err
		}
	}

	if se.BlobRef != "" {
		if err := k.blobs.Incref(ctx, se.BlobRef); err != nil {
			return err
		}
	}

	now := k.now()
	n := &entry.Entry{
		ID:      k.newID(),
		Path:    dp,
		Kind:    posixmode.KindRegular,
		Mode:    se.Mode,
		UID:     k.md.CurrentUID(),
		GID:     k.md.CurrentGID(),
		Size:    se.Size,
		BlobRef: se.BlobRef,
		Nlink:   1,
		Atime:   now,
		Mtime:   now,
		Ctime:   now,
		Birth:   now,
	}

	if de != nil {
		if err := k.md.Update(ctx, n); err != nil {
			return err
		}
		if de.BlobRef != "" {
			if _, err := k.blobs.Decref(ctx, de.BlobRef); err != nil {
				return err
			}
		}
		return nil
	}
	return k.md.Insert(ctx, n)
}
