// Package entry defines the inode-like Entry record and its read-only
// Stats/Dirent projections (spec §3.1–§3.2).
package entry

import (
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/vpath"
)

// Entry represents one filesystem object located at an absolute
// normalized path. See spec §3.1 / invariants I1–I10.
type Entry struct {
	ID   string
	Path string
	Kind posixmode.Kind
	Mode posixmode.Mode
	UID  uint32
	GID  uint32
	Size int64

	// BlobRef is set iff Kind == KindRegular && Size > 0.
	BlobRef string
	// LinkTarget is set iff Kind == KindSymlink, stored verbatim.
	LinkTarget string

	Nlink uint32

	// Timestamps, milliseconds since epoch.
	Atime int64
	Mtime int64
	Ctime int64
	Birth int64

	// Xattrs holds extended attributes (SPEC_FULL §3, a supplement beyond
	// spec.md's Entry fields).
	Xattrs map[string]string
}

// Name returns the last path segment, empty for root.
func (e *Entry) Name() string { return vpath.Name(e.Path) }

// Parent returns the absolute parent path, or "" for root.
func (e *Entry) Parent() string { return vpath.Parent(e.Path) }

// Clone returns a deep copy safe to mutate independently of e.
func (e *Entry) Clone() *Entry {
	n := *e
	if e.Xattrs != nil {
		n.Xattrs = make(map[string]string, len(e.Xattrs))
		for k, v := range e.Xattrs {
			n.Xattrs[k] = v
		}
	}
	return &n
}

// Stats is a read-only projection of Entry exposing POSIX st_* fields and
// classification predicates (spec §3.2).
type Stats struct {
	Mode  posixmode.Mode
	UID   uint32
	GID   uint32
	Size  int64
	Nlink uint32
	Atime int64
	Mtime int64
	Ctime int64
	Birth int64
}

// StatsOf projects e into a Stats value.
func StatsOf(e *Entry) Stats {
	return Stats{
		Mode:  e.Mode,
		UID:   e.UID,
		GID:   e.GID,
		Size:  e.Size,
		Nlink: e.Nlink,
		Atime: e.Atime,
		Mtime: e.Mtime,
		Ctime: e.Ctime,
		Birth: e.Birth,
	}
}

func (s Stats) IsRegular() bool   { return posixmode.IsKind(s.Mode, posixmode.KindRegular) }
func (s Stats) IsDirectory() bool { return posixmode.IsKind(s.Mode, posixmode.KindDirectory) }
func (s Stats) IsSymlink() bool   { return posixmode.IsKind(s.Mode, posixmode.KindSymlink) }
func (s Stats) IsBlock() bool     { return posixmode.IsKind(s.Mode, posixmode.KindBlock) }
func (s Stats) IsCharacter() bool { return posixmode.IsKind(s.Mode, posixmode.KindCharacter) }
func (s Stats) IsFIFO() bool      { return posixmode.IsKind(s.Mode, posixmode.KindFIFO) }
func (s Stats) IsSocket() bool    { return posixmode.IsKind(s.Mode, posixmode.KindSocket) }

// Dirent is a lightweight directory-entry projection: name, parent path,
// and kind classifier (spec §3.2).
type Dirent struct {
	Name       string
	ParentPath string
	Kind       posixmode.Kind
}

// Path reconstructs the absolute path of the entry, eliding the redundant
// slash when ParentPath is root.
func (d Dirent) Path() string {
	if d.ParentPath == "/" {
		return "/" + d.Name
	}
	return d.ParentPath + "/" + d.Name
}

func (d Dirent) IsDirectory() bool { return d.Kind == posixmode.KindDirectory }
func (d Dirent) IsSymlink() bool   { return d.Kind == posixmode.KindSymlink }
func (d Dirent) IsRegular() bool   { return d.Kind == posixmode.KindRegular }

// DirentOf projects an Entry into a Dirent.
func DirentOf(e *Entry) Dirent {
	return Dirent{
		Name:       e.Name(),
		ParentPath: e.Parent(),
		Kind:       e.Kind,
	}
}
