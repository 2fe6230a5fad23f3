// Package perm implements the POSIX owner/group/other permission checks
// the kernel applies before chmod/chown/access (spec §4.9).
package perm

import (
	"github.com/vfscore/vfskernel/pkg/entry"
	"github.com/vfscore/vfskernel/pkg/posixmode"
)

// User is the identity context permission checks evaluate against.
type User struct {
	UID    uint32
	GID    uint32
	Groups []uint32
	Root   bool
}

func (u User) inGroup(gid uint32) bool {
	if u.GID == gid {
		return true
	}
	for _, g := range u.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// Check reports whether u may perform the access bit (R_OK/W_OK/X_OK) on e.
func Check(u User, e *entry.Entry, accessBit int) bool {
	if u.Root {
		return true
	}
	if u.UID == e.UID {
		return posixmode.HasPerm(e.Mode, posixmode.ClassUser, accessBit)
	}
	if u.inGroup(e.GID) {
		return posixmode.HasPerm(e.Mode, posixmode.ClassGroup, accessBit)
	}
	return posixmode.HasPerm(e.Mode, posixmode.ClassOther, accessBit)
}

// CanChown reports whether u may change e's ownership to (uid, gid); a
// negative newUID or newGID means "leave unchanged" and is not checked.
func CanChown(u User, e *entry.Entry, newUID, newGID int64) bool {
	if u.Root {
		return true
	}
	// Non-root may never change uid to any value.
	if newUID >= 0 && uint32(newUID) != e.UID {
		return false
	}
	// Non-root owner may change gid to a group they belong to.
	if newGID >= 0 {
		if u.UID != e.UID {
			return false
		}
		if !u.inGroup(uint32(newGID)) {
			return false
		}
	}
	return true
}

// CanChmod reports whether u may change e's mode: only root or the owner may.
func CanChmod(u User, e *entry.Entry) bool {
	return u.Root || u.UID == e.UID
}
