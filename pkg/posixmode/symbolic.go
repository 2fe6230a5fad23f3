package posixmode

import (
	"fmt"
	"strings"
)

// Clause is one parsed `[ugoa]*[+-=][rwxXst]+` clause.
type Clause struct {
	Who     Mode // OR of classBits triplets the clause applies to (rwx masks)
	Special Mode // OR of S_ISUID/S_ISGID/S_ISVTX the clause applies to
	Op      byte // '+', '-', or '='
	Perm    Mode // rwx bits requested, independent of class
	X       bool // capital X: set execute only if dir or already has any exec bit
	Special2 Mode // special bits requested (setuid/setgid/sticky) independent of who
}

// ParseSymbolicMode parses the comma-separated clause grammar
// `[ugoa]*[+-=][rwxXst]+` into an ordered list of Clause values, applied
// left to right by ApplySymbolic (spec §9).
func ParseSymbolicMode(s string) ([]Clause, error) {
	var clauses []Clause
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			return nil, fmt.Errorf("posixmode: empty clause")
		}
		i := 0
		var who Mode
		for i < len(part) && strings.ContainsRune("ugoa", rune(part[i])) {
			switch part[i] {
			case 'u':
				who |= S_IRUSR | S_IWUSR | S_IXUSR
			case 'g':
				who |= S_IRGRP | S_IWGRP | S_IXGRP
			case 'o':
				who |= S_IROTH | S_IWOTH | S_IXOTH
			case 'a':
				who |= S_IRUSR | S_IWUSR | S_IXUSR | S_IRGRP | S_IWGRP | S_IXGRP | S_IROTH | S_IWOTH | S_IXOTH
			}
			i++
		}
		if who == 0 {
			who = S_IRUSR | S_IWUSR | S_IXUSR | S_IRGRP | S_IWGRP | S_IXGRP | S_IROTH | S_IWOTH | S_IXOTH
		}
		if i >= len(part) {
			return nil, fmt.Errorf("posixmode: missing operator in %q", part)
		}
		op := part[i]
		if op != '+' && op != '-' && op != '=' {
			return nil, fmt.Errorf("posixmode: invalid operator %q", string(op))
		}
		i++

		var c Clause
		c.Who = who
		c.Op = op
		rest := part[i:]
		if rest == "" {
			return nil, fmt.Errorf("posixmode: missing permission letters in %q", part)
		}
		for _, r := range rest {
			switch r {
			case 'r':
				c.Perm |= S_IRUSR | S_IRGRP | S_IROTH
			case 'w':
				c.Perm |= S_IWUSR | S_IWGRP | S_IWOTH
			case 'x':
				c.Perm |= S_IXUSR | S_IXGRP | S_IXOTH
			case 'X':
				c.X = true
			case 's':
				c.Special2 |= S_ISUID | S_ISGID
			case 't':
				c.Special2 |= S_ISVTX
			default:
				return nil, fmt.Errorf("posixmode: invalid permission letter %q", string(r))
			}
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// ApplySymbolic applies clauses in order to mode, given whether the target
// is a directory and whether it already has any execute bit set (for the
// capital-X rule), preserving the file-type bits throughout.
func ApplySymbolic(mode Mode, clauses []Clause, isDir, hasAnyExec bool) Mode {
	ifmt := mode & S_IFMT
	perm := mode &^ S_IFMT

	for _, c := range clauses {
		reqPerm := c.Perm & maskForWho(c.Who)
		reqSpecial := c.Special2
		if c.X && (isDir || hasAnyExec) {
			reqPerm |= c.Who & (S_IXUSR | S_IXGRP | S_IXOTH)
		}
		switch c.Op {
		case '+':
			perm |= reqPerm | reqSpecial
		case '-':
			perm &^= reqPerm | reqSpecial
		case '=':
			// clear bits for the addressed classes, then set requested ones
			perm &^= c.Who
			perm |= reqPerm
			if c.Who&(S_IRUSR|S_IWUSR|S_IXUSR) != 0 {
				perm = (perm &^ S_ISUID) | (reqSpecial & S_ISUID)
			}
			if c.Who&(S_IRGRP|S_IWGRP|S_IXGRP) != 0 {
				perm = (perm &^ S_ISGID) | (reqSpecial & S_ISGID)
			}
			perm = (perm &^ S_ISVTX) | (reqSpecial & S_ISVTX)
		}
		hasAnyExec = perm&(S_IXUSR|S_IXGRP|S_IXOTH) != 0
	}
	return ifmt | perm
}

func maskForWho(who Mode) Mode {
	return who & (S_IRUSR | S_IWUSR | S_IXUSR | S_IRGRP | S_IWGRP | S_IXGRP | S_IROTH | S_IWOTH | S_IXOTH)
}
