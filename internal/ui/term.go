package ui

import "golang.org/x/term"

// defaultTermWidth is assumed when the size probe fails (pipes, CI).
const defaultTermWidth = 80

// IsTTY reports whether fd is attached to a terminal. The HUD presenter
// is only selected when stderr passes this check.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// TermWidth returns the column count for fd, or defaultTermWidth when
// it cannot be determined.
func TermWidth(fd uintptr) int {
	w, _, err := term.GetSize(int(fd))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}
