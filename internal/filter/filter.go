package filter

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Set is an ordered list of exclusion patterns. The walk consults it for
// every entry; a match prunes the entry (and, for directories, the whole
// subtree) from the analysis.
type Set struct {
	patterns []*pattern
}

// NewSet compiles the given patterns into a Set.
func NewSet(patterns ...string) (*Set, error) {
	s := &Set{}
	for _, p := range patterns {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add compiles an exclusion pattern and appends it to the set.
func (s *Set) Add(p string) error {
	cp, err := compilePattern(p)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", p, err)
	}
	s.patterns = append(s.patterns, cp)
	return nil
}

// Len returns the number of patterns in the set.
func (s *Set) Len() int {
	return len(s.patterns)
}

// Excluded reports whether relPath matches any pattern in the set.
// relPath is relative to the walk root; isDir indicates directories.
func (s *Set) Excluded(relPath string, isDir bool) bool {
	for _, p := range s.patterns {
		if p.match(relPath, isDir) {
			return true
		}
	}
	return false
}

// LoadFile reads exclusion patterns from a file and adds them to the set.
// Blank lines and lines starting with # are skipped.
func (s *Set) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.Add(line); err != nil {
			return fmt.Errorf("exclude file %s line %d: %w", path, lineNum, err)
		}
	}
	return scanner.Err()
}
