package filter

import (
	"regexp"
	"strings"
)

// pattern is a compiled glob pattern that can match relative paths.
type pattern struct {
	re       *regexp.Regexp
	original string
	anchored bool // pattern starts with / or contains /
	dirOnly  bool // pattern ends with /
}

// compilePattern converts an rsync-style glob pattern into a compiled matcher.
func compilePattern(glob string) (*pattern, error) {
	p := &pattern{original: glob}

	// Trailing / means directory-only.
	if strings.HasSuffix(glob, "/") {
		p.dirOnly = true
		glob = strings.TrimSuffix(glob, "/")
	}

	// Leading / means anchored to the walk root.
	if strings.HasPrefix(glob, "/") {
		p.anchored = true
		glob = strings.TrimPrefix(glob, "/")
	} else if strings.Contains(glob, "/") {
		// Contains a / but doesn't start with / — still anchored per rsync rules.
		p.anchored = true
	}

	reStr := globToRegex(glob)

	if p.anchored {
		reStr = "^" + reStr + "$"
	} else {
		// Match against basename or any path suffix.
		reStr = "(^|/)" + reStr + "$"
	}

	re, err := regexp.Compile(reStr)
	if err != nil {
		return nil, err
	}
	p.re = re
	return p, nil
}

// match tests whether a relative path matches this pattern.
func (p *pattern) match(relPath string, isDir bool) bool {
	if p.dirOnly && !isDir {
		return false
	}
	return p.re.MatchString(relPath)
}

// globToRegex converts a glob pattern to a regex string.
//
//nolint:gocyclo,revive // cognitive-complexity: character-by-character glob parser
func globToRegex(glob string) string {
	var b strings.Builder
	i := 0
	for i < len(glob) {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				// ** matches anything including /
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(.*/)?")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				// * matches anything except /
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			// Character class — pass through to regex.
			j := i + 1
			if j < len(glob) && glob[j] == '!' {
				j++
			}
			if j < len(glob) && glob[j] == ']' {
				j++
			}
			for j < len(glob) && glob[j] != ']' {
				j++
			}
			if j < len(glob) {
				cls := glob[i+1 : j]
				// Convert ! to ^ for negation.
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '.', '(', ')', '+', '{', '}', '^', '$', '|', '\\':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}
