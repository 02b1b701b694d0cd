package codeowners

import (
	"regexp"
	"strings"
	"sync"
)

// Matcher decides whether a path matches a rule pattern. Compiled patterns
// are cached; a pattern that fails to compile is cached as "never matches".
type Matcher struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewMatcher creates a Matcher with an empty pattern cache
func NewMatcher() *Matcher {
	return &Matcher{cache: make(map[string]*regexp.Regexp)}
}

var defaultMatcher = NewMatcher()

// Matches reports whether filePath matches pattern using the shared matcher.
func Matches(pattern, filePath string) bool {
	return defaultMatcher.Matches(pattern, filePath)
}

// Matches reports whether filePath matches pattern.
func (m *Matcher) Matches(pattern, filePath string) bool {
	re := m.compile(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(normalizePath(filePath))
}

func (m *Matcher) compile(pattern string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.cache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(PatternToRegexp(pattern))
	if err != nil {
		re = nil
	}
	m.cache[pattern] = re
	return re
}

// PatternToRegexp converts an ownership glob into an unanchored-search regular expression:
//
//	literal characters are quoted (so '.' is literal)
//	'*' matches within one path segment, '**' across segments, '**/' zero or more directories
//	a trailing '/' matches the directory and everything beneath it
//	a leading '/' anchors to the root, otherwise the match may start after any '/'
//	any other pattern must end on a segment boundary
func PatternToRegexp(pattern string) string {
	var sb strings.Builder

	body := pattern
	if strings.HasPrefix(body, "/") {
		sb.WriteString("^")
		body = body[1:]
	} else {
		sb.WriteString("(?:^|/)")
	}

	isDir := strings.HasSuffix(body, "/")

	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '*' && i+1 < len(runes) && runes[i+1] == '*':
			if i+2 < len(runes) && runes[i+2] == '/' {
				sb.WriteString("(?:.*/)?")
				i += 2
			} else {
				sb.WriteString(".*")
				i++
			}
		case c == '*':
			sb.WriteString("[^/]*")
		case c == '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	if isDir {
		sb.WriteString(".*")
	} else {
		sb.WriteString("(?:/|$)")
	}

	return sb.String()
}

func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}
