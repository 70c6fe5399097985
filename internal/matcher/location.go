package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// LocationMatcher matches the decoded request path against a single
// pattern. The match mode is chosen by the sigil introducing the pattern:
// '~' regular expression (unanchored), '^' prefix, '$' suffix, anything
// else a glob compiled once at construction.
type LocationMatcher struct {
	mode locationMode
}

type locationMode struct {
	glob   glob.Glob
	regex  *regexp.Regexp
	prefix string
	suffix string
	isPre  bool
	isSuf  bool
}

// NewLocation classifies pattern by its leading sigil and compiles it.
func NewLocation(pattern string) (*LocationMatcher, error) {
	if len(pattern) > 0 {
		switch pattern[0] {
		case '~':
			return NewLocationRegex(strings.TrimSpace(pattern[1:]))
		case '^':
			return NewLocationPrefix(pattern[1:]), nil
		case '$':
			return NewLocationSuffix(pattern[1:]), nil
		}
	}
	return NewLocationGlob(pattern)
}

// NewLocationGlob compiles a glob pattern.
func NewLocationGlob(pattern string) (*LocationMatcher, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %q to glob matcher: %w", pattern, err)
	}
	return &LocationMatcher{mode: locationMode{glob: g}}, nil
}

// NewLocationRegex compiles an unanchored regular expression pattern.
func NewLocationRegex(pattern string) (*LocationMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q to regular expression: %w", pattern, err)
	}
	return &LocationMatcher{mode: locationMode{regex: re}}, nil
}

// NewLocationPrefix matches paths starting with pattern.
func NewLocationPrefix(pattern string) *LocationMatcher {
	return &LocationMatcher{mode: locationMode{prefix: pattern, isPre: true}}
}

// NewLocationSuffix matches paths ending with pattern.
func NewLocationSuffix(pattern string) *LocationMatcher {
	return &LocationMatcher{mode: locationMode{suffix: pattern, isSuf: true}}
}

// IsMatch reports whether path matches.
func (m *LocationMatcher) IsMatch(path string) bool {
	switch {
	case m.mode.glob != nil:
		return m.mode.glob.Match(path)
	case m.mode.regex != nil:
		return m.mode.regex.MatchString(path)
	case m.mode.isPre:
		return strings.HasPrefix(path, m.mode.prefix)
	case m.mode.isSuf:
		return strings.HasSuffix(path, m.mode.suffix)
	}
	return false
}
