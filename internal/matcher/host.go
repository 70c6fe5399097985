package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

// regexSigil marks a pattern as a regular expression.
const regexSigil = '~'

// regexPattern strips the '~' sigil and surrounding space from a pattern,
// returning the raw expression and whether the sigil was present.
func regexPattern(pattern string) (string, bool) {
	if strings.HasPrefix(pattern, string(regexSigil)) {
		return strings.TrimSpace(pattern[1:]), true
	}
	return "", false
}

// HostMatcher matches the request hostname against a set of patterns.
// Each pattern is classified once at construction: "~expr" compiles to a
// full-string regular expression, a pattern containing '*' becomes a
// label wildcard, anything else is an exact text match. An empty pattern
// list matches any host.
type HostMatcher struct {
	modes []hostMode
}

type hostMode struct {
	text     string
	wildcard *WildcardMatcher
	regex    *regexp.Regexp
}

// NewHost compiles the given host patterns.
func NewHost(patterns []string) (*HostMatcher, error) {
	m := &HostMatcher{}
	for _, item := range patterns {
		if raw, ok := regexPattern(item); ok {
			re, err := regexp.Compile(`\A(?:` + raw + `)\z`)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q to regular expression: %w", raw, err)
			}
			m.modes = append(m.modes, hostMode{regex: re})
			continue
		}
		if strings.ContainsRune(item, wildcardRune) {
			m.modes = append(m.modes, hostMode{wildcard: NewWildcard(item)})
			continue
		}
		m.modes = append(m.modes, hostMode{text: item})
	}
	return m, nil
}

// IsEmpty reports whether no pattern was configured.
func (m *HostMatcher) IsEmpty() bool {
	return len(m.modes) == 0
}

// IsMatch reports whether any pattern matches host. A matcher without
// patterns matches everything.
func (m *HostMatcher) IsMatch(host string) bool {
	if m.IsEmpty() {
		return true
	}
	for _, mode := range m.modes {
		switch {
		case mode.regex != nil:
			if mode.regex.MatchString(host) {
				return true
			}
		case mode.wildcard != nil:
			if mode.wildcard.IsMatch(host) {
				return true
			}
		default:
			if mode.text == host {
				return true
			}
		}
	}
	return false
}
