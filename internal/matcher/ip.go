package matcher

import (
	"fmt"
	"net/netip"
	"strings"
)

// IPMatcher decides whether a client address may pass, from an allow list
// and a deny list. A non-empty allow list is exclusive: the address must
// match one of its patterns. Otherwise the address passes unless a deny
// pattern matches. Patterns are exact addresses or label wildcards over
// the printed address.
type IPMatcher struct {
	allow []ipMode
	deny  []ipMode
}

type ipMode struct {
	addr     netip.Addr
	wildcard *WildcardMatcher
}

func newIPMode(pattern string) (ipMode, error) {
	if strings.ContainsRune(pattern, wildcardRune) {
		return ipMode{wildcard: NewWildcard(pattern)}, nil
	}
	addr, err := netip.ParseAddr(pattern)
	if err != nil {
		return ipMode{}, fmt.Errorf("cannot parse %q to ip address: %w", pattern, err)
	}
	return ipMode{addr: addr}, nil
}

func (m ipMode) isMatch(ip netip.Addr) bool {
	if m.wildcard != nil {
		return m.wildcard.IsMatch(ip.String())
	}
	return m.addr == ip
}

// NewIP compiles allow and deny pattern lists.
func NewIP(allow, deny []string) (*IPMatcher, error) {
	m := &IPMatcher{}
	for _, item := range allow {
		mode, err := newIPMode(item)
		if err != nil {
			return nil, err
		}
		m.allow = append(m.allow, mode)
	}
	for _, item := range deny {
		mode, err := newIPMode(item)
		if err != nil {
			return nil, err
		}
		m.deny = append(m.deny, mode)
	}
	return m, nil
}

// IsPass reports whether ip is allowed through.
func (m *IPMatcher) IsPass(ip netip.Addr) bool {
	if len(m.allow) > 0 {
		for _, mode := range m.allow {
			if mode.isMatch(ip) {
				return true
			}
		}
		return false
	}
	for _, mode := range m.deny {
		if mode.isMatch(ip) {
			return false
		}
	}
	return true
}
