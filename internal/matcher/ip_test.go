package matcher

import (
	"net/netip"
	"testing"
)

func addr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestIPAllowExclusive(t *testing.T) {
	m, err := NewIP([]string{"10.0.0.1", "192.168.*.*"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsPass(addr(t, "10.0.0.1")) {
		t.Error("exact allow should pass")
	}
	if !m.IsPass(addr(t, "192.168.1.5")) {
		t.Error("wildcard allow should pass")
	}
	if m.IsPass(addr(t, "10.0.0.2")) {
		t.Error("address outside allow list must be rejected")
	}
}

func TestIPDeny(t *testing.T) {
	m, err := NewIP(nil, []string{"10.0.0.*"})
	if err != nil {
		t.Fatal(err)
	}
	if m.IsPass(addr(t, "10.0.0.7")) {
		t.Error("denied address must not pass")
	}
	if !m.IsPass(addr(t, "10.0.1.7")) {
		t.Error("address outside deny list should pass")
	}
}

func TestIPAllowOverridesDeny(t *testing.T) {
	// A non-empty allow list is exclusive; deny is not consulted.
	m, err := NewIP([]string{"10.0.0.1"}, []string{"10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsPass(addr(t, "10.0.0.1")) {
		t.Error("allow list wins when non-empty")
	}
}

func TestIPEmptyPasses(t *testing.T) {
	m, err := NewIP(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsPass(addr(t, "8.8.8.8")) {
		t.Error("empty matcher passes everything")
	}
}

func TestIPBadPattern(t *testing.T) {
	if _, err := NewIP([]string{"not-an-ip"}, nil); err == nil {
		t.Error("expected error for unparseable address")
	}
}
