package firewall

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/samber/lo"

	"github.com/vyrodovalexey/edgegate/internal/util"
)

// Address families as written in allow-list files.
const (
	FamilyIPv4 = "IPV4"
	FamilyIPv6 = "IPV6"
)

// Entry is one allowed network.
type Entry struct {
	Prefix netip.Prefix
	Family string
}

// String returns the CIDR form.
func (e Entry) String() string {
	return e.Prefix.String()
}

// AllowsAll reports whether the entry matches every address of its family.
func (e Entry) AllowsAll() bool {
	return e.Prefix.Bits() == 0
}

// ParseEntry parses a CIDR or a bare address. Bare addresses become /32
// or /128 networks. Host bits are masked off.
func ParseEntry(value string) (Entry, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Entry{}, fmt.Errorf("empty allow-list entry")
	}

	var prefix netip.Prefix
	if strings.Contains(value, "/") {
		p, err := netip.ParsePrefix(value)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid CIDR %q: %w", value, err)
		}
		prefix = p.Masked()
	} else {
		a, err := netip.ParseAddr(value)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid address %q: %w", value, err)
		}
		a = a.Unmap()
		prefix = netip.PrefixFrom(a, a.BitLen())
	}

	family := FamilyIPv6
	if prefix.Addr().Is4() {
		family = FamilyIPv4
	}

	return Entry{Prefix: prefix, Family: family}, nil
}

// ParseEntries parses every value, failing on the first invalid one.
func ParseEntries(values []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(values))
	for i, v := range values {
		e, err := ParseEntry(v)
		if err != nil {
			return nil, util.NewProvisioningErrorWithCause(
				fmt.Sprintf("firewall.allowList[%d]", i), "invalid entry", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// AllowList is an immutable set of allowed networks.
type AllowList struct {
	entries []Entry
}

// NewAllowList builds an allow-list. Duplicates collapse; an empty list
// is a provisioning error.
func NewAllowList(entries []Entry) (*AllowList, error) {
	unique := lo.UniqBy(entries, func(e Entry) netip.Prefix { return e.Prefix })
	if len(unique) == 0 {
		return nil, util.NewProvisioningError("firewall.allowList", "allow-list must not be empty")
	}
	return &AllowList{entries: unique}, nil
}

// ParseAllowList parses values and builds an allow-list from them.
func ParseAllowList(values []string) (*AllowList, error) {
	entries, err := ParseEntries(values)
	if err != nil {
		return nil, err
	}
	return NewAllowList(entries)
}

// Contains reports whether addr is inside any allowed network.
func (a *AllowList) Contains(addr netip.Addr) bool {
	if a == nil || !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, e := range a.entries {
		if e.Prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries.
func (a *AllowList) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// Len returns the number of distinct networks.
func (a *AllowList) Len() int {
	return len(a.entries)
}

// Strings returns the entries in CIDR form.
func (a *AllowList) Strings() []string {
	return lo.Map(a.entries, func(e Entry, _ int) string { return e.String() })
}

// AllowAllEntries returns the entries that match a whole address family.
func (a *AllowList) AllowAllEntries() []Entry {
	return lo.Filter(a.entries, func(e Entry, _ int) bool { return e.AllowsAll() })
}
