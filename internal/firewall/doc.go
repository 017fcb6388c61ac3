// Package firewall implements the edge allow-list firewall.
//
// An AllowList is a set of IPv4 and IPv6 networks. The Firewall passes a
// request only when its client address falls inside one of them; every
// other request, including one whose address cannot be determined, gets
// the generic 403 before any other edge logic runs.
package firewall
