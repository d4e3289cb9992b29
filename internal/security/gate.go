package security

import "net/netip"

// Networks allowed through the access gate in addition to IPv6 loopback.
var allowedV4 = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

// IsAllowed reports whether address may reach privileged endpoints. Only
// IPv4 loopback and private ranges, and the IPv6 loopback address, pass.
// Anything that does not parse as a plain IP literal is denied.
func IsAllowed(address string) bool {
	addr, err := netip.ParseAddr(address)
	if err != nil || addr.Zone() != "" {
		return false
	}

	if addr.Is4() {
		for _, prefix := range allowedV4 {
			if prefix.Contains(addr) {
				return true
			}
		}
		return false
	}

	return addr == netip.IPv6Loopback()
}
