package node

import "net"

// usable reports whether ip can be advertised to peers: IPv4, neither
// link-local (169.254.x.x) nor loopback.
func usable(ip net.IP) bool {
	ip4 := ip.To4()
	return ip4 != nil && !ip4.IsLinkLocalUnicast() && !ip4.IsLoopback()
}

// SelectBestIP picks the address the local agent advertises.
// Private network addresses win over public ones; link-local and loopback
// addresses are never chosen.
func SelectBestIP(addrs []net.Addr) net.IP {
	var fallback net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || !usable(ipnet.IP) {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4.IsPrivate() {
			return ip4
		}
		if fallback == nil {
			fallback = ip4
		}
	}
	return fallback
}

// FirstUsableIP returns the first advertisable address from ips, or nil.
func FirstUsableIP(ips []net.IP) net.IP {
	for _, ip := range ips {
		if usable(ip) {
			return ip.To4()
		}
	}
	return nil
}
