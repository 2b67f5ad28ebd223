package transport

import (
	"net/netip"
	"strconv"
	"strings"
)

// endpointHost extracts the hostname from a broker nodename of the form
// "host:port". The port suffix is only stripped when it is a valid port
// number, so bare IPv6 literals pass through intact. Brackets around an
// IPv6 literal are removed.
func endpointHost(nodename string) string {
	host := nodename
	if i := portIndex(host); i >= 0 {
		host = host[:i]
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return host
}

// portIndex returns the index of the colon separating host from port, or
// -1 when nodename carries no port. A trailing ":N" counts as a port only
// when the rest of the string contains no further colon, or is a bracketed
// IPv6 literal. Bare IPv6 literals therefore never lose their last group.
func portIndex(nodename string) int {
	i := strings.LastIndexByte(nodename, ':')
	if i < 0 || !isPort(nodename[i+1:]) {
		return -1
	}
	prefix := nodename[:i]
	if strings.ContainsRune(prefix, ':') && !strings.HasSuffix(prefix, "]") {
		return -1
	}
	return i
}

// isNumericHost reports whether host is an IPv4 or IPv6 address literal.
// SNI is never sent for address literals; hostname matching still
// applies to them.
func isNumericHost(host string) bool {
	_, err := netip.ParseAddr(host)
	return err == nil
}

// brokerAddress returns a dialable "host:port" for a nodename, appending
// the default Corvo port when none is present.
func brokerAddress(nodename string) string {
	if portIndex(nodename) >= 0 {
		return nodename
	}
	host := nodename
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return joinHostPort(host, DefaultPort)
}

func joinHostPort(host string, port int) string {
	if strings.ContainsRune(host, ':') {
		return "[" + host + "]:" + strconv.Itoa(port)
	}
	return host + ":" + strconv.Itoa(port)
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
