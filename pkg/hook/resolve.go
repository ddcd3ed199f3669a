package hook

import (
	"errors"
	"net"
	"syscall"
)

// ResolveHost resolves host to the concrete IP addresses a listener could
// bind to. An empty host resolves to the loopback interface, matching the
// default a hook binds to when none is configured.
func ResolveHost(host string) ([]net.IP, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, &ResolveError{Host: host, Err: err}
	}
	if len(ips) == 0 {
		return nil, &ResolveError{Host: host, Err: net.UnknownNetworkError(host)}
	}
	return ips, nil
}

// isAddrInUse reports whether err looks like the listener failed because
// the address is already bound by another process, as opposed to some
// other, non-recoverable failure.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
