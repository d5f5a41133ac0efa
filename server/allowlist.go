package server

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// IPAllowlist rejects connections whose remote address host is not in hosts,
// for use as Server.OnAcceptConnFunc (spec §4.6: "optional IP allowlist
// rejects peers by comparing the string form of the remote address").
// An empty hosts list allows everything.
func IPAllowlist(hosts []string) func(ctx context.Context, remoteAddr net.Addr, connectionCount uint64) error {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		allowed[h] = true
	}
	return func(_ context.Context, remoteAddr net.Addr, _ uint64) error {
		if len(allowed) == 0 {
			return nil
		}
		host, _, err := net.SplitHostPort(remoteAddr.String())
		if err != nil {
			host = strings.TrimSuffix(remoteAddr.String(), ":0")
		}
		if !allowed[host] {
			return fmt.Errorf("remote address %s is not in the allowlist", host)
		}
		return nil
	}
}
