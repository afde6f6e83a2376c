// Package discovery finds the read-only shard nodes the router fans out to.
// Two providers exist: a static host list (SD_STATIC_HOSTS) and a hosts file
// re-read on filesystem events.
package discovery

import (
	"context"
	"net"
	"sort"
	"strings"
)

// defaultPort is assumed when a host entry carries no port.
const defaultPort = "6334"

// Provider yields the current read-shard address set.
type Provider interface {
	// Hosts returns the current normalized shard addresses.
	Hosts() []string
	// Watch emits a new address set whenever membership changes.
	// The channel closes when ctx is done.
	Watch(ctx context.Context) <-chan []string
}

// normalize dedupes, trims and sorts a host list, stripping tcp:// prefixes
// and appending defaultPort to bare hostnames.
func normalize(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		h = strings.TrimPrefix(h, "tcp://")
		if h == "" {
			continue
		}
		if !strings.Contains(h, ":") {
			h = net.JoinHostPort(h, defaultPort)
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// equalHosts compares two normalized host lists.
func equalHosts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
