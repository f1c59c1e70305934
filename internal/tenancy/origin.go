package tenancy

import (
	"net"
	"net/http"
	"strings"
)

// KeyResolver maps an inbound request to its partition key. The key stands
// in for device/tenant identity; an implementation backed by real device
// credentials can replace AddressResolver without touching the store or the
// stream broker.
type KeyResolver interface {
	Resolve(r *http.Request) string
}

const forwardedForHeader = "X-Forwarded-For"

// AddressResolver derives the partition key from the network address the
// request arrived from, preferring the first forwarded-for entry when a
// proxy is in front. Address equality conflates devices behind a shared
// NAT; that is a known accuracy limitation of this scheme.
type AddressResolver struct{}

// Resolve implements KeyResolver.
func (AddressResolver) Resolve(r *http.Request) string {
	if fwd := r.Header.Get(forwardedForHeader); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
