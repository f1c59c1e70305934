package tenancy

import (
	"net/http/httptest"
	"testing"
)

func TestAddressResolverRemoteAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "1.2.3.4:51234"

	got := AddressResolver{}.Resolve(r)
	if got != "1.2.3.4" {
		t.Fatalf("resolve = %q, want 1.2.3.4", got)
	}
}

func TestAddressResolverForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:80"
	r.Header.Set("X-Forwarded-For", " 5.6.7.8 , 10.0.0.2")

	got := AddressResolver{}.Resolve(r)
	if got != "5.6.7.8" {
		t.Fatalf("resolve = %q, want 5.6.7.8", got)
	}
}

func TestAddressResolverBareAddress(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "9.9.9.9"

	got := AddressResolver{}.Resolve(r)
	if got != "9.9.9.9" {
		t.Fatalf("resolve = %q, want 9.9.9.9", got)
	}
}
