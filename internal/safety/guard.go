// Package safety validates that extraction targets are public HTTP(S)
// URLs before any network traffic is sent.
package safety

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/quantmind-br/webextract-go/internal/domain"
)

// DefaultAllowedPrivateCIDRs lists private ranges whose DNS resolutions
// are still accepted (benchmark networks per RFC 2544).
var DefaultAllowedPrivateCIDRs = []string{"198.18.0.0/15"}

// Resolver is the DNS lookup dependency, satisfied by net.Resolver.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard rejects URLs that are not plainly public HTTP(S) targets.
type Guard struct {
	allowed  []netip.Prefix
	resolver Resolver
}

// Option configures a Guard.
type Option func(*Guard)

// WithResolver overrides the DNS resolver, for tests.
func WithResolver(r Resolver) Option {
	return func(g *Guard) {
		g.resolver = r
	}
}

// NewGuard builds a guard with the given allow-list CIDRs. Invalid
// entries are skipped; an empty list falls back to the default.
func NewGuard(cidrs []string, opts ...Option) *Guard {
	if len(cidrs) == 0 {
		cidrs = DefaultAllowedPrivateCIDRs
	}
	g := &Guard{resolver: net.DefaultResolver}
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			continue
		}
		g.allowed = append(g.allowed, prefix.Masked())
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidatePublicURL returns nil when the URL may be fetched. Failures
// wrap ErrDisallowedURL or ErrUnresolvableHost.
func (g *Guard) ValidatePublicURL(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL", domain.ErrDisallowedURL)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: only http/https URLs are supported", domain.ErrDisallowedURL)
	}

	hostname := strings.TrimSpace(parsed.Hostname())
	if hostname == "" {
		return fmt.Errorf("%w: URL host is missing", domain.ErrDisallowedURL)
	}

	lowered := strings.ToLower(hostname)
	if lowered == "localhost" || lowered == "127.0.0.1" || lowered == "::1" {
		return fmt.Errorf("%w: localhost URLs are not allowed", domain.ErrDisallowedURL)
	}

	if ip, err := netip.ParseAddr(hostname); err == nil {
		if isNonPublic(ip) {
			return fmt.Errorf("%w: private or non-public IP addresses are not allowed", domain.ErrDisallowedURL)
		}
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, hostname)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: could not resolve %s", domain.ErrUnresolvableHost, hostname)
	}

	for _, addr := range addrs {
		ip, ok := netip.AddrFromSlice(addr.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if isNonPublic(ip) && !g.isAllowedPrivate(ip) {
			return fmt.Errorf("%w: %s resolves to a private or non-public IP", domain.ErrDisallowedURL, hostname)
		}
	}
	return nil
}

func (g *Guard) isAllowedPrivate(ip netip.Addr) bool {
	for _, prefix := range g.allowed {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

var reservedV4 = netip.MustParsePrefix("240.0.0.0/4")

func isNonPublic(ip netip.Addr) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		(ip.Is4() && reservedV4.Contains(ip))
}
