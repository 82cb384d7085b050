package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultFallback lists public resolvers raced when the system resolver fails.
var DefaultFallback = []string{
	"1.1.1.1",
	"1.0.0.1",
	"8.8.8.8",
	"8.8.4.4",
	"9.9.9.9",
	"[2606:4700:4700::1111]",
	"[2001:4860:4860::8888]",
}

var errNoAddresses = errors.New("no IP addresses found")

// Resolver turns a host into a single dialable IP, preferring IPv4.
type Resolver struct {
	Fallback      []string
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration
}

// NewResolver returns a Resolver with the default fallback servers.
func NewResolver() *Resolver {
	return &Resolver{
		Fallback:      DefaultFallback,
		LocalTimeout:  time.Second,
		RemoteTimeout: 2 * time.Second,
	}
}

// Lookup resolves host with the system resolver and, when that fails,
// races the fallback servers and returns the first answer.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	localCtx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ip, err := lookup(localCtx, &net.Resolver{}, host)
	cancel()
	if err == nil {
		return ip, nil
	}
	if len(r.Fallback) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}

	return r.race(ctx, host)
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.Fallback))
	for _, server := range r.Fallback {
		go func(server string) {
			ip, err := lookup(ctx, viaServer(server), host)
			results <- result{ip: ip, err: err}
		}(server)
	}

	for range r.Fallback {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race: %w", host, ctx.Err())
		}
	}

	return "", fmt.Errorf("resolve %s: all %d public DNS servers failed", host, len(r.Fallback))
}

// viaServer builds a resolver pinned to one DNS server on port 53.
func viaServer(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}

func lookup(ctx context.Context, r *net.Resolver, host string) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errNoAddresses
	}

	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

// DialContext resolves the host part of addr through the Resolver and
// dials the result. It has the shape expected by websocket.Dialer.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}
