// Package dnsresolve implements the kernel's DNS module: a single
// hostname lookup with address-family filtering.
//
// It wraps net.DefaultResolver; a one-operation forward lookup doesn't
// justify pulling in a full DNS client/message-codec library.
package dnsresolve

import (
	"context"
	"net"

	"github.com/nativebridge/kernel/kernelerr"
)

// Family selects which address family Lookup returns.
type Family int

const (
	// FamilyAny returns whatever address the resolver prefers, matching
	// family=0.
	FamilyAny Family = 0
	FamilyV4  Family = 4
	FamilyV6  Family = 6
)

// Result is a resolved `{address, family}` pair.
type Result struct {
	Address string `json:"address"`
	Family  int    `json:"family"`
}

// Module is the kernel's DNS module.
type Module struct {
	resolver *net.Resolver
}

// New creates a DNS module using net.DefaultResolver.
func New() *Module {
	return &Module{resolver: net.DefaultResolver}
}

// Lookup resolves hostname, filtering by family. It returns the first
// matching address, or a transport error carrying the resolver's
// message.
func (m *Module) Lookup(ctx context.Context, hostname string, family Family) (Result, error) {
	addrs, err := m.resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return Result{}, kernelerr.Transport("ENOTFOUND", err)
	}

	for _, a := range addrs {
		ip4 := a.IP.To4()
		switch family {
		case FamilyV4:
			if ip4 == nil {
				continue
			}
			return Result{Address: ip4.String(), Family: 4}, nil
		case FamilyV6:
			if ip4 != nil {
				continue
			}
			return Result{Address: a.IP.String(), Family: 6}, nil
		default:
			if ip4 != nil {
				return Result{Address: ip4.String(), Family: 4}, nil
			}
			return Result{Address: a.IP.String(), Family: 6}, nil
		}
	}

	return Result{}, kernelerr.NotFound("ENOTFOUND", "dnsresolve: no address of requested family")
}
