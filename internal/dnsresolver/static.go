package dnsresolver

import (
	"context"
	"errors"
	"strings"

	"github.com/miekg/dns"

	"github.com/lc/srvlocate/internal/srv"
)

var (
	_ Lookuper = (*Static)(nil)
	_ Lookuper = (Chain)(nil)
)

// Static serves SRV record sets from a fixed table instead of the network.
// Entries map a query name to textual records in "priority weight port
// target" form, the shape they take in config. Names not present in the
// table return ErrNoEntry so a Chain can fall through.
type Static struct {
	entries map[string][]string
}

// NewStatic builds a Static resolver. Keys are normalized to fully
// qualified form, so "example.com" and "example.com." address the same entry.
func NewStatic(entries map[string][]string) *Static {
	normalized := make(map[string][]string, len(entries))
	for name, lines := range entries {
		normalized[dns.Fqdn(name)] = lines
	}
	return &Static{entries: normalized}
}

// LookupSRV serves a record set from the table. The sentinel and
// malformed-record rules match the network client: a single "." entry means
// the service is explicitly not provided, and one bad line fails the lookup.
func (s *Static) LookupSRV(_ context.Context, name string) ([]*srv.Record, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	lines, ok := s.entries[dns.Fqdn(name)]
	if !ok {
		return nil, ErrNoEntry
	}

	records := make([]*srv.Record, 0, len(lines))
	for _, line := range lines {
		rec, err := srv.ParseRecord(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return checkSentinel(records)
}

// Chain consults resolvers in order, falling through on ErrNoEntry. It lets
// statically pinned services shadow the network without hiding real
// NXDOMAIN answers. An exhausted chain resolves to "service not provided".
type Chain []Lookuper

// LookupSRV tries each resolver until one claims the name.
func (c Chain) LookupSRV(ctx context.Context, name string) ([]*srv.Record, error) {
	for _, l := range c {
		records, err := l.LookupSRV(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNoEntry) {
				continue
			}
			return nil, err
		}
		return records, nil
	}
	return nil, nil
}
