// Package dnsresolver issues DNS SRV queries and parses the answers into
// srv.Record sets.
//
// The package implements exactly one query shape: a single SRV question for
// a fully qualified service name. It deliberately is not a general DNS
// client; there is no UDP/TCP fallback logic beyond what miekg/dns provides
// and no record type besides SRV.
//
// # Outcomes
//
// A lookup has three distinct outcomes, and keeping them apart matters to
// callers:
//
//   - records found: the parsed, validated record set is returned.
//   - service not provided: NXDOMAIN, an empty answer, or a single RFC 2782
//     sentinel record (target "."). Returned as (nil, nil) — this is a
//     normal condition, not an error.
//   - failure: transport errors and unexpected response codes wrap
//     ErrLookupFailed; answers that do not parse wrap srv.ErrMalformedRecord.
//     One malformed answer fails the whole lookup, since a partially parsed
//     answer set would misrepresent the server set.
//
// # Resolvers
//
// Client is the network implementation. It takes the list of upstream
// servers, a timeout and a retry count; retries rotate through the server
// list. Static serves record sets from a fixed table (the config file's
// "static" section), parsing the textual "priority weight port target"
// form. Chain composes the two so pinned entries shadow the network:
//
//	lookup := dnsresolver.Chain{
//		dnsresolver.NewStatic(cfg.DNS.Static),
//		dnsresolver.New(cfg.DNS.Timeout, dnsresolver.WithResolvers(cfg.DNS.Resolvers)),
//	}
//	records, err := lookup.LookupSRV(ctx, "_ldap._tcp.corp.example.com")
//
// # Thread safety
//
// All resolvers are safe for concurrent use; the Client keeps its lookup
// counters in go.uber.org/atomic values and has no other mutable state.
package dnsresolver
