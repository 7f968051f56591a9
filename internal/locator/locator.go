// Package locator ties query name building, SRV resolution and RFC 2782
// selection into the endpoint-location façade. A Locator is built once from
// a validated Config and is stateless per call: each Locate performs one
// blocking SRV lookup and returns an ordered endpoint list.
package locator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/lc/srvlocate/internal/dnsresolver"
	"github.com/lc/srvlocate/internal/log"
	"github.com/lc/srvlocate/internal/srv"
)

var (
	// ErrInvalidConfig is returned by New when the configuration is unusable.
	ErrInvalidConfig = errors.New("invalid locator configuration")
	// ErrEmptyService is returned when the service name is empty.
	ErrEmptyService = errors.New("service cannot be empty")
	// ErrEmptyDomain is returned when the domain name is empty.
	ErrEmptyDomain = errors.New("domain cannot be empty")
)

// Config describes a Locator. It is consumed once by New; the resulting
// Locator cannot be reconfigured, a new Config is needed per variation.
type Config struct {
	// Resolver answers SRV lookups. Required.
	Resolver dnsresolver.Lookuper
	// MaxBackupServers caps the result at MaxBackupServers+1 endpoints.
	// Must be positive.
	MaxBackupServers int
	// IntN supplies uniform random integers in [0, n) for weighted
	// selection. Optional; defaults to math/rand/v2, which is safe for
	// concurrent use.
	IntN srv.IntN
}

// Locator resolves and orders service endpoints for a domain.
type Locator struct {
	resolver         dnsresolver.Lookuper
	maxBackupServers int
	intn             srv.IntN
}

// New validates cfg and builds a Locator.
func New(cfg Config) (*Locator, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", ErrInvalidConfig)
	}
	if cfg.MaxBackupServers <= 0 {
		return nil, fmt.Errorf("%w: max backup servers must be positive, got %d",
			ErrInvalidConfig, cfg.MaxBackupServers)
	}

	intn := cfg.IntN
	if intn == nil {
		intn = rand.IntN
	}

	return &Locator{
		resolver:         cfg.Resolver,
		maxBackupServers: cfg.MaxBackupServers,
		intn:             intn,
	}, nil
}

// QueryName formats the DNS question name for a service lookup. Site-scoped
// names follow the Active Directory convention of placing the site between
// the protocol label and the _sites suffix:
//
//	_ldap._tcp.corp.example.com
//	_ldap._tcp.berlin._sites.corp.example.com
//
// Service and domain must be non-empty; the check runs before any DNS
// traffic is possible.
func QueryName(service, site, domain string) (string, error) {
	if strings.TrimSpace(service) == "" {
		return "", ErrEmptyService
	}
	if strings.TrimSpace(domain) == "" {
		return "", ErrEmptyDomain
	}
	if site == "" {
		return fmt.Sprintf("_%s._tcp.%s", service, domain), nil
	}
	return fmt.Sprintf("_%s._tcp.%s._sites.%s", service, site, domain), nil
}

// Locate resolves the endpoints for service in domain without site scoping.
func (l *Locator) Locate(ctx context.Context, service, domain string) ([]srv.HostPort, error) {
	return l.LocateSite(ctx, service, "", domain)
}

// LocateSite resolves the endpoints for service in domain, scoped to site
// when site is non-empty, and orders them for failover per RFC 2782. The
// result is capped at maxBackupServers+1 entries.
//
// An unreachable or failing DNS transport is treated like "no endpoints":
// the detail is logged and an empty result returned, leaving retry and
// backoff policy to the connecting caller. Invalid arguments and malformed
// answers surface as errors, since they indicate a defect rather than
// transient unavailability.
func (l *Locator) LocateSite(ctx context.Context, service, site, domain string) ([]srv.HostPort, error) {
	name, err := QueryName(service, site, domain)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log.Debug("locating service", "id", id, "name", name)

	records, err := l.resolver.LookupSRV(ctx, name)
	if err != nil {
		if errors.Is(err, srv.ErrMalformedRecord) {
			return nil, err
		}
		log.Warn("srv lookup failed, treating as no endpoints", "id", id, "name", name, "error", err)
		return nil, nil
	}
	if len(records) == 0 {
		log.Debug("service not provided", "id", id, "name", name)
		return nil, nil
	}

	hosts := srv.Select(records, l.intn)
	if limit := l.maxBackupServers + 1; len(hosts) > limit {
		hosts = hosts[:limit]
	}

	log.Debug("located service", "id", id, "name", name, "endpoints", len(hosts))
	return hosts, nil
}
