package dnsresolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/lc/srvlocate/internal/srv"
)

var (
	// ErrEmptyName is returned when an empty query name is provided.
	ErrEmptyName = errors.New("empty query name")
	// ErrEmptyMsg is returned when the DNS response message is empty.
	ErrEmptyMsg = errors.New("empty message")
	// ErrLookupFailed is returned when the SRV query could not be answered:
	// transport errors, exhausted retries, or a non-success response code
	// other than NXDOMAIN.
	ErrLookupFailed = errors.New("srv lookup failed")
	// ErrNoEntry is returned by table-backed resolvers for names they do not
	// cover, so a Chain can fall through to the network.
	ErrNoEntry = errors.New("no entry for name")
)

var _defaultResolver = "1.1.1.1:53"

var _ Lookuper = (*Client)(nil)

// Lookuper is the resolver seam the locator consumes.
type Lookuper interface {
	// LookupSRV resolves the SRV record set at name. A missing service
	// (NXDOMAIN, an empty answer, or the RFC 2782 unavailable-service
	// sentinel) is a normal outcome and returns (nil, nil), not an error.
	LookupSRV(ctx context.Context, name string) ([]*srv.Record, error)
}

// Exchanger defines the interface for DNS message exchange.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, a string) (r *dns.Msg, rtt time.Duration, err error)
}

// Stats is a snapshot of a Client's lookup counters.
type Stats struct {
	Queries  uint64 `json:"queries"`
	Misses   uint64 `json:"misses"` // lookups that resolved to "service not provided"
	Failures uint64 `json:"failures"`
}

// Client resolves SRV record sets using miekg/dns. Each LookupSRV call
// issues exactly one SRV question; failed exchanges are retried up to
// Retries additional times.
type Client struct {
	Client    Exchanger
	Timeout   time.Duration
	Resolvers []string
	Retries   uint

	queries  atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
}

// Opt is a function option for configuring the Client.
type Opt func(c *Client)

// New creates a new Client with the given timeout and optional configurations.
func New(timeout time.Duration, opts ...Opt) *Client {
	c := &Client{
		Client: &dns.Client{
			Timeout: timeout,
		},
		Timeout: timeout,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// WithResolvers returns an option to set custom DNS resolvers. If not
// provided, the default resolver (1.1.1.1:53) is used. Retries rotate
// through the list so a second attempt hits a different server.
func WithResolvers(resolvers []string) Opt {
	return func(c *Client) {
		c.Resolvers = resolvers
	}
}

// WithTimeout returns an option to set a custom timeout for DNS queries.
// This overrides the timeout provided to New.
func WithTimeout(timeout time.Duration) Opt {
	return func(c *Client) {
		c.Timeout = timeout
	}
}

// WithRetries returns an option to set how many additional attempts are
// made after a failed exchange.
func WithRetries(retries uint) Opt {
	return func(c *Client) {
		c.Retries = retries
	}
}

// Stats returns a snapshot of the client's lookup counters.
func (c *Client) Stats() Stats {
	return Stats{
		Queries:  c.queries.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}

// LookupSRV resolves the SRV record set at name.
//
// NXDOMAIN and empty answers return (nil, nil): a missing service is a
// normal outcome, not a failure. So does an answer consisting of exactly one
// record with the sentinel target ".". Any other response code or transport
// failure wraps ErrLookupFailed. An answer that does not parse cleanly fails
// the whole lookup with srv.ErrMalformedRecord; records are never skipped
// silently.
func (c *Client) LookupSRV(ctx context.Context, name string) ([]*srv.Record, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	c.queries.Inc()

	resp, err := c.exchange(ctx, name)
	if err != nil {
		c.failures.Inc()
		return nil, fmt.Errorf("srv lookup for %q: %w", name, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		// Name not found: the service simply is not published there.
		c.misses.Inc()
		return nil, nil
	default:
		c.failures.Inc()
		return nil, fmt.Errorf("srv lookup for %q: %w: rcode %s",
			name, ErrLookupFailed, dns.RcodeToString[resp.Rcode])
	}

	records, err := parseAnswer(resp)
	if err != nil {
		return nil, fmt.Errorf("srv lookup for %q: %w", name, err)
	}

	records, err = checkSentinel(records)
	if err != nil {
		return nil, fmt.Errorf("srv lookup for %q: %w", name, err)
	}
	if len(records) == 0 {
		c.misses.Inc()
	}
	return records, nil
}

// exchange sends the SRV question, retrying c.Retries additional times.
// Errors from all attempts are aggregated into the returned error.
func (c *Client) exchange(ctx context.Context, name string) (*dns.Msg, error) {
	var errs error
	for attempt := uint(0); attempt <= c.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, multierr.Append(errs, err))
		}

		// Fresh request each attempt: ExchangeContext mutates *dns.Msg
		req := &dns.Msg{}
		req.SetQuestion(dns.Fqdn(name), dns.TypeSRV)

		resp, _, err := c.Client.ExchangeContext(ctx, req, c.resolver(attempt))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if resp == nil {
			errs = multierr.Append(errs, ErrEmptyMsg)
			continue
		}
		return resp, nil
	}

	return nil, fmt.Errorf("%w after %d attempt(s): %v", ErrLookupFailed, c.Retries+1, errs)
}

// resolver returns the upstream address for the given attempt.
func (c *Client) resolver(attempt uint) string {
	if len(c.Resolvers) == 0 {
		return _defaultResolver
	}
	return c.Resolvers[int(attempt)%len(c.Resolvers)]
}

// parseAnswer converts the answer section into records. A non-SRV answer or
// a record that fails construction invalidates the whole batch.
func parseAnswer(resp *dns.Msg) ([]*srv.Record, error) {
	if resp == nil {
		return nil, ErrEmptyMsg
	}

	records := make([]*srv.Record, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		srvRR, ok := rr.(*dns.SRV)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected %s record in SRV answer",
				srv.ErrMalformedRecord, dns.TypeToString[rr.Header().Rrtype])
		}

		rec, err := srv.NewRecord(int(srvRR.Priority), int(srvRR.Weight), int(srvRR.Port), srvRR.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", srv.ErrMalformedRecord, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// checkSentinel applies the RFC 2782 unavailable-service rules: an empty set
// or a single sentinel record collapses to "service not provided"; a
// sentinel hiding among other records indicates a broken zone and fails the
// batch.
func checkSentinel(records []*srv.Record) ([]*srv.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(records) == 1 && records[0].Unavailable() {
		return nil, nil
	}
	for _, rec := range records {
		if rec.Unavailable() {
			return nil, fmt.Errorf("%w: unavailable-service sentinel in a %d-record answer",
				srv.ErrMalformedRecord, len(records))
		}
	}
	return records, nil
}
