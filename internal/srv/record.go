package srv

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	// ErrValueOutOfRange is returned when priority, weight or port falls
	// outside the 16-bit range an SRV record allows.
	ErrValueOutOfRange = errors.New("value out of range")
	// ErrEmptyTarget is returned when a record is constructed with an empty target.
	ErrEmptyTarget = errors.New("target cannot be empty")
	// ErrEmptyHost is returned when a HostPort is constructed with an empty host.
	ErrEmptyHost = errors.New("host cannot be empty")
	// ErrMalformedRecord is returned when a textual SRV answer does not parse.
	// One malformed answer fails the whole lookup; a partially interpreted
	// answer set would misrepresent the server set.
	ErrMalformedRecord = errors.New("malformed SRV record")
)

// UnavailableTarget is the RFC 2782 sentinel target. A zone publishing a
// single SRV record with this target declares that the service is
// explicitly not provided at the queried name.
const UnavailableTarget = "."

const maxFieldValue = 0xFFFF

// Record is a single DNS SRV resource record. Records are transient: they
// are produced per lookup and consumed immediately by Select.
type Record struct {
	Priority int
	Weight   int
	Port     int
	Target   string

	// Running cumulative weight within a priority group. Scratch state for
	// Select only, not part of the record's identity.
	sum int
}

// NewRecord validates and builds a Record. Priority, weight and port must be
// within [0, 65535] and target must be non-empty; a violation is a
// construction error, never a recoverable one.
func NewRecord(priority, weight, port int, target string) (*Record, error) {
	if priority < 0 || priority > maxFieldValue {
		return nil, fmt.Errorf("%w: priority %d", ErrValueOutOfRange, priority)
	}
	if weight < 0 || weight > maxFieldValue {
		return nil, fmt.Errorf("%w: weight %d", ErrValueOutOfRange, weight)
	}
	if port < 0 || port > maxFieldValue {
		return nil, fmt.Errorf("%w: port %d", ErrValueOutOfRange, port)
	}
	if target == "" {
		return nil, ErrEmptyTarget
	}
	return &Record{
		Priority: priority,
		Weight:   weight,
		Port:     port,
		Target:   target,
	}, nil
}

// ParseRecord parses the textual SRV answer form "priority weight port target",
// four whitespace-delimited tokens in fixed order. A wrong token count or a
// non-numeric priority/weight/port is ErrMalformedRecord; out-of-range values
// and empty targets surface as the construction errors from NewRecord.
func ParseRecord(s string) (*Record, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: expected 4 tokens, got %d in %q", ErrMalformedRecord, len(fields), s)
	}

	nums := make([]int, 3)
	for i, name := range []string{"priority", "weight", "port"} {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric %s %q", ErrMalformedRecord, name, fields[i])
		}
		nums[i] = n
	}

	return NewRecord(nums[0], nums[1], nums[2], fields[3])
}

// Unavailable reports whether the record is the RFC 2782 "service not
// provided" sentinel.
func (r *Record) Unavailable() bool {
	return r.Target == UnavailableTarget
}

func (r *Record) String() string {
	return fmt.Sprintf("%d %d %d %s", r.Priority, r.Weight, r.Port, r.Target)
}

// HostPort is the locator's output unit: an immutable (host, port) pair with
// value equality. Host carries no trailing dot.
type HostPort struct {
	Host string
	Port int
}

// NewHostPort validates and builds a HostPort.
func NewHostPort(host string, port int) (HostPort, error) {
	if host == "" {
		return HostPort{}, ErrEmptyHost
	}
	if port < 0 || port > maxFieldValue {
		return HostPort{}, fmt.Errorf("%w: port %d", ErrValueOutOfRange, port)
	}
	return HostPort{Host: host, Port: port}, nil
}

func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, strconv.Itoa(hp.Port))
}
