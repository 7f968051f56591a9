package locator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lc/srvlocate/internal/dnsresolver"
	"github.com/lc/srvlocate/internal/srv"
)

// lookupFunc adapts a function to the dnsresolver.Lookuper interface.
type lookupFunc func(ctx context.Context, name string) ([]*srv.Record, error)

func (f lookupFunc) LookupSRV(ctx context.Context, name string) ([]*srv.Record, error) {
	return f(ctx, name)
}

type LocatorTestSuite struct {
	suite.Suite
}

func (s *LocatorTestSuite) record(priority, weight, port int, target string) *srv.Record {
	rec, err := srv.NewRecord(priority, weight, port, target)
	s.Require().NoError(err)
	return rec
}

func (s *LocatorTestSuite) TestQueryName() {
	testCases := []struct {
		name        string
		service     string
		site        string
		domain      string
		expected    string
		expectedErr error
	}{
		{
			name:     "without site",
			service:  "ldap",
			domain:   "corp.example.com",
			expected: "_ldap._tcp.corp.example.com",
		},
		{
			name:     "with site",
			service:  "ldap",
			site:     "berlin",
			domain:   "corp.example.com",
			expected: "_ldap._tcp.berlin._sites.corp.example.com",
		},
		{
			name:     "kerberos",
			service:  "kerberos",
			domain:   "corp.example.com",
			expected: "_kerberos._tcp.corp.example.com",
		},
		{
			name:        "empty service",
			service:     "",
			domain:      "corp.example.com",
			expectedErr: ErrEmptyService,
		},
		{
			name:        "blank service",
			service:     "  ",
			domain:      "corp.example.com",
			expectedErr: ErrEmptyService,
		},
		{
			name:        "empty domain",
			service:     "ldap",
			domain:      "",
			expectedErr: ErrEmptyDomain,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			name, err := QueryName(tc.service, tc.site, tc.domain)

			if tc.expectedErr != nil {
				s.Error(err)
				s.ErrorIs(err, tc.expectedErr)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.expected, name)
		})
	}
}

func (s *LocatorTestSuite) TestNew() {
	resolver := dnsresolver.NewStatic(nil)

	testCases := []struct {
		name        string
		cfg         Config
		expectedErr error
	}{
		{
			name: "valid",
			cfg:  Config{Resolver: resolver, MaxBackupServers: 1},
		},
		{
			name:        "missing resolver",
			cfg:         Config{MaxBackupServers: 1},
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "zero max backup servers",
			cfg:         Config{Resolver: resolver},
			expectedErr: ErrInvalidConfig,
		},
		{
			name:        "negative max backup servers",
			cfg:         Config{Resolver: resolver, MaxBackupServers: -2},
			expectedErr: ErrInvalidConfig,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			loc, err := New(tc.cfg)

			if tc.expectedErr != nil {
				s.Error(err)
				s.ErrorIs(err, tc.expectedErr)
				s.Nil(loc)
				return
			}

			s.Require().NoError(err)
			s.NotNil(loc)
		})
	}
}

func (s *LocatorTestSuite) TestLocateValidatesBeforeLookup() {
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		s.Fail("no DNS query may be issued for invalid arguments")
		return nil, nil
	})
	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1})
	s.Require().NoError(err)

	_, err = loc.Locate(context.Background(), "", "corp.example.com")
	s.ErrorIs(err, ErrEmptyService)

	_, err = loc.Locate(context.Background(), "ldap", "")
	s.ErrorIs(err, ErrEmptyDomain)
}

func (s *LocatorTestSuite) TestLocateOrdersAndTruncates() {
	recs := []*srv.Record{
		s.record(0, 10, 389, "dc1.corp.example.com."),
		s.record(0, 0, 389, "dc2.corp.example.com."),
		s.record(1, 0, 389, "dc3.corp.example.com."),
	}
	resolver := lookupFunc(func(_ context.Context, name string) ([]*srv.Record, error) {
		s.Equal("_ldap._tcp.corp.example.com", name)
		return recs, nil
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1})
	s.Require().NoError(err)

	for run := 0; run < 100; run++ {
		hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")

		s.Require().NoError(err)
		// 3 records, capped at maxBackupServers+1 = 2; the priority-1 record
		// never displaces a priority-0 one.
		s.Require().Len(hosts, 2)
		s.Contains([]string{"dc1.corp.example.com", "dc2.corp.example.com"}, hosts[0].Host)
		s.Contains([]string{"dc1.corp.example.com", "dc2.corp.example.com"}, hosts[1].Host)
		s.NotEqual(hosts[0], hosts[1])
	}
}

func (s *LocatorTestSuite) TestLocateResultShorterThanCap() {
	recs := []*srv.Record{s.record(0, 0, 389, "dc1.corp.example.com.")}
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		return recs, nil
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 5})
	s.Require().NoError(err)

	hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")

	s.Require().NoError(err)
	s.Equal([]srv.HostPort{{Host: "dc1.corp.example.com", Port: 389}}, hosts)
}

func (s *LocatorTestSuite) TestLocateSiteScopedName() {
	var seen string
	resolver := lookupFunc(func(_ context.Context, name string) ([]*srv.Record, error) {
		seen = name
		return nil, nil
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1})
	s.Require().NoError(err)

	hosts, err := loc.LocateSite(context.Background(), "ldap", "berlin", "corp.example.com")

	s.NoError(err)
	s.Empty(hosts)
	s.Equal("_ldap._tcp.berlin._sites.corp.example.com", seen)
}

func (s *LocatorTestSuite) TestLookupFailureMeansNoEndpoints() {
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		return nil, fmt.Errorf("%w: upstream unreachable", dnsresolver.ErrLookupFailed)
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1})
	s.Require().NoError(err)

	hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")

	s.NoError(err)
	s.Empty(hosts)
}

func (s *LocatorTestSuite) TestMalformedRecordSurfaces() {
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		return nil, fmt.Errorf("%w: non-numeric port", srv.ErrMalformedRecord)
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1})
	s.Require().NoError(err)

	_, err = loc.Locate(context.Background(), "ldap", "corp.example.com")

	s.ErrorIs(err, srv.ErrMalformedRecord)
}

func (s *LocatorTestSuite) TestServiceNotProvided() {
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		return nil, nil
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1})
	s.Require().NoError(err)

	hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")

	s.NoError(err)
	s.Empty(hosts)
}

func (s *LocatorTestSuite) TestDeterministicWithScriptedRand() {
	recs := []*srv.Record{
		s.record(0, 10, 389, "heavy.corp.example.com."),
		s.record(0, 0, 389, "light.corp.example.com."),
	}
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		return recs, nil
	})

	// Pin the draw to the top of the [0, total] range so the weighted
	// record is picked first despite the zero-weight sort preference.
	loc, err := New(Config{
		Resolver:         resolver,
		MaxBackupServers: 1,
		IntN:             func(n int) int { return n - 1 },
	})
	s.Require().NoError(err)

	hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")

	s.Require().NoError(err)
	s.Equal([]srv.HostPort{
		{Host: "heavy.corp.example.com", Port: 389},
		{Host: "light.corp.example.com", Port: 389},
	}, hosts)
}

func (s *LocatorTestSuite) TestDefaultRandIsUsable() {
	recs := []*srv.Record{
		s.record(0, 1, 389, "dc1.corp.example.com."),
		s.record(0, 1, 389, "dc2.corp.example.com."),
	}
	resolver := lookupFunc(func(context.Context, string) ([]*srv.Record, error) {
		return recs, nil
	})

	loc, err := New(Config{Resolver: resolver, MaxBackupServers: 1, IntN: rand.IntN})
	s.Require().NoError(err)

	hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")
	s.Require().NoError(err)
	s.Len(hosts, 2)
}

func (s *LocatorTestSuite) TestErrorsAreNotErrNoEntry() {
	// A chain that exhausts without an answer must look like "service not
	// provided" end to end.
	loc, err := New(Config{
		Resolver:         dnsresolver.Chain{dnsresolver.NewStatic(nil)},
		MaxBackupServers: 1,
	})
	s.Require().NoError(err)

	hosts, err := loc.Locate(context.Background(), "ldap", "corp.example.com")
	s.NoError(err)
	s.Empty(hosts)
	s.False(errors.Is(err, dnsresolver.ErrNoEntry))
}

func TestLocatorSuite(t *testing.T) {
	suite.Run(t, new(LocatorTestSuite))
}
