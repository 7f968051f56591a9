package config_test

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/srvlocate/internal/config"
)

type ConfigTestSuite struct {
	suite.Suite
	fs       mockFS
	provider config.Provider
}

type mockFS struct {
	files map[string]string
}

func (m mockFS) Stat(path string) (os.FileInfo, error) {
	if _, ok := m.files[path]; !ok {
		return nil, os.ErrNotExist
	}
	return nil, nil
}

func (m mockFS) MkdirAll(_ string, _ os.FileMode) error {
	return nil
}

func (m mockFS) Open(path string) (*os.File, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	tmp, err := os.CreateTemp("", "mock-*") // caller cleans up in t.Cleanup
	if err != nil {
		return nil, err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}
	return tmp, nil
}

func (m mockFS) WriteFile(path string, content []byte, _ os.FileMode) error {
	m.files[path] = string(content)
	return nil
}

func (s *ConfigTestSuite) SetupTest() {
	s.fs = mockFS{
		files: make(map[string]string),
	}
	s.provider = config.NewWithPath(s.fs, "test/config.yaml")
}

func (s *ConfigTestSuite) TestLoadDefaultWhenNoFile() {
	// When loading configuration with no file present
	cfg, err := s.provider.Load()

	// Then default configuration should be returned
	s.Require().NoError(err)
	s.Equal(config.DefaultSocketPath, cfg.Socket.Path)
	s.Equal(config.DefaultDNSTimeout, cfg.DNS.Timeout)
	s.Equal(uint(config.DefaultDNSRetries), cfg.DNS.Retries)
	s.Equal(config.DefaultMaxBackupServers, cfg.Locator.MaxBackupServers)
	s.Empty(cfg.Locator.Site)
}

func (s *ConfigTestSuite) TestLoadValidConfig() {
	// Given a valid config file
	s.fs.files["test/config.yaml"] = `
socket:
  path: /custom/socket
dns:
  resolvers:
    - 10.0.0.53:53
    - 10.0.1.53:53
  timeout: 10s
  retries: 3
  static:
    _ldap._tcp.corp.example.com:
      - "0 100 389 dc1.corp.example.com."
locator:
  site: berlin
  max_backup_servers: 4
`
	// When loading configuration
	cfg, err := s.provider.Load()

	// Then custom values should be loaded
	s.Require().NoError(err)
	s.Equal("/custom/socket", cfg.Socket.Path)
	s.Equal([]string{"10.0.0.53:53", "10.0.1.53:53"}, cfg.DNS.Resolvers)
	s.Equal(10*time.Second, cfg.DNS.Timeout)
	s.Equal(uint(3), cfg.DNS.Retries)
	s.Equal([]string{"0 100 389 dc1.corp.example.com."}, cfg.DNS.Static["_ldap._tcp.corp.example.com"])
	s.Equal("berlin", cfg.Locator.Site)
	s.Equal(4, cfg.Locator.MaxBackupServers)
}

func (s *ConfigTestSuite) TestLoadRejectsInvalidConfig() {
	s.fs.files["test/config.yaml"] = `
socket:
  path: /custom/socket
dns:
  timeout: 5s
locator:
  max_backup_servers: 0
`
	_, err := s.provider.Load()

	s.Error(err)
	s.ErrorIs(err, config.ErrInvalidConfig)
}

func validConfig() config.Config {
	return config.Config{
		Socket: config.SocketConfig{Path: "/tmp/socket"},
		DNS: config.DNSConfig{
			Timeout: 5 * time.Second,
		},
		Locator: config.LocatorConfig{MaxBackupServers: 1},
	}
}

func (s *ConfigTestSuite) TestValidation() {
	testCases := []struct {
		name        string
		mutate      func(*config.Config)
		expectedErr string
	}{
		{
			name:   "valid minimal config",
			mutate: func(*config.Config) {},
		},
		{
			name: "valid with resolvers and static entries",
			mutate: func(c *config.Config) {
				c.DNS.Resolvers = []string{"10.0.0.53:53"}
				c.DNS.Static = map[string][]string{
					"_ldap._tcp.corp.example.com": {"0 100 389 dc1.corp.example.com."},
				}
			},
		},
		{
			name: "empty socket path",
			mutate: func(c *config.Config) {
				c.Socket.Path = ""
			},
			expectedErr: "socket path cannot be empty",
		},
		{
			name: "socket path only whitespace",
			mutate: func(c *config.Config) {
				c.Socket.Path = "   \t\n"
			},
			expectedErr: "socket path cannot be empty",
		},
		{
			name: "dns timeout too short",
			mutate: func(c *config.Config) {
				c.DNS.Timeout = 500 * time.Millisecond
			},
			expectedErr: "DNS timeout must be at least 1 second",
		},
		{
			name: "dns timeout zero",
			mutate: func(c *config.Config) {
				c.DNS.Timeout = 0
			},
			expectedErr: "DNS timeout must be at least 1 second",
		},
		{
			name: "resolver without port",
			mutate: func(c *config.Config) {
				c.DNS.Resolvers = []string{"10.0.0.53"}
			},
			expectedErr: `resolver "10.0.0.53" must be in host:port form`,
		},
		{
			name: "static entry with empty name",
			mutate: func(c *config.Config) {
				c.DNS.Static = map[string][]string{"  ": {"0 0 389 dc1.corp.example.com."}}
			},
			expectedErr: "static entry name cannot be empty",
		},
		{
			name: "static entry with malformed record",
			mutate: func(c *config.Config) {
				c.DNS.Static = map[string][]string{
					"_ldap._tcp.corp.example.com": {"0 0 not-a-port dc1.corp.example.com."},
				}
			},
			expectedErr: "static entry for",
		},
		{
			name: "max backup servers zero",
			mutate: func(c *config.Config) {
				c.Locator.MaxBackupServers = 0
			},
			expectedErr: "max backup servers must be a positive integer",
		},
		{
			name: "max backup servers negative",
			mutate: func(c *config.Config) {
				c.Locator.MaxBackupServers = -3
			},
			expectedErr: "max backup servers must be a positive integer",
		},
		{
			name: "max backup servers exactly one",
			mutate: func(c *config.Config) {
				c.Locator.MaxBackupServers = 1
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()

			if tc.expectedErr == "" {
				s.NoError(err)
				return
			}
			s.Error(err)
			s.ErrorContains(err, tc.expectedErr)
		})
	}
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
