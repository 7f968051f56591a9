// Package config provides configuration management for srvlocate.
//
// The package uses a Provider interface to abstract configuration loading, with the
// primary implementation being filesystem-based configuration via YAML files.
//
// # Configuration Structure
//
// Configuration is structured as follows:
//
//	socket:
//	  path: /var/run/srvlocated.socket  # Unix domain socket path
//	dns:
//	  resolvers:                        # Upstream DNS servers (host:port)
//	    - 10.0.0.53:53
//	  timeout: 5s                       # Timeout for a single SRV lookup
//	  retries: 1                        # Additional attempts after a failed exchange
//	  static:                           # Pinned SRV answers, shadow the network
//	    _ldap._tcp.corp.example.com:
//	      - "0 100 389 dc1.corp.example.com."
//	locator:
//	  site: berlin                      # Optional AD site scoping
//	  max_backup_servers: 1             # Result cap is this value + 1
//
// # Basic Usage
//
// Load configuration using the default path (~/.srvlocate/config.yaml):
//
//	cfg, err := config.New().Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration Validation
//
// The package performs validation of loaded configuration:
//   - Socket path must not be empty
//   - DNS timeout must be at least 1 second
//   - Resolver addresses must be in host:port form
//   - Static entries must parse as "priority weight port target" records
//   - max_backup_servers must be a positive integer
//
// The max_backup_servers check runs here, at configuration time; locate
// calls never re-validate it.
//
// # Default Configuration
//
// If no configuration file exists, the following defaults are used:
//   - Socket Path: /var/run/srvlocated.socket
//   - DNS Timeout: 5 seconds
//   - DNS Retries: 1
//   - Max Backup Servers: 1
//
// # Thread Safety
//
// Configuration loading is thread-safe. However, once loaded, the Config
// struct should be treated as immutable. If configuration changes are needed,
// a new Config should be loaded.
package config
