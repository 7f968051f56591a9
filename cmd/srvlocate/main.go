// Command `srvlocate` is the end-user CLI for SRV-based service location.
//
// srvlocate discovers the endpoints of a network service (LDAP, Kerberos,
// ...) in a domain by querying DNS SRV records and orders them for failover
// per RFC 2782. Lookups run directly against the configured DNS servers, or
// through a running srvlocated daemon with --remote.
//
// Usage:
//
//	srvlocate locate <service>... <domain>   - Locate service endpoints
//	srvlocate status                         - Show daemon status
//	srvlocate version                        - Show version information
//
// Examples:
//
//	srvlocate locate ldap corp.example.com
//	srvlocate locate ldap kerberos corp.example.com
//	srvlocate locate ldap corp.example.com --site berlin
//	srvlocate locate ldap corp.example.com --remote
//
// The last argument is always the domain; every preceding argument is a
// service name. Multiple services are resolved concurrently.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lc/srvlocate/internal/buildinfo"
	"github.com/lc/srvlocate/internal/config"
	"github.com/lc/srvlocate/internal/dnsresolver"
	"github.com/lc/srvlocate/internal/locator"
	"github.com/lc/srvlocate/pkg/client"
)

// endpointRow is one table line: a located endpoint with its failover rank.
type endpointRow struct {
	service string
	order   int
	host    string
	port    int
}

func main() {
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	root := &cobra.Command{
		Use:   "srvlocate",
		Short: "SRV service endpoint locator",
		Long: `srvlocate discovers network service endpoints (LDAP, Kerberos, ...) for a
domain via DNS SRV records and orders them for failover per RFC 2782.`,
	}

	// ---- version command ----
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Show version information for the srvlocate CLI and daemon.`,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}

	// ---- locate command ----
	var (
		site   string
		remote bool
	)
	locateCmd := &cobra.Command{
		Use:   "locate <service>... <domain>",
		Short: "Locate service endpoints in a domain",
		Long: `Locate the endpoints of one or more services in a domain and print them
in failover order (most preferred first). The last argument is the domain;
every preceding argument is a service name.

An empty result means the service is not provided there, or DNS could not
be reached; srvlocate does not retry on its own.

Examples:
  srvlocate locate ldap corp.example.com
  srvlocate locate ldap kerberos corp.example.com
  srvlocate locate ldap corp.example.com --site berlin`,
		Example: "srvlocate locate ldap corp.example.com --site berlin",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			services := args[:len(args)-1]
			domain := args[len(args)-1]

			if !cmd.Flags().Changed("site") {
				site = cfg.Locator.Site
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			locate, err := locateFunc(cfg, remote)
			if err != nil {
				return err
			}

			// One lookup per service, concurrently; results keep CLI order.
			rows := make([][]endpointRow, len(services))
			g, gctx := errgroup.WithContext(ctx)
			for i, service := range services {
				g.Go(func() error {
					eps, err := locate(gctx, service, site, domain)
					if err != nil {
						return fmt.Errorf("%s: %w", service, err)
					}
					rows[i] = eps
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			printEndpoints(services, rows)
			return nil
		},
	}
	locateCmd.Flags().StringVar(&site, "site", "", "scope the lookup to an Active Directory site")
	locateCmd.Flags().BoolVar(&remote, "remote", false, "route the lookup through the srvlocated daemon")

	// ---- status command ----
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show srvlocated daemon status",
		Long:  `Show the daemon's version, uptime and SRV lookup counters.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			status, err := client.New(cfg.Socket.Path).Status(ctx)
			if err != nil {
				return err
			}

			color.New(color.Bold).Println("SRVLOCATED STATUS:")
			fmt.Printf("version:  %s (%s)\n", status.Version, status.Commit)
			fmt.Printf("uptime:   %s\n", status.Uptime.Round(time.Second))
			fmt.Printf("lookups:  %d (misses: %d, failures: %d)\n",
				status.Lookups.Queries, status.Lookups.Misses, status.Lookups.Failures)
			return nil
		},
	}

	root.AddCommand(locateCmd, statusCmd, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// locateFn resolves one service and returns its endpoints in failover order.
type locateFn func(ctx context.Context, service, site, domain string) ([]endpointRow, error)

// locateFunc picks the lookup path: the local resolver stack, or the daemon.
func locateFunc(cfg *config.Config, remote bool) (locateFn, error) {
	if remote {
		cli := client.New(cfg.Socket.Path)
		return func(ctx context.Context, service, site, domain string) ([]endpointRow, error) {
			eps, err := cli.Locate(ctx, service, site, domain)
			if err != nil {
				return nil, err
			}
			rows := make([]endpointRow, 0, len(eps))
			for i, ep := range eps {
				rows = append(rows, endpointRow{service: service, order: i + 1, host: ep.Host, port: ep.Port})
			}
			return rows, nil
		}, nil
	}

	lookup := dnsresolver.Chain{}
	if len(cfg.DNS.Static) > 0 {
		lookup = append(lookup, dnsresolver.NewStatic(cfg.DNS.Static))
	}
	lookup = append(lookup, dnsresolver.New(cfg.DNS.Timeout,
		dnsresolver.WithResolvers(cfg.DNS.Resolvers),
		dnsresolver.WithRetries(cfg.DNS.Retries),
	))

	loc, err := locator.New(locator.Config{
		Resolver:         lookup,
		MaxBackupServers: cfg.Locator.MaxBackupServers,
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, service, site, domain string) ([]endpointRow, error) {
		hosts, err := loc.LocateSite(ctx, service, site, domain)
		if err != nil {
			return nil, err
		}
		rows := make([]endpointRow, 0, len(hosts))
		for i, hp := range hosts {
			rows = append(rows, endpointRow{service: service, order: i + 1, host: hp.Host, port: hp.Port})
		}
		return rows, nil
	}, nil
}

// printEndpoints renders one table for all services, preserving CLI order.
func printEndpoints(services []string, rows [][]endpointRow) {
	total := 0
	for _, r := range rows {
		total += len(r)
	}
	if total == 0 {
		color.Yellow("No endpoints found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Service", "Order", "Host", "Port"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
	)
	table.SetBorder(false)
	table.SetColumnColor(
		tablewriter.Colors{tablewriter.FgGreenColor},
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
		tablewriter.Colors{tablewriter.FgYellowColor},
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
	)

	for i, service := range services {
		if len(rows[i]) == 0 {
			color.Yellow("No endpoints for %s.", service)
			continue
		}
		for _, row := range rows[i] {
			table.Append([]string{row.service, strconv.Itoa(row.order), row.host, strconv.Itoa(row.port)})
		}
	}

	color.New(color.Bold).Println("ENDPOINTS (failover order):")
	table.Render()
}
