package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lc/srvlocate/internal/config"
	"github.com/lc/srvlocate/internal/dnsresolver"
	"github.com/lc/srvlocate/internal/locator"
	"github.com/lc/srvlocate/internal/log"
	"github.com/lc/srvlocate/pkg/api"
)

func main() {
	// load config
	cfg, err := config.New().Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// build deps
	netClient := dnsresolver.New(cfg.DNS.Timeout,
		dnsresolver.WithResolvers(cfg.DNS.Resolvers),
		dnsresolver.WithRetries(cfg.DNS.Retries),
	)

	lookup := dnsresolver.Chain{}
	if len(cfg.DNS.Static) > 0 {
		lookup = append(lookup, dnsresolver.NewStatic(cfg.DNS.Static))
	}
	lookup = append(lookup, netClient)

	loc, err := locator.New(locator.Config{
		Resolver:         lookup,
		MaxBackupServers: cfg.Locator.MaxBackupServers,
	})
	if err != nil {
		log.Fatalf("locator error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the api over unix socket
	apiSrv := api.New(loc, netClient)
	sockPath := cfg.Socket.Path

	go func() {
		log.Info("srvlocated: listening", "socket", sockPath)
		if err := apiSrv.ListenAndServe(sockPath); err != nil {
			log.Fatalf("api listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	<-sig
	log.Info("shutting down…")

	shutdownCtx, done := context.WithTimeout(ctx, 5*time.Second)
	defer done()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("api shutdown error: %v", err)
	}
}
