// Package api exposes a tiny JSON‑over‑HTTP API for the srvlocated daemon.
// It listens on a Unix domain socket (path comes from config) and delegates
// all business logic to internal/locator.Locator.  No third‑party HTTP
// framework is used—just net/http + encoding/json—keeping the binary small
// and dependency‑free, which matches Uber’s "start minimal" guidance.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lc/srvlocate/internal/buildinfo"
	"github.com/lc/srvlocate/internal/dnsresolver"
	"github.com/lc/srvlocate/internal/locator"
	"github.com/lc/srvlocate/internal/log"
	"github.com/lc/srvlocate/internal/socket"
	"github.com/lc/srvlocate/internal/srv"
)

// LocateRequest asks for the failover-ordered endpoints of a service.
type LocateRequest struct {
	Service string `json:"service"`
	Site    string `json:"site,omitempty"` // empty means no site scoping
	Domain  string `json:"domain"`
}

// Endpoint is one located (host, port) pair.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LocateResponse carries the located endpoints in failover order.
// An empty list means the service is not provided or not reachable.
type LocateResponse struct {
	Endpoints []Endpoint `json:"endpoints"`
}

// StatusResponse represents the server status response.
type StatusResponse struct {
	Lookups dnsresolver.Stats `json:"lookups"`
	Uptime  time.Duration     `json:"uptime"`
	Version string            `json:"version"`
	Commit  string            `json:"commit"`
}

// StatsProvider reports resolver counters for the status endpoint.
type StatsProvider interface {
	Stats() dnsresolver.Stats
}

// -------- server -----------------------------------------------------

// Server handles HTTP API requests over a Unix domain socket.
type Server struct {
	loc   *locator.Locator
	stats StatsProvider
	start time.Time
	mux   *http.ServeMux
	srv   *http.Server
}

// New creates a new API server around the given locator. stats may be nil
// when the underlying resolver keeps no counters (e.g. a static-only setup).
func New(loc *locator.Locator, stats StatsProvider) *Server {
	s := &Server{
		loc:   loc,
		stats: stats,
		start: time.Now(),
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("/v1/locate", s.handleLocate)
	s.mux.HandleFunc("/v1/status", s.handleStatus)

	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts the Unix‑socket HTTP server.
func (s *Server) ListenAndServe(path string) error {
	ln, err := socket.Listen(path)
	if err != nil {
		return err
	}
	return s.srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// handleLocate resolves and orders the endpoints for a service.
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req LocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	log.Debug("api: locate", "id", id, "service", req.Service, "site", req.Site, "domain", req.Domain)

	hosts, err := s.loc.LocateSite(r.Context(), req.Service, req.Site, req.Domain)
	if err != nil {
		// Invalid arguments and malformed zone data are the caller's (or the
		// zone owner's) defect; transient unavailability never lands here.
		status := http.StatusBadGateway
		if errors.Is(err, locator.ErrEmptyService) || errors.Is(err, locator.ErrEmptyDomain) {
			status = http.StatusBadRequest
		}
		log.Warn("api: locate failed", "id", id, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	resp := LocateResponse{Endpoints: toEndpoints(hosts)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, fmt.Sprintf("Error encoding response: %v", err), http.StatusInternalServerError)
		return
	}
}

// handleStatus returns the server status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := StatusResponse{
		Uptime:  time.Since(s.start),
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
	}
	if s.stats != nil {
		resp.Lookups = s.stats.Stats()
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, fmt.Sprintf("Error encoding response: %v", err), http.StatusInternalServerError)
		return
	}
}

func toEndpoints(hosts []srv.HostPort) []Endpoint {
	eps := make([]Endpoint, 0, len(hosts))
	for _, hp := range hosts {
		eps = append(eps, Endpoint{Host: hp.Host, Port: hp.Port})
	}
	return eps
}
