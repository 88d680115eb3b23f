// Package httpapi is the router's debug and operations surface
// (SPEC_FULL.md §4.L): health checks, Prometheus metrics, and a
// read-only JSON dump of the current RIB. It never mutates router
// state; all writes happen through the reactor's message handlers.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/route-beacon/as-router/internal/reactor"
)

// Server is the router's HTTP surface, built the way the teacher builds
// its own: a single *http.Server behind an explicit Start/Shutdown pair
// rather than a bare ListenAndServe.
type Server struct {
	srv    *http.Server
	r      *reactor.Reactor
	logger *zap.Logger
}

// NewServer builds the HTTP surface bound to addr. r supplies the RIB
// dump; it is read-only from this package's perspective.
func NewServer(addr string, r *reactor.Reactor, logger *zap.Logger) *Server {
	s := &Server{r: r, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)
	mux.HandleFunc("/rib", s.handleRIB)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving in a background goroutine. It returns once the
// listener is bound, so callers know the address is live before moving
// on to the next startup step.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight
// requests to drain, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the reactor exists; the router has no
// external dependency to wait on (spec.md Non-goals: no persistence, no
// service discovery), so readiness here is just process liveness.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "not_ready"
	httpStatus := http.StatusServiceUnavailable
	if s.r != nil {
		status = "ready"
		httpStatus = http.StatusOK
	}
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// ribRow is the JSON shape of one dumped RIB entry, kept separate from
// wire.TableEntry since this is an operator-facing debug view, not a
// protocol message.
type ribRow struct {
	Network    string `json:"network"`
	Length     int    `json:"length"`
	NextHop    string `json:"next_hop"`
	LocalPref  int    `json:"local_pref"`
	ASPath     []int  `json:"as_path"`
	SelfOrigin bool   `json:"self_origin"`
	Origin     string `json:"origin"`
}

func (s *Server) handleRIB(w http.ResponseWriter, r *http.Request) {
	entries := s.r.Table().Entries()
	rows := make([]ribRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ribRow{
			Network:    e.Prefix.Network.String(),
			Length:     e.Prefix.Length,
			NextHop:    e.NextHop.String(),
			LocalPref:  e.LocalPref,
			ASPath:     e.CloneASPath(),
			SelfOrigin: e.SelfOrigin,
			Origin:     string(e.Origin),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}
