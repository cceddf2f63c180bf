// Package app wires the lab runtime: the HTTP surface, the gRPC health
// endpoint, the session registry and the simulation journal.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/imagery"
	"github.com/louisbranch/smartlab/internal/lab/journal"
	"github.com/louisbranch/smartlab/internal/lab/oracle"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	"github.com/louisbranch/smartlab/internal/lab/session"
	"github.com/louisbranch/smartlab/internal/platform/sessiontoken"
	"github.com/louisbranch/smartlab/internal/platform/telemetry/metrics"
	"github.com/louisbranch/smartlab/internal/platform/timeouts"
	"github.com/louisbranch/smartlab/internal/services/lab/web"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "smartlab.Lab"

// Config defines startup inputs for the lab server. An empty GRPCAddr
// disables the health endpoint and an empty JournalPath disables the journal.
type Config struct {
	HTTPAddr      string
	GRPCAddr      string
	Oracle        oracle.Config
	OracleTimeout time.Duration
	StalePolicy   session.StalePolicy
	JournalPath   string
	SessionKey    string
	SessionTTL    time.Duration
	MaxSessions   int
	ImageBaseURL  string
	SecureCookies bool

	// ReactionOracle replaces the configured provider when set.
	ReactionOracle reaction.Oracle
}

// Server hosts the lab HTTP and gRPC listeners.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	registry     *session.Registry
	journal      *journal.Store
}

// New validates cfg, opens the journal and binds every listener.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}

	recorder := metrics.NewRecorder()
	labOracle := cfg.ReactionOracle
	if labOracle == nil {
		oracleCfg := cfg.Oracle
		oracleCfg.Metrics = recorder
		built, err := oracle.New(oracleCfg)
		if err != nil {
			return nil, fmt.Errorf("build oracle: %w", err)
		}
		labOracle = built
	}

	s := &Server{}
	var sessionJournal session.Journal
	var journalReader web.JournalReader
	if path := strings.TrimSpace(cfg.JournalPath); path != "" {
		store, err := journal.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		s.journal = store
		sessionJournal = store
		journalReader = store
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	registry, err := session.NewRegistry(session.Config{
		Oracle:        labOracle,
		OracleTimeout: cfg.OracleTimeout,
		StalePolicy:   cfg.StalePolicy,
		Journal:       sessionJournal,
		Metrics:       recorder,
	}, ttl, session.WithMaxSessions(cfg.MaxSessions))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.registry = registry

	signer, err := sessiontoken.NewSigner(cfg.SessionKey, ttl, nil)
	if err != nil {
		s.Close()
		return nil, err
	}
	handler, err := web.NewHandler(web.Config{
		Registry:      registry,
		Catalog:       catalog.Default(),
		Signer:        signer,
		Images:        imagery.New(cfg.ImageBaseURL),
		Journal:       journalReader,
		Metrics:       recorder.Handler(),
		SecureCookies: cfg.SecureCookies,
		Logger:        log.Default(),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("compose lab handler: %w", err)
	}

	s.httpListener, err = net.Listen("tcp", httpAddr)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	if grpcAddr := strings.TrimSpace(cfg.GRPCAddr); grpcAddr != "" {
		s.grpcListener, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		s.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		s.health = health.NewServer()
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
		s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return s, nil
}

// Run creates and serves a lab server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// HTTPAddr returns the bound HTTP address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Serve runs every listener and the session sweeper until ctx ends or a
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.registry.Run(ctx)

	serveErr := make(chan error, 2)
	log.Printf("lab http listening addr=%s", s.HTTPAddr())
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()
	if s.grpcServer != nil {
		log.Printf("lab grpc health listening addr=%s", s.GRPCAddr())
		go func() {
			err := s.grpcServer.Serve(s.grpcListener)
			if errors.Is(err, grpc.ErrServerStopped) {
				err = nil
			}
			serveErr <- err
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	if s.health != nil {
		s.health.Shutdown()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("shutdown http: %w", err)
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	return runErr
}

// Close releases listeners and the journal.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Printf("close journal: %v", err)
		}
	}
}
