// Package labmcp exposes the lab catalog and reaction simulation as MCP
// tools over stdio or streamable HTTP.
package labmcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/smartlab/internal/lab/catalog"
	"github.com/louisbranch/smartlab/internal/lab/imagery"
	"github.com/louisbranch/smartlab/internal/lab/reaction"
	"github.com/louisbranch/smartlab/internal/lab/search"
	"github.com/louisbranch/smartlab/internal/lab/session"
	"github.com/louisbranch/smartlab/internal/platform/httpx"
	"github.com/louisbranch/smartlab/internal/platform/observability"
	"github.com/louisbranch/smartlab/internal/platform/telemetry/metrics"
	"github.com/louisbranch/smartlab/internal/platform/timeouts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "smartlab"
	serverVersion = "0.1.0"

	// TransportStdio serves MCP over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP = "http"

	defaultHTTPAddr = "localhost:8092"
)

// Config defines the MCP server collaborators.
type Config struct {
	Oracle        reaction.Oracle
	OracleTimeout time.Duration
	Catalog       *catalog.Catalog
	Images        *imagery.Builder
	Journal       session.Journal
	Metrics       *metrics.Recorder
}

// Server owns the MCP tool registrations.
type Server struct {
	mcpServer *mcp.Server
	catalog   *catalog.Catalog
	index     *search.Index
	images    *imagery.Builder
	session   session.Config
}

// NewServer registers the lab tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Oracle == nil {
		return nil, errors.New("oracle is required")
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	images := cfg.Images
	if images == nil {
		images = imagery.New("")
	}
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil),
		catalog:   cat,
		index:     search.New(cat),
		images:    images,
		session: session.Config{
			Oracle:        cfg.Oracle,
			OracleTimeout: cfg.OracleTimeout,
			StalePolicy:   session.StaleDiscard,
			Journal:       cfg.Journal,
			Metrics:       cfg.Metrics,
		},
	}
	mcp.AddTool(s.mcpServer, SubstanceSearchTool(), s.substanceSearchHandler())
	mcp.AddTool(s.mcpServer, SubstanceGetTool(), s.substanceGetHandler())
	mcp.AddTool(s.mcpServer, ReactionSimulateTool(), s.reactionSimulateHandler())
	return s, nil
}

// Serve runs the server on transport until ctx ends or the peer leaves.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// HTTPHandler serves the tools over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
	return httpx.Chain(handler,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(log.Default()),
	)
}

// ListenAndServe serves HTTP on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = defaultHTTPAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("mcp http listening addr=%s", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mcp http: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve mcp http: %w", err)
	}
}

// Run builds a server and serves it on the named transport.
func Run(ctx context.Context, transport string, httpAddr string, cfg Config) error {
	server, err := NewServer(cfg)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(transport)) {
	case TransportStdio, "":
		return server.Serve(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return server.ListenAndServe(ctx, httpAddr)
	default:
		return fmt.Errorf("transport %q is not supported", transport)
	}
}
