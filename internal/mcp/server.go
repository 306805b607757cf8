// Package mcp exposes the trial query service to MCP clients over stdio or
// streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/trialq/trialq/internal/service"
)

// ServerName is the name advertised during the MCP handshake.
const ServerName = "trialq"

const instructions = `Answers questions about clinical trial data (CDISC SDTM/ADaM tables).
Call get_schema first to learn the tables, then query_patients with a plain
English question. Queries are read-only; failed SQL is repaired automatically
up to two times before an error is returned.`

// MCPServer serves the trial tools and schema resources.
type MCPServer struct {
	svc    *service.TrialService
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer registers every tool and resource against svc.
func NewMCPServer(svc *service.TrialService, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	s := &MCPServer{svc: svc, logger: logger}
	s.server = server.NewMCPServer(ServerName, version,
		server.WithInstructions(instructions),
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.registerTools(s.server)
	s.registerResources(s.server)
	return s
}

// Server returns the underlying mcp-go server.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP over stdin/stdout. Logs must go to stderr in this
// mode.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("MCP server on stdio", "sources", s.svc.Sources())
	return server.ServeStdio(s.server)
}

// ServeHTTP serves streamable HTTP on addr until ctx is done or the process
// is signalled.
func (s *MCPServer) ServeHTTP(ctx context.Context, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := server.NewStreamableHTTPServer(s.server)
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server on streamable HTTP", "addr", addr, "sources", s.svc.Sources())
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	readOnly, openWorld := true, false
	return mcp.ToolAnnotation{
		ReadOnlyHint:  &readOnly,
		OpenWorldHint: &openWorld,
	}
}
