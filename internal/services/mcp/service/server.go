package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	platformgrpc "github.com/louisbranch/storydeck/internal/platform/grpc"
	"github.com/louisbranch/storydeck/internal/platform/timeouts"
	gamegrpc "github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
	"github.com/louisbranch/storydeck/internal/services/mcp/domain"
)

const (
	serverName    = "storydeck MCP"
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	GRPCAddr  string
	Transport TransportKind
	// HTTPAddr defaults to localhost:8081 for HTTP transport.
	HTTPAddr string
	// UserID is the account the server acts as. Without it the server can
	// only join sessions as an anonymous player.
	UserID string
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	conn      io.Closer
	state     *domain.Context
}

// New dials the game server and builds an MCP server acting as userID.
func New(ctx context.Context, grpcAddr string, userID string) (*Server, error) {
	addr := strings.TrimSpace(grpcAddr)
	if addr == "" {
		addr = "localhost:8080"
	}
	logf := func(format string, args ...any) {
		log.Printf("game %s", fmt.Sprintf(format, args...))
	}
	conn, err := platformgrpc.DialWithHealth(ctx, addr, gamegrpc.ServiceName, timeouts.GRPCDial, logf)
	if err != nil {
		var dialErr *platformgrpc.DialError
		if errors.As(err, &dialErr) && dialErr.Stage == platformgrpc.DialStageConnect {
			return nil, fmt.Errorf("connect to game server at %s: %w", addr, dialErr.Err)
		}
		return nil, err
	}
	return newServer(gamegrpc.NewClient(conn), conn, domain.NewContext(userID)), nil
}

func newServer(client domain.GameClient, conn io.Closer, state *domain.Context) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, domain.SessionCreateTool(), domain.SessionCreateHandler(client, state))
	mcp.AddTool(mcpServer, domain.SessionJoinTool(), domain.SessionJoinHandler(client, state))
	mcp.AddTool(mcpServer, domain.SessionGetTool(), domain.SessionGetHandler(client, state))
	mcp.AddTool(mcpServer, domain.SessionApplyTool(), domain.SessionApplyHandler(client, state))
	mcp.AddTool(mcpServer, domain.TurnsListTool(), domain.TurnsListHandler(client, state))
	return &Server{mcpServer: mcpServer, conn: conn, state: state}
}

// Run is the service entrypoint for MCP and blocks until context
// cancellation.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	if cfg.Transport != TransportStdio && cfg.Transport != TransportHTTP {
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}

	server, err := New(ctx, cfg.GRPCAddr, cfg.UserID)
	if err != nil {
		return err
	}
	if cfg.Transport == TransportHTTP {
		return server.serveHTTP(ctx, cfg.HTTPAddr)
	}
	return server.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport runs the MCP server on transport and closes the game
// connection when it stops.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if closeErr := s.Close(); closeErr != nil {
		if err == nil {
			return fmt.Errorf("close gRPC connection: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close gRPC connection: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	if strings.TrimSpace(addr) == "" {
		addr = "localhost:8081"
	}
	defer s.Close()

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcpServer }, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("MCP HTTP transport listening at %s", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown MCP HTTP transport: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve MCP HTTP transport: %w", err)
	}
}

// Close releases the gRPC connection held by the server.
func (s *Server) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
