package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/storydeck/internal/platform/id"
	"github.com/louisbranch/storydeck/internal/platform/random"
	"github.com/louisbranch/storydeck/internal/platform/timeouts"
	gamegrpc "github.com/louisbranch/storydeck/internal/services/game/api/grpc/game"
	"github.com/louisbranch/storydeck/internal/services/game/api/grpc/interceptors"
	grpcmeta "github.com/louisbranch/storydeck/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/storydeck/internal/services/game/domain/engine"
	"github.com/louisbranch/storydeck/internal/services/game/gateway"
	"github.com/louisbranch/storydeck/internal/services/game/identity"
	"github.com/louisbranch/storydeck/internal/services/game/notify"
	"github.com/louisbranch/storydeck/internal/services/game/storage"
	"github.com/louisbranch/storydeck/internal/services/game/storage/memory"
	storagesqlite "github.com/louisbranch/storydeck/internal/services/game/storage/sqlite"
)

// Config configures a game server.
type Config struct {
	// GRPCAddr is the gRPC listen address.
	GRPCAddr string
	// WSAddr is the websocket notification listen address.
	WSAddr string
	// DBPath is the SQLite database path. Empty keeps sessions in memory.
	DBPath string
	// TokenSecret signs player tokens.
	TokenSecret string
	TokenTTL    time.Duration

	CallsPerSecond  float64
	CallBurst       int
	FramesPerSecond float64
	FrameBurst      int
	RelayInterval   time.Duration
}

type gameStore interface {
	storage.Store
	storage.OutboxStore
}

// Server hosts the storydeck game server.
type Server struct {
	listener   net.Listener
	wsListener net.Listener
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
	store      gameStore
	relay      *notify.Relay
}

// New creates a configured game server bound to its listen addresses.
func New(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return nil, errors.New("token secret is required")
	}
	provider, err := identity.NewTokenProvider(identity.Config{
		Secret: []byte(cfg.TokenSecret),
		TTL:    cfg.TokenTTL,
		NewID:  id.NewID,
	})
	if err != nil {
		return nil, fmt.Errorf("token provider: %w", err)
	}
	drawSource, err := random.NewCryptoSeededSource()
	if err != nil {
		return nil, err
	}
	codeSource, err := random.NewCryptoSeededSource()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	hub := notify.NewHub(notify.HubOptions{FramesPerSecond: cfg.FramesPerSecond, Burst: cfg.FrameBurst})
	gw, err := gateway.New(gateway.Options{
		Store:      store,
		Engine:     engine.New(drawSource, time.Now, id.NewID),
		Identity:   provider,
		Publisher:  notify.Outbox{Store: store},
		CodeRoller: codeSource,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	wsListener, err := net.Listen("tcp", cfg.WSAddr)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.WSAddr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmeta.UnaryServerInterceptor(id.NewID),
			interceptors.CredentialsInterceptor(),
			interceptors.RateLimitInterceptor(interceptors.RateLimitOptions{
				CallsPerSecond: cfg.CallsPerSecond,
				Burst:          cfg.CallBurst,
			}),
			interceptors.CallLogInterceptor(nil),
		),
		grpc.StreamInterceptor(grpcmeta.StreamServerInterceptor(id.NewID)),
	)
	gamegrpc.RegisterGameServiceServer(grpcServer, gamegrpc.NewService(gw))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(gamegrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		wsListener: wsListener,
		grpcServer: grpcServer,
		httpServer: &http.Server{
			Handler:           hub.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		health: healthServer,
		store:  store,
		relay: &notify.Relay{
			Store:    store,
			Target:   hub,
			Interval: cfg.RelayInterval,
		},
	}, nil
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// WSAddr returns the websocket listener address.
func (s *Server) WSAddr() string {
	if s == nil || s.wsListener == nil {
		return ""
	}
	return s.wsListener.Addr().String()
}

// Run creates and serves a game server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve starts the gRPC server, the websocket server and the outbox relay,
// and blocks until one of them fails or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	relayCtx, stopRelay := context.WithCancel(ctx)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		s.relay.Run(relayCtx)
	}()

	log.Printf("game server listening at %v", s.listener.Addr())
	log.Printf("game notifications listening at %v", s.wsListener.Addr())
	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- s.grpcServer.Serve(s.listener)
	}()
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.wsListener)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-grpcErr:
		serveErr = handleGRPCErr(err)
		grpcErr <- nil
	case err := <-httpErr:
		serveErr = handleHTTPErr(err)
		httpErr <- nil
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown websocket server: %v", err)
	}
	s.grpcServer.GracefulStop()
	stopRelay()
	<-relayDone

	if err := handleGRPCErr(<-grpcErr); err != nil && serveErr == nil {
		serveErr = err
	}
	if err := handleHTTPErr(<-httpErr); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func handleGRPCErr(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}

func handleHTTPErr(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("serve websocket: %w", err)
}

func openStore(path string) (gameStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		log.Printf("game store: no database path configured, sessions are kept in memory")
		return memory.New(), nil
	}
	store, err := storagesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close game store: %v", err)
	}
}
