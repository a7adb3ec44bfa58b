// Package server hosts the goalforge HTTP/WebSocket process.
//
// It wires the storage layer and domain services together and exposes the
// conversational surface over a WebSocket endpoint, plus a gRPC health
// server for orchestrators.
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

	"github.com/shxuryaaz/agilow-goal-forge/internal/board"
	"github.com/shxuryaaz/agilow-goal-forge/internal/conversation"
	"github.com/shxuryaaz/agilow-goal-forge/internal/credential"
	"github.com/shxuryaaz/agilow-goal-forge/internal/identity"
	"github.com/shxuryaaz/agilow-goal-forge/internal/materialize"
	"github.com/shxuryaaz/agilow-goal-forge/internal/planner"
	"github.com/shxuryaaz/agilow-goal-forge/internal/platform/timeouts"
	"github.com/shxuryaaz/agilow-goal-forge/internal/progress"
	"github.com/shxuryaaz/agilow-goal-forge/internal/rewards"
	"github.com/shxuryaaz/agilow-goal-forge/internal/storage/sqlite"
	"github.com/shxuryaaz/agilow-goal-forge/internal/telemetry"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Config defines the inputs for the goalforge transport boundary.
type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	DBPath            string
	BoardAPIKey       string
	OpenAIAPIKey      string
	LedgerEndpoint    string
	LedgerAPIKey      string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the goalforge HTTP server and an optional gRPC health
// endpoint.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	grpcListener    net.Listener
	grpcServer      *gogrpc.Server
	healthServer    *health.Server
	store           *sqlite.Store
}

// NewServer builds a configured goalforge server backed by a SQLite store.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	dbPath := strings.TrimSpace(config.DBPath)
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	conversationService, links := buildConversation(store, config)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(conversationService, links),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	server := &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		store:           store,
	}

	grpcAddr := strings.TrimSpace(config.GRPCAddr)
	if grpcAddr != "" {
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("listen grpc: %w", err)
		}
		grpcServer := gogrpc.NewServer()
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		server.grpcListener = listener
		server.grpcServer = grpcServer
		server.healthServer = healthServer
	}

	return server, nil
}

// buildConversation wires the domain services behind the conversation
// state machine.
func buildConversation(store *sqlite.Store, config Config) (*conversation.Service, *board.LinkService) {
	emitter := telemetry.NewEmitter(store)
	rewardService := rewards.NewService(store, store, rewards.NewBalanceCache(), emitter)
	links := board.NewLinkService(store, strings.TrimSpace(config.BoardAPIKey), time.Now)
	if grants, err := board.LoadLinkGrantConfigFromEnv(time.Now); err == nil {
		links = links.WithGrants(grants)
	} else {
		log.Printf("board link grant flow disabled: %v", err)
	}
	wallets := identity.NewService(store)

	var ledger credential.LedgerClient
	if client := credential.NewHTTPLedgerClient(config.LedgerEndpoint, config.LedgerAPIKey); client != nil {
		ledger = client
	}
	credentials := credential.NewService(store, ledger)

	plannerService := planner.NewResilient(planner.NewOpenAIPlanner(config.OpenAIAPIKey), emitter)
	saga := materialize.NewSaga(plannerService, links, store, wallets, credentials, rewardService, emitter)
	progressService := progress.NewService(store, links, rewardService, emitter).
		WithInterpreter(plannerService.InterpretProgress)

	return conversation.NewService(store, store, links, saga, progressService, rewardService, plannerService, emitter), links
}

// Run creates and serves a goalforge server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init goalforge server: %w", err)
	}
	defer server.Close()

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serve goalforge: %w", err)
	}
	return nil
}

// Serve runs the HTTP server, and the gRPC health server when configured,
// until the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("goalforge server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("goalforge server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	if s.grpcServer != nil {
		log.Printf("goalforge health server listening at %v", s.grpcListener.Addr())
		go func() {
			if err := s.grpcServer.Serve(s.grpcListener); err != nil {
				log.Printf("goalforge health server stopped: %v", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		if s.healthServer != nil {
			s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if s.grpcServer != nil {
			s.grpcServer.GracefulStop()
		}
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
}
