// Package api exposes the HTTP façade over the arena simulation and
// live20 screening subsystems: a thin gorilla/mux router whose handlers
// validate the request, delegate to store/queue/agent/cache, and encode
// the result as JSON. No business logic lives here.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/types"
)

// Store is the subset of *store.Store the API handlers need, narrowed so
// tests can substitute an in-memory fake.
type Store interface {
	Ping(ctx context.Context) error

	InsertSimulation(ctx context.Context, sim types.ArenaSimulation) (uuid.UUID, error)
	GetSimulation(ctx context.Context, id uuid.UUID) (types.ArenaSimulation, error)
	ListSimulations(ctx context.Context) ([]types.ArenaSimulation, error)
	DeleteSimulation(ctx context.Context, id uuid.UUID) error
	ListPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error)
	ListSnapshots(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaSnapshot, error)

	InsertLive20Run(ctx context.Context, run types.Live20Run) (uuid.UUID, error)
	GetLive20Run(ctx context.Context, id uuid.UUID) (types.Live20Run, error)
	ListLive20Runs(ctx context.Context) ([]types.Live20Run, error)
	DeleteLive20Run(ctx context.Context, id uuid.UUID) error
	ListRecommendations(ctx context.Context, runID uuid.UUID) ([]types.Recommendation, error)

	GetBarsInRange(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.PriceBar, error)
}

// SimulationQueue and RunQueue are the narrow cancellation capability the
// API needs from internal/queue.Queue — one instance per job table,
// mirroring the two tables internal/queue.New binds to.
type SimulationQueue interface {
	Cancel(ctx context.Context, jobID uuid.UUID) error
}

type RunQueue interface {
	Cancel(ctx context.Context, jobID uuid.UUID) error
}

// Server wires the router to its dependencies. Handlers are methods on
// Server so they share the same store/queue/registry instances the
// workers use — no second connection pool, no duplicated state.
type Server struct {
	store      Store
	prices     *cache.Cache
	simQueue   SimulationQueue
	runQueue   RunQueue
	agents     *agent.Registry
	portfolios *agent.PortfolioRegistry
	provider   string
	log        *logger.Logger

	router *mux.Router
}

// NewServer builds a Server with every route registered, ready to be
// handed to an http.Server as its Handler.
func NewServer(st Store, prices *cache.Cache, simQueue SimulationQueue, runQueue RunQueue,
	agents *agent.Registry, portfolios *agent.PortfolioRegistry, providerName string, log *logger.Logger,
) *Server {
	s := &Server{
		store:      st,
		prices:     prices,
		simQueue:   simQueue,
		runQueue:   runQueue,
		agents:     agents,
		portfolios: portfolios,
		provider:   providerName,
		log:        log,
	}

	s.router = mux.NewRouter()
	s.registerRoutes()

	return s
}

// Handler returns the router as an http.Handler, for use as an
// *http.Server's Handler field.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router

	r.HandleFunc("/arena/simulations", s.handleCreateSimulation).Methods(http.MethodPost)
	r.HandleFunc("/arena/simulations", s.handleListSimulations).Methods(http.MethodGet)
	r.HandleFunc("/arena/simulations/{id}", s.handleGetSimulation).Methods(http.MethodGet)
	r.HandleFunc("/arena/simulations/{id}/cancel", s.handleCancelSimulation).Methods(http.MethodPost)
	r.HandleFunc("/arena/simulations/{id}", s.handleDeleteSimulation).Methods(http.MethodDelete)
	r.HandleFunc("/arena/agents", s.handleListAgents).Methods(http.MethodGet)
	r.HandleFunc("/arena/portfolio-strategies", s.handleListPortfolioStrategies).Methods(http.MethodGet)
	r.HandleFunc("/arena/agents/{name}/config-schema", s.handleAgentConfigSchema).Methods(http.MethodGet)

	r.HandleFunc("/live-20/analyze", s.handleCreateLive20Run).Methods(http.MethodPost)
	r.HandleFunc("/live-20/results", s.handleListLive20Runs).Methods(http.MethodGet)
	r.HandleFunc("/live-20/runs/{id}", s.handleGetLive20Run).Methods(http.MethodGet)
	r.HandleFunc("/live-20/runs/{id}/cancel", s.handleCancelLive20Run).Methods(http.MethodPost)
	r.HandleFunc("/live-20/runs/{id}", s.handleDeleteLive20Run).Methods(http.MethodDelete)

	r.HandleFunc("/stocks/{symbol}/prices", s.handleStockPrices).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleHealthReady).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleHealthLive).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
