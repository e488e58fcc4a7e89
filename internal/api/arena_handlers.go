package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/strategy"
)

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req CreateSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIError(w, err)
		return
	}

	if _, ok := s.agents.Get(req.AgentType); !ok {
		writeError(w, http.StatusBadRequest, "unknown agent_type: "+req.AgentType)
		return
	}

	id, err := s.store.InsertSimulation(r.Context(), req.ToSimulation())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	sim, err := s.store.GetSimulation(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sim)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	sims, err := s.store.ListSimulations(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sims)
}

// simulationDetail bundles a simulation with its positions and daily
// snapshots, the shape a results dashboard needs in one round trip.
type simulationDetail struct {
	Simulation any `json:"simulation"`
	Positions  any `json:"positions"`
	Snapshots  any `json:"snapshots"`
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	sim, err := s.store.GetSimulation(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	positions, err := s.store.ListPositions(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	snapshots, err := s.store.ListSnapshots(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, simulationDetail{Simulation: sim, Positions: positions, Snapshots: snapshots})
}

func (s *Server) handleCancelSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	if err := s.simQueue.Cancel(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	if err := s.store.DeleteSimulation(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agents.Names())
}

func (s *Server) handleListPortfolioStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.portfolios.Names())
}

// handleAgentConfigSchema returns the JSON schema of types.AgentConfig, the
// shape every shipped agent takes as ArenaSimulation.AgentConfig — a client
// building the create-simulation form needs this to render the field set
// without hard-coding it.
func (s *Server) handleAgentConfigSchema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, ok := s.agents.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown agent_type: "+name)
		return
	}

	schema, err := strategy.ToJSONSchema(types.AgentConfig{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build config schema")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(schema))
}
