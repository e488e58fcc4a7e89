package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleCreateLive20Run(w http.ResponseWriter, r *http.Request) {
	var req CreateLive20RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeAPIError(w, err)
		return
	}

	id, err := s.store.InsertLive20Run(r.Context(), req.ToRun())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	run, err := s.store.GetLive20Run(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListLive20Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListLive20Runs(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// runDetail bundles a run with its non-deleted recommendations, ordered by
// confidence the store already applies.
type runDetail struct {
	Run             any `json:"run"`
	Recommendations any `json:"recommendations"`
}

func (s *Server) handleGetLive20Run(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	run, err := s.store.GetLive20Run(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	recs, err := s.store.ListRecommendations(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runDetail{Run: run, Recommendations: recs})
}

func (s *Server) handleCancelLive20Run(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	if err := s.runQueue.Cancel(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteLive20Run(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}

	if err := s.store.DeleteLive20Run(r.Context(), id); err != nil {
		writeAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
