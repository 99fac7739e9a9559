// Package api exposes the combat service over HTTP. Authentication is an
// upstream concern: the gateway injects the authenticated player ID in the
// X-Player-ID header, and this layer only validates its shape.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/echoesrpg/echoes-server/lib/engine"
	"github.com/echoesrpg/echoes-server/lib/service"
)

// playerHeader carries the authenticated player ID set by the gateway.
const playerHeader = "X-Player-ID"

// Server wires the combat endpoints.
type Server struct {
	svc *service.CombatService
}

// NewServer creates the HTTP surface over a combat service.
func NewServer(svc *service.CombatService) *Server {
	return &Server{svc: svc}
}

// Router builds the combat route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/combat/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/combat/current", s.handleCurrent).Methods(http.MethodGet)
	r.HandleFunc("/combat/action", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/combat/flee", s.handleFlee).Methods(http.MethodPost)
	r.HandleFunc("/combat/watch", s.handleWatch).Methods(http.MethodGet)
	return r
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrEntityNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyInCombat),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrSpellRequired),
		errors.Is(err, service.ErrSpellNotAvailable),
		errors.Is(err, service.ErrNoConsumableEquipped),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrSpellOnCooldown),
		errors.Is(err, engine.ErrNotEnoughEcho),
		errors.Is(err, engine.ErrNoConsumableUses):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotSessionOwner):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrConcurrentModification):
		status = http.StatusConflict
	default:
		logrus.WithError(err).Error("Combat request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// playerID extracts and validates the authenticated player ID.
func playerID(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(playerHeader)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// startRequest is the POST /combat/start body.
type startRequest struct {
	MonsterBlueprintID uuid.UUID `json:"monster_blueprint_id"`
	MonsterLevel       *int      `json:"monster_level,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	pid, ok := playerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + playerHeader})
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.MonsterBlueprintID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "monster_blueprint_id required"})
		return
	}

	result, err := s.svc.StartCombat(r.Context(), pid, req.MonsterBlueprintID, req.MonsterLevel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	pid, ok := playerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + playerHeader})
		return
	}

	state, err := s.svc.CurrentState(r.Context(), pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	pid, ok := playerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + playerHeader})
		return
	}

	var input service.ActionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.svc.ExecuteAction(r.Context(), pid, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleFlee(w http.ResponseWriter, r *http.Request) {
	pid, ok := playerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid " + playerHeader})
		return
	}

	result, err := s.svc.Flee(r.Context(), pid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
