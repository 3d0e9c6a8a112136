package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quadmatch/quadmatch/internal/api/request"
	"github.com/quadmatch/quadmatch/internal/api/response"
	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/services/match"
	"github.com/quadmatch/quadmatch/internal/services/query"
)

// MatchHandler handles match-related endpoints
type MatchHandler struct {
	matchController *match.Controller
	queryService    *query.Service
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchController *match.Controller, queryService *query.Service) *MatchHandler {
	return &MatchHandler{
		matchController: matchController,
		queryService:    queryService,
	}
}

// Create handles POST /api/v1/matches
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	m, err := h.matchController.Create(r.Context(), req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MatchFromModel(m))
}

// List handles GET /api/v1/matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := h.queryService.Matches(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchesFromModel(matches))
}

// ListOpen handles GET /api/v1/matches/open
func (h *MatchHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	matches, err := h.queryService.OpenMatches(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchesFromModel(matches))
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	m, err := h.queryService.Match(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Update handles PUT /api/v1/matches/{id}
func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	var req request.UpdateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.ID != "" && req.ID != string(id) {
		WriteError(w, NewInvalidRequestError("id in body does not match URL"))
		return
	}

	scores := make(map[model.PlayerID]int, len(req.Scores))
	for pid, score := range req.Scores {
		scores[model.PlayerID(pid)] = score
	}

	m := &model.Match{
		ID:        id,
		Name:      req.Name,
		Status:    model.MatchStatus(req.Status),
		StartedAt: req.StartedAt,
		EndedAt:   req.EndedAt,
		Scores:    scores,
	}

	if err := h.matchController.Update(r.Context(), m); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /api/v1/matches/{id}
func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	if err := h.matchController.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// DeleteAll handles DELETE /api/v1/matches
func (h *MatchHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.matchController.DeleteAll(r.Context()); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Join handles POST /api/v1/matches/{id}/join/{player_id}
func (h *MatchHandler) Join(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := model.MatchID(vars["id"])
	playerID := model.PlayerID(vars["player_id"])

	if err := h.matchController.Join(r.Context(), matchID, playerID); err != nil {
		WriteError(w, err)
		return
	}

	m, err := h.queryService.Match(r.Context(), matchID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Leave handles POST /api/v1/matches/{id}/leave/{player_id}
func (h *MatchHandler) Leave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := model.MatchID(vars["id"])
	playerID := model.PlayerID(vars["player_id"])

	if err := h.matchController.Leave(r.Context(), matchID, playerID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Start handles POST /api/v1/matches/{id}/start
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	if err := h.matchController.Start(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	m, err := h.queryService.Match(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Finish handles POST /api/v1/matches/{id}/finish
func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	// An absent or empty body finishes the match with no scores
	var req request.FinishMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	scores := make(map[model.PlayerID]int, len(req))
	for pid, score := range req {
		scores[model.PlayerID(pid)] = score
	}

	if err := h.matchController.Finish(r.Context(), id, scores); err != nil {
		WriteError(w, err)
		return
	}

	m, err := h.queryService.Match(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// HistoryForPlayer handles GET /api/v1/matches/history/players/{player_id}
func (h *MatchHandler) HistoryForPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := model.PlayerID(mux.Vars(r)["player_id"])

	matches, err := h.queryService.HistoryForPlayer(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchesFromModel(matches))
}
