package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/quadmatch/quadmatch/internal/api/request"
	"github.com/quadmatch/quadmatch/internal/api/response"
	"github.com/quadmatch/quadmatch/internal/model"
	"github.com/quadmatch/quadmatch/internal/services/player"
	"github.com/quadmatch/quadmatch/internal/services/query"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	playerService *player.Service
	queryService  *query.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(playerService *player.Service, queryService *query.Service) *PlayerHandler {
	return &PlayerHandler{
		playerService: playerService,
		queryService:  queryService,
	}
}

// Register handles POST /api/v1/players
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	p, err := h.playerService.Register(r.Context(), req.Name, req.Nickname, req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(p))
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.queryService.Players(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayersFromModel(players))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	p, err := h.queryService.Player(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(p))
}

// Update handles PUT /api/v1/players/{id}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	var req request.UpdatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.ID != "" && req.ID != string(id) {
		WriteError(w, NewInvalidRequestError("id in body does not match URL"))
		return
	}

	if err := h.playerService.Update(r.Context(), id, req.Name, req.Nickname, req.Email); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /api/v1/players/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	if err := h.playerService.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
