package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
	"tokenarena/internal/service"
	"tokenarena/internal/shuffle"
)

type RoundHandler struct {
	Repo  repository.Repository
	Board *service.Leaderboard
}

func (h *RoundHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/rounds")
	group.GET("/current", h.current)
	group.GET("/current/standings", h.currentStandings)
	group.GET("/last/results", h.lastResults)
	group.GET("/:id/standings", h.standings)
}

type roundView struct {
	ID           uint64              `json:"id"`
	StartAt      time.Time           `json:"start_at"`
	EndAt        time.Time           `json:"end_at"`
	Settled      bool                `json:"settled"`
	SecondsLeft  int64               `json:"seconds_left"`
	Tokens       []models.RoundToken `json:"tokens"`
	Personalized bool                `json:"personalized"`
}

// @Summary Current round with its token set
// @Tags rounds
// @Success 200 {object} roundView
// @Router /api/v1/rounds/current [get]
func (h *RoundHandler) current(c *gin.Context) {
	now := time.Now().UTC()
	round, err := h.Repo.GetActiveRound(c.Request.Context(), now)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if round == nil {
		// Not-yet-available reads return empty, not errors.
		Ok(c, nil, map[string]any{"active": false})
		return
	}

	var tokens []models.RoundToken
	if err := json.Unmarshal(round.Tokens, &tokens); err != nil {
		Error(c, http.StatusInternalServerError, "round token set unreadable", nil)
		return
	}

	view := roundView{
		ID:          round.ID,
		StartAt:     round.StartAt,
		EndAt:       round.EndAt,
		Settled:     round.Settled,
		SecondsLeft: int64(round.EndAt.Sub(now).Seconds()),
		Tokens:      tokens,
	}
	// Each authenticated player sees their own stable token order.
	if identity := identityFrom(c); identity != nil {
		seed := fmt.Sprintf("%d:%s", round.ID, identity.PlayerID)
		shuffled := make([]models.RoundToken, len(tokens))
		for i, j := range shuffle.Indices(len(tokens), seed) {
			shuffled[i] = tokens[j]
		}
		view.Tokens = shuffled
		view.Personalized = true
	}
	Ok(c, view, nil)
}

// @Summary Live standings for the current round
// @Tags rounds
// @Success 200 {array} service.Entry
// @Router /api/v1/rounds/current/standings [get]
func (h *RoundHandler) currentStandings(c *gin.Context) {
	now := time.Now().UTC()
	round, err := h.Repo.GetActiveRound(c.Request.Context(), now)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if round == nil {
		Ok(c, []service.Entry{}, map[string]any{"active": false})
		return
	}
	entries, err := h.Board.Standings(c.Request.Context(), round.ID, service.ViewLive)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, entries, map[string]any{"round_id": round.ID, "view": "live"})
}

// @Summary Standings for one round
// @Tags rounds
// @Param id path int true "round id"
// @Param view query string false "live or final"
// @Success 200 {array} service.Entry
// @Router /api/v1/rounds/{id}/standings [get]
func (h *RoundHandler) standings(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Fail(c, http.StatusBadRequest, "invalid_input", "invalid round id")
		return
	}
	round, err := h.Repo.GetRound(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if round == nil {
		Ok(c, []service.Entry{}, map[string]any{"found": false})
		return
	}
	view := service.ViewLive
	if round.Settled || c.Query("view") == "final" {
		view = service.ViewFinal
	}
	entries, err := h.Board.Standings(c.Request.Context(), id, view)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, entries, map[string]any{"round_id": id, "view": string(view)})
}

// @Summary Final leaderboard of the last settled round
// @Tags rounds
// @Success 200 {array} service.Entry
// @Router /api/v1/rounds/last/results [get]
func (h *RoundHandler) lastResults(c *gin.Context) {
	round, err := h.Repo.GetLastSettledRound(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if round == nil {
		Ok(c, []service.Entry{}, map[string]any{"found": false})
		return
	}
	entries, err := h.Board.Standings(c.Request.Context(), round.ID, service.ViewFinal)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, entries, map[string]any{"round_id": round.ID, "view": "final"})
}
