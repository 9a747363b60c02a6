package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tokenarena/internal/card"
	"tokenarena/internal/models"
	"tokenarena/internal/repository"
	"tokenarena/internal/service"
)

type PlayHandler struct {
	Repo  repository.Repository
	Plays *service.Plays
	Board *service.Leaderboard
}

func (h *PlayHandler) Register(r *gin.Engine, requireAuth gin.HandlerFunc) {
	group := r.Group("/api/v1/plays", requireAuth)
	group.POST("", h.submit)
	group.GET("/me", h.me)
}

type submitPlayRequest struct {
	Picks []models.Pick `json:"picks"`
}

// @Summary Submit a play for the active round
// @Tags plays
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/plays [post]
func (h *PlayHandler) submit(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		Fail(c, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	var req submitPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "invalid_input", "invalid body")
		return
	}

	play, err := h.Plays.Submit(c.Request.Context(), time.Now().UTC(), service.SubmitParams{
		PlayerID:   identity.PlayerID,
		PlayerName: identity.DisplayName,
		ChatID:     identity.ChatID,
		Picks:      req.Picks,
	})
	switch {
	case errors.Is(err, service.ErrNoActiveRound):
		Fail(c, http.StatusConflict, "no_active_round", "no round is open for submissions")
	case errors.Is(err, service.ErrAlreadyPlayed):
		Fail(c, http.StatusConflict, "conflict", "you already played this round")
	case errors.Is(err, service.ErrInvalidPick):
		Fail(c, http.StatusBadRequest, "invalid_input", err.Error())
	case err != nil:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	default:
		Ok(c, gin.H{"play_id": play.ID, "round_id": play.RoundID}, nil)
	}
}

// @Summary Caller's PnL card for a round (live while open, final once settled)
// @Tags plays
// @Param round_id query int false "round id, defaults to the active round"
// @Success 200 {object} card.Card
// @Router /api/v1/plays/me [get]
func (h *PlayHandler) me(c *gin.Context) {
	identity := identityFrom(c)
	if identity == nil {
		Fail(c, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	ctx := c.Request.Context()

	var round *models.Round
	var err error
	if raw := c.Query("round_id"); raw != "" {
		id, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			Fail(c, http.StatusBadRequest, "invalid_input", "invalid round id")
			return
		}
		round, err = h.Repo.GetRound(ctx, id)
	} else {
		round, err = h.Repo.GetActiveRound(ctx, time.Now().UTC())
	}
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if round == nil {
		Ok(c, nil, map[string]any{"found": false})
		return
	}

	view := service.ViewLive
	title := "Live PnL"
	if round.Settled {
		view = service.ViewFinal
		title = "Final PnL"
	}

	var totalPct decimal.Decimal
	var picksJSON []byte
	if view == service.ViewFinal {
		result, err := h.Repo.GetRoundResult(ctx, round.ID, identity.PlayerID)
		if err != nil {
			Error(c, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		if result == nil {
			Ok(c, nil, map[string]any{"found": false})
			return
		}
		totalPct = result.PnLPercent
		picksJSON = result.Picks
	} else {
		live, err := h.Repo.GetLivePnL(ctx, round.ID, identity.PlayerID)
		if err != nil {
			Error(c, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		if live == nil {
			Ok(c, nil, map[string]any{"found": false})
			return
		}
		totalPct = live.PnLPercent
		picksJSON = live.Detail
	}

	rank, total, err := h.Board.PlayerRank(ctx, round.ID, identity.PlayerID, view)
	if err != nil {
		rank, total = 0, 0
	}
	result, err := card.Build(title, identity.DisplayName, rank, total, totalPct, picksJSON)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, result, map[string]any{"round_id": round.ID, "view": string(view)})
}
