package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tokenarena/internal/auth"
)

type AuthHandler struct {
	BotToken string
	Sessions *auth.Sessions
	Logger   *zap.Logger

	// MaxInitDataAge bounds how old a signed payload may be; 0 disables.
	MaxInitDataAge time.Duration
}

func (h *AuthHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/auth/telegram", h.telegram)
}

type telegramAuthRequest struct {
	InitData string `json:"init_data"`
}

type telegramAuthResponse struct {
	Token       string `json:"token"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
}

// @Summary Exchange Telegram initData for a session token
// @Tags auth
// @Accept json
// @Success 200 {object} telegramAuthResponse
// @Router /api/v1/auth/telegram [post]
func (h *AuthHandler) telegram(c *gin.Context) {
	var req telegramAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InitData == "" {
		Fail(c, http.StatusBadRequest, "invalid_input", "init_data required")
		return
	}
	now := time.Now().UTC()
	identity, err := auth.VerifyInitData(req.InitData, h.BotToken, h.MaxInitDataAge, now)
	if err != nil {
		Fail(c, http.StatusUnauthorized, "unauthorized", "identity verification failed")
		return
	}
	token, err := h.Sessions.Issue(identity, now)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("session issue failed", zap.Error(err))
		}
		Error(c, http.StatusInternalServerError, "session issue failed", nil)
		return
	}
	Ok(c, telegramAuthResponse{
		Token:       token,
		PlayerID:    identity.PlayerID,
		DisplayName: identity.DisplayName,
	}, nil)
}
