package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

// Plays is the submission guard: it validates picks, refuses submissions
// outside an active round, and relies on the plays unique index for the
// one-play-per-player rule.
type Plays struct {
	Repo     repository.Repository
	Logger   *zap.Logger
	MaxPicks int
}

type SubmitParams struct {
	PlayerID   string
	PlayerName string
	ChatID     *int64
	Picks      []models.Pick
}

// Submit persists one play for the active round. Excess picks beyond
// MaxPicks are truncated, not rejected: only the first N picks count.
func (p *Plays) Submit(ctx context.Context, now time.Time, params SubmitParams) (*models.Play, error) {
	if strings.TrimSpace(params.PlayerID) == "" {
		return nil, fmt.Errorf("%w: player id required", ErrInvalidPick)
	}
	if len(params.Picks) == 0 {
		return nil, fmt.Errorf("%w: at least one pick required", ErrInvalidPick)
	}

	picks := params.Picks
	if p.MaxPicks > 0 && len(picks) > p.MaxPicks {
		picks = picks[:p.MaxPicks]
	}
	for i := range picks {
		picks[i].Direction = strings.ToLower(strings.TrimSpace(picks[i].Direction))
		if strings.TrimSpace(picks[i].Address) == "" {
			return nil, fmt.Errorf("%w: pick %d missing token address", ErrInvalidPick, i)
		}
		if picks[i].Direction != models.DirectionLong && picks[i].Direction != models.DirectionShort {
			return nil, fmt.Errorf("%w: pick %d direction must be long or short", ErrInvalidPick, i)
		}
	}

	round, err := p.Repo.GetActiveRound(ctx, now)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrNoActiveRound
	}

	picksJSON, err := json.Marshal(picks)
	if err != nil {
		return nil, err
	}
	play := &models.Play{
		RoundID:    round.ID,
		PlayerID:   params.PlayerID,
		PlayerName: params.PlayerName,
		ChatID:     params.ChatID,
		Picks:      datatypes.JSON(picksJSON),
		CreatedAt:  now,
	}
	if err := p.Repo.CreatePlay(ctx, play); err != nil {
		if errors.Is(err, repository.ErrDuplicatePlay) {
			return nil, ErrAlreadyPlayed
		}
		return nil, err
	}
	if p.Logger != nil {
		p.Logger.Info("play submitted",
			zap.Uint64("round_id", round.ID),
			zap.String("player_id", params.PlayerID),
			zap.Int("picks", len(picks)))
	}
	return play, nil
}
