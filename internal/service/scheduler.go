package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

// TokenLister supplies the day's candidate token pool for new rounds.
type TokenLister interface {
	DailyTokens(ctx context.Context, now time.Time) ([]models.RoundToken, error)
}

// RoundNotifier receives lifecycle events. Implementations must be bounded by
// their own timeouts; a notification failure never fails the tick.
type RoundNotifier interface {
	RoundOpened(ctx context.Context, round *models.Round, tokens []models.RoundToken)
	RoundSettled(ctx context.Context, round *models.Round, standings []Entry)
}

// RoundWindow floor-aligns now to the block size, so round boundaries are
// stable regardless of when the tick that opens the round happens to run.
func RoundWindow(now time.Time, block time.Duration) (start, end time.Time) {
	if block <= 0 {
		block = time.Hour
	}
	start = now.UTC().Truncate(block)
	return start, start.Add(block)
}

// Scheduler drives the round lifecycle. Tick performs exactly one action:
// open a round when none is active, else settle the backlog of ended rounds
// (oldest-ending first), else refresh the live view. It is the only writer
// of round lifecycle state; overlapping invocations degrade to no-ops.
type Scheduler struct {
	Repo        repository.Repository
	Engine      *PnLEngine
	Board       *Leaderboard
	Tokens      TokenLister
	Notify      RoundNotifier
	Logger      *zap.Logger
	BlockSize   time.Duration
	ContestSize int

	// Now is replaceable for tests; defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.mu.TryLock() {
		return nil
	}
	defer s.mu.Unlock()

	now := s.now()
	active, err := s.Repo.GetActiveRound(ctx, now)
	if err != nil {
		return err
	}
	if active == nil {
		return s.openRound(ctx, now)
	}

	backlog, err := s.Repo.ListUnsettledEndedRounds(ctx, now)
	if err != nil {
		return err
	}
	if len(backlog) > 0 {
		// Settle every due round in one tick so scheduler downtime never
		// leaves a round behind.
		for i := range backlog {
			s.settle(ctx, &backlog[i], now)
		}
		return nil
	}

	players, errCount, err := s.Engine.RefreshLive(ctx, active, now)
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Debug("live view refreshed",
			zap.Uint64("round_id", active.ID),
			zap.Int("players", players),
			zap.Int("errors", errCount))
	}
	return nil
}

func (s *Scheduler) openRound(ctx context.Context, now time.Time) error {
	tokens, err := s.Tokens.DailyTokens(ctx, now)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		if s.Logger != nil {
			s.Logger.Warn("no candidate tokens, round not opened")
		}
		return nil
	}
	if s.ContestSize > 0 && len(tokens) > s.ContestSize {
		tokens = tokens[:s.ContestSize]
	}
	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	start, end := RoundWindow(now, s.BlockSize)
	round := &models.Round{
		StartAt: start,
		EndAt:   end,
		Tokens:  datatypes.JSON(tokensJSON),
	}
	if err := s.Repo.CreateRound(ctx, round); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("round opened",
			zap.Uint64("round_id", round.ID),
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Int("tokens", len(tokens)))
	}
	if s.Notify != nil {
		s.Notify.RoundOpened(ctx, round, tokens)
	}
	return nil
}

func (s *Scheduler) settle(ctx context.Context, round *models.Round, now time.Time) {
	stats, err := s.Engine.SettleRound(ctx, round, now)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("settlement failed", zap.Uint64("round_id", round.ID), zap.Error(err))
		}
		return
	}
	if s.Logger != nil {
		s.Logger.Info("round settlement pass",
			zap.Uint64("round_id", round.ID),
			zap.Int("players", stats.Players),
			zap.Int("errors", stats.Errors),
			zap.Bool("settled", stats.Settled))
	}
	if !stats.Settled || s.Notify == nil {
		return
	}
	standings, err := s.Board.Standings(ctx, round.ID, ViewFinal)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("final standings lookup failed", zap.Uint64("round_id", round.ID), zap.Error(err))
		}
		return
	}
	s.Notify.RoundSettled(ctx, round, standings)
}
