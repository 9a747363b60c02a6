package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

// View selects which result set a PnL computation targets.
type View string

const (
	ViewLive  View = "live"
	ViewFinal View = "final"
)

var hundred = decimal.NewFromInt(100)

// pnlScale bounds stored precision so a retried settlement rewrites
// byte-identical values.
const pnlScale = 8

// PnLEngine resolves entry/exit prices from the price cache and derives
// per-pick and aggregate PnL for plays, in live or final mode.
type PnLEngine struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// PickPnL applies the sign convention: long gains when price rises, short
// gains when it falls. Returns nil when the entry price is zero.
func PickPnL(direction string, entry, ref decimal.Decimal) *decimal.Decimal {
	if entry.IsZero() {
		return nil
	}
	move := ref.Sub(entry).Div(entry).Mul(hundred)
	if direction == models.DirectionShort {
		move = move.Neg()
	}
	move = move.Round(pnlScale)
	return &move
}

// Aggregate averages the non-nil pick PnLs. A play with zero resolvable picks
// aggregates to 0 by convention.
func Aggregate(picks []models.ResultPick) decimal.Decimal {
	sum := decimal.Zero
	count := 0
	for _, p := range picks {
		if p.PnLPercent == nil {
			continue
		}
		sum = sum.Add(*p.PnLPercent)
		count++
	}
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count))).Round(pnlScale)
}

// entryPrice resolves the price a pick opened at: the first history point in
// [round start, entry deadline], else the nearest point before round start,
// else the latest cached snapshot price. The deadline is the play's creation
// time; a tick long after submission is not an entry price.
func (e *PnLEngine) entryPrice(ctx context.Context, address string, round *models.Round, deadline time.Time) (*decimal.Decimal, error) {
	if deadline.Before(round.StartAt) || deadline.After(round.EndAt) {
		deadline = round.EndAt
	}
	point, err := e.Repo.PriceAtOrAfter(ctx, address, round.StartAt)
	if err != nil {
		return nil, err
	}
	if point != nil && !point.Ts.After(deadline) {
		return &point.Price, nil
	}
	point, err = e.Repo.PriceAtOrBefore(ctx, address, round.StartAt, nil)
	if err != nil {
		return nil, err
	}
	if point != nil {
		return &point.Price, nil
	}
	return e.Repo.LatestCachedPrice(ctx, address)
}

// refPrice resolves the mark price: for the final view the nearest point at or
// before round end, for the live view the nearest point at or before asOf but
// not earlier than round start. Falls back to the cached snapshot price.
func (e *PnLEngine) refPrice(ctx context.Context, address string, round *models.Round, view View, asOf time.Time) (*decimal.Decimal, error) {
	var point *models.PricePoint
	var err error
	if view == ViewFinal {
		point, err = e.Repo.PriceAtOrBefore(ctx, address, round.EndAt, nil)
	} else {
		point, err = e.Repo.PriceAtOrBefore(ctx, address, asOf, &round.StartAt)
	}
	if err != nil {
		return nil, err
	}
	if point != nil {
		return &point.Price, nil
	}
	return e.Repo.LatestCachedPrice(ctx, address)
}

// ComputePlay scores every pick of a play. A pick whose entry or reference
// price cannot be resolved contributes nil and is excluded from the
// aggregate; a lookup error on one pick never aborts the others.
func (e *PnLEngine) ComputePlay(ctx context.Context, round *models.Round, play *models.Play, view View, asOf time.Time) (decimal.Decimal, []models.ResultPick, error) {
	var picks []models.Pick
	if err := json.Unmarshal(play.Picks, &picks); err != nil {
		return decimal.Zero, nil, err
	}

	results := make([]models.ResultPick, 0, len(picks))
	for _, pick := range picks {
		result := models.ResultPick{Pick: pick}
		entry, err := e.entryPrice(ctx, pick.Address, round, play.CreatedAt)
		if err != nil {
			e.logWarn("entry price lookup failed", err,
				zap.Uint64("round_id", round.ID),
				zap.String("address", pick.Address))
			results = append(results, result)
			continue
		}
		ref, err := e.refPrice(ctx, pick.Address, round, view, asOf)
		if err != nil {
			e.logWarn("reference price lookup failed", err,
				zap.Uint64("round_id", round.ID),
				zap.String("address", pick.Address))
			result.EntryPrice = entry
			results = append(results, result)
			continue
		}
		result.EntryPrice = entry
		result.ExitPrice = ref
		if entry != nil && ref != nil {
			result.PnLPercent = PickPnL(pick.Direction, *entry, *ref)
		}
		results = append(results, result)
	}

	return Aggregate(results), results, nil
}

// RefreshLive recomputes the transient live view for every play in an open
// round. Per-player failures are counted and skipped.
func (e *PnLEngine) RefreshLive(ctx context.Context, round *models.Round, now time.Time) (players, errCount int, err error) {
	plays, err := e.Repo.ListPlaysByRound(ctx, round.ID)
	if err != nil {
		return 0, 0, err
	}
	for i := range plays {
		play := &plays[i]
		aggregate, detail, err := e.ComputePlay(ctx, round, play, ViewLive, now)
		if err != nil {
			e.logWarn("live pnl compute failed", err,
				zap.Uint64("round_id", round.ID),
				zap.String("player_id", play.PlayerID))
			errCount++
			continue
		}
		detailJSON, err := json.Marshal(detail)
		if err != nil {
			errCount++
			continue
		}
		if err := e.Repo.UpsertLivePnL(ctx, &models.LivePnL{
			RoundID:    round.ID,
			PlayerID:   play.PlayerID,
			PnLPercent: aggregate,
			Detail:     datatypes.JSON(detailJSON),
			UpdatedAt:  now,
		}); err != nil {
			e.logWarn("live pnl upsert failed", err,
				zap.Uint64("round_id", round.ID),
				zap.String("player_id", play.PlayerID))
			errCount++
			continue
		}
		players++
	}
	return players, errCount, nil
}

// SettleStats summarizes one settlement pass.
type SettleStats struct {
	Players int
	Errors  int
	Settled bool
}

// SettleRound writes the final result for every play, then flips the settled
// flag and drops the live rows. The flag is only flipped when every player's
// result was durably written, so a partial failure leaves the round eligible
// for an idempotent retry on the next tick.
func (e *PnLEngine) SettleRound(ctx context.Context, round *models.Round, now time.Time) (SettleStats, error) {
	var stats SettleStats
	plays, err := e.Repo.ListPlaysByRound(ctx, round.ID)
	if err != nil {
		return stats, err
	}
	for i := range plays {
		play := &plays[i]
		aggregate, detail, err := e.ComputePlay(ctx, round, play, ViewFinal, round.EndAt)
		if err != nil {
			e.logWarn("settlement compute failed", err,
				zap.Uint64("round_id", round.ID),
				zap.String("player_id", play.PlayerID))
			stats.Errors++
			continue
		}
		picksJSON, err := json.Marshal(detail)
		if err != nil {
			stats.Errors++
			continue
		}
		if err := e.Repo.UpsertRoundResult(ctx, &models.RoundResult{
			RoundID:    round.ID,
			PlayerID:   play.PlayerID,
			PlayerName: play.PlayerName,
			PnLPercent: aggregate,
			Picks:      datatypes.JSON(picksJSON),
			SettledAt:  now,
		}); err != nil {
			e.logWarn("round result upsert failed", err,
				zap.Uint64("round_id", round.ID),
				zap.String("player_id", play.PlayerID))
			stats.Errors++
			continue
		}
		stats.Players++
	}

	if stats.Errors > 0 {
		return stats, nil
	}
	if err := e.Repo.MarkRoundSettled(ctx, round.ID); err != nil {
		return stats, err
	}
	if err := e.Repo.DeleteLivePnLByRound(ctx, round.ID); err != nil {
		e.logWarn("live pnl cleanup failed", err, zap.Uint64("round_id", round.ID))
	}
	stats.Settled = true
	return stats, nil
}

func (e *PnLEngine) logWarn(msg string, err error, fields ...zap.Field) {
	if e == nil || e.Logger == nil {
		return
	}
	e.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
