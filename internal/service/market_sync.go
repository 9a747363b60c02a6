package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tokenarena/internal/client/birdeye"
	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

// MarketSync pulls snapshots and history from the upstream provider into the
// price cache. It runs on its own schedule, independent of rounds, and paces
// per-token calls to respect the provider's rate limits.
type MarketSync struct {
	Repo          repository.Repository
	Client        *birdeye.Client
	Addresses     []string
	Pace          time.Duration
	HistoryWindow time.Duration
	Logger        *zap.Logger
}

type SyncResult struct {
	Tokens int
	Points int
	Errors int
}

// SyncOnce pulls every allowlisted token once. A single token's failure is
// counted and skipped; it never aborts the batch.
func (m *MarketSync) SyncOnce(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	now := time.Now().UTC()
	window := m.HistoryWindow
	if window <= 0 {
		window = 24 * time.Hour
	}

	for i, address := range m.Addresses {
		if i > 0 && m.Pace > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(m.Pace):
			}
		}

		points, err := m.syncToken(ctx, address, now, window)
		if err != nil {
			result.Errors++
			if m.Logger != nil {
				m.Logger.Warn("token sync failed", zap.String("address", address), zap.Error(err))
			}
			continue
		}
		result.Tokens++
		result.Points += points
	}

	return result, nil
}

func (m *MarketSync) syncToken(ctx context.Context, address string, now time.Time, window time.Duration) (int, error) {
	snap, err := m.Client.FetchSnapshot(ctx, address)
	if err != nil {
		return 0, err
	}
	if err := m.Repo.UpsertToken(ctx, &models.Token{
		Address:           address,
		Symbol:            snap.Symbol,
		Name:              snap.Name,
		LogoURI:           snap.LogoURI,
		Price:             snap.Price,
		MarketCap:         snap.MarketCap,
		Liquidity:         snap.Liquidity,
		Volume24h:         snap.Volume24h,
		PriceChange24hPct: snap.PriceChange24hPct,
		Holders:           snap.Holders,
		Top10HolderPct:    snap.Top10HolderPct,
		LaunchedAt:        snap.LaunchedAt,
		UpdatedAt:         now,
	}); err != nil {
		return 0, err
	}

	history, err := m.Client.FetchHistory(ctx, address, now.Add(-window), now)
	if err != nil {
		return 0, err
	}
	points := make([]models.PricePoint, 0, len(history))
	for _, h := range history {
		points = append(points, models.PricePoint{
			Address: address,
			Ts:      h.Ts,
			Price:   h.Price,
		})
	}
	if err := m.Repo.AppendPricePoints(ctx, points); err != nil {
		return 0, err
	}
	return len(points), nil
}
