package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"tokenarena/internal/repository"
)

// Entry is one leaderboard row. Rank uses competition ranking: equal PnL
// shares the rank of the first tied entry, the next distinct PnL resumes at
// its positional rank (10, 10, 5 ranks as 1, 1, 3).
type Entry struct {
	PlayerID   string          `json:"player_id"`
	PlayerName string          `json:"player_name"`
	PnLPercent decimal.Decimal `json:"pnl_percent"`
	Rank       int             `json:"rank"`
}

// Leaderboard ranks players within a round. Standings and PlayerRank share
// one ordering rule so the bulk view and the single-player lookup never
// disagree: descending PnL, ties broken by play creation order.
type Leaderboard struct {
	Repo repository.Repository
}

func (l *Leaderboard) Standings(ctx context.Context, roundID uint64, view View) ([]Entry, error) {
	plays, err := l.Repo.ListPlaysByRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if len(plays) == 0 {
		return nil, nil
	}

	pnls := map[string]decimal.Decimal{}
	present := map[string]bool{}
	if view == ViewFinal {
		results, err := l.Repo.ListRoundResultsByRound(ctx, roundID)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			pnls[r.PlayerID] = r.PnLPercent
			present[r.PlayerID] = true
		}
	} else {
		rows, err := l.Repo.ListLivePnLByRound(ctx, roundID)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			pnls[r.PlayerID] = r.PnLPercent
			present[r.PlayerID] = true
		}
	}

	entries := make([]Entry, 0, len(plays))
	for _, play := range plays {
		if view == ViewFinal && !present[play.PlayerID] {
			// Not settled for this player yet; final view only shows written results.
			continue
		}
		entries = append(entries, Entry{
			PlayerID:   play.PlayerID,
			PlayerName: play.PlayerName,
			PnLPercent: pnls[play.PlayerID],
		})
	}

	// Stable sort keeps the creation-order tie-break deterministic.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PnLPercent.GreaterThan(entries[j].PnLPercent)
	})
	for i := range entries {
		if i > 0 && entries[i].PnLPercent.Equal(entries[i-1].PnLPercent) {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// PlayerRank returns (rank, total players) for one player, or (0, total)
// when the player has no entry in the view.
func (l *Leaderboard) PlayerRank(ctx context.Context, roundID uint64, playerID string, view View) (int, int, error) {
	entries, err := l.Standings(ctx, roundID, view)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.PlayerID == playerID {
			return e.Rank, len(entries), nil
		}
	}
	return 0, len(entries), nil
}
