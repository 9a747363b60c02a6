package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"tokenarena/internal/models"
)

func seedRoundWithResults(t *testing.T, repo *stubRepo, pnls map[string]string) *models.Round {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	round := &models.Round{StartAt: start, EndAt: start.Add(time.Hour), Tokens: datatypes.JSON(`[]`)}
	if err := repo.CreateRound(ctx, round); err != nil {
		t.Fatalf("create round: %v", err)
	}
	// Plays are created in player-id order so the tie-break is predictable.
	players := []string{"p1", "p2", "p3", "p4"}
	offset := 0
	for _, id := range players {
		pnl, ok := pnls[id]
		if !ok {
			continue
		}
		play := &models.Play{
			RoundID:    round.ID,
			PlayerID:   id,
			PlayerName: "name-" + id,
			Picks:      datatypes.JSON(`[]`),
			CreatedAt:  start.Add(time.Duration(offset) * time.Second),
		}
		offset++
		if err := repo.CreatePlay(ctx, play); err != nil {
			t.Fatalf("create play: %v", err)
		}
		if err := repo.UpsertRoundResult(ctx, &models.RoundResult{
			RoundID:    round.ID,
			PlayerID:   id,
			PlayerName: play.PlayerName,
			PnLPercent: dec(pnl),
			Picks:      datatypes.JSON(`[]`),
			SettledAt:  round.EndAt,
		}); err != nil {
			t.Fatalf("upsert result: %v", err)
		}
	}
	return round
}

func TestStandingsCompetitionRanking(t *testing.T) {
	repo := newStubRepo()
	round := seedRoundWithResults(t, repo, map[string]string{
		"p1": "10",
		"p2": "10",
		"p3": "5",
	})
	board := &Leaderboard{Repo: repo}

	entries, err := board.Standings(context.Background(), round.ID, ViewFinal)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	wantRanks := []int{1, 1, 3}
	for i, want := range wantRanks {
		if entries[i].Rank != want {
			t.Fatalf("entry %d rank = %d, want %d", i, entries[i].Rank, want)
		}
	}
	if entries[0].PlayerID != "p1" || entries[1].PlayerID != "p2" {
		t.Fatalf("tie order = %s, %s; want creation order p1, p2", entries[0].PlayerID, entries[1].PlayerID)
	}
	if entries[2].PlayerID != "p3" {
		t.Fatalf("third = %s, want p3", entries[2].PlayerID)
	}
}

func TestStandingsDeterministicAcrossCalls(t *testing.T) {
	repo := newStubRepo()
	round := seedRoundWithResults(t, repo, map[string]string{
		"p1": "3",
		"p2": "3",
		"p3": "3",
		"p4": "-1",
	})
	board := &Leaderboard{Repo: repo}
	ctx := context.Background()

	first, err := board.Standings(ctx, round.ID, ViewFinal)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := board.Standings(ctx, round.ID, ViewFinal)
		if err != nil {
			t.Fatalf("standings: %v", err)
		}
		for j := range first {
			if first[j].PlayerID != again[j].PlayerID || first[j].Rank != again[j].Rank {
				t.Fatalf("ordering changed between calls at %d: %+v vs %+v", j, first[j], again[j])
			}
		}
	}
}

func TestPlayerRankAgreesWithStandings(t *testing.T) {
	repo := newStubRepo()
	round := seedRoundWithResults(t, repo, map[string]string{
		"p1": "10",
		"p2": "10",
		"p3": "5",
	})
	board := &Leaderboard{Repo: repo}
	ctx := context.Background()

	entries, err := board.Standings(ctx, round.ID, ViewFinal)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	for _, e := range entries {
		rank, total, err := board.PlayerRank(ctx, round.ID, e.PlayerID, ViewFinal)
		if err != nil {
			t.Fatalf("player rank: %v", err)
		}
		if rank != e.Rank || total != len(entries) {
			t.Fatalf("%s: rank %d/%d, standings say %d/%d", e.PlayerID, rank, total, e.Rank, len(entries))
		}
	}

	rank, total, err := board.PlayerRank(ctx, round.ID, "nobody", ViewFinal)
	if err != nil {
		t.Fatalf("player rank: %v", err)
	}
	if rank != 0 || total != len(entries) {
		t.Fatalf("unknown player = %d/%d, want 0/%d", rank, total, len(entries))
	}
}

func TestFinalStandingsSkipUnwrittenResults(t *testing.T) {
	repo := newStubRepo()
	round := seedRoundWithResults(t, repo, map[string]string{"p1": "10"})
	ctx := context.Background()

	// A play with no written result stays off the final board.
	play := &models.Play{
		RoundID:   round.ID,
		PlayerID:  "p9",
		Picks:     datatypes.JSON(`[]`),
		CreatedAt: round.StartAt,
	}
	if err := repo.CreatePlay(ctx, play); err != nil {
		t.Fatalf("create play: %v", err)
	}

	board := &Leaderboard{Repo: repo}
	entries, err := board.Standings(ctx, round.ID, ViewFinal)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerID != "p1" {
		t.Fatalf("entries = %+v, want only p1", entries)
	}
}
