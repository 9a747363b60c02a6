package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"tokenarena/internal/models"
)

func openTestRound(t *testing.T, repo *stubRepo, now time.Time) *models.Round {
	t.Helper()
	start, end := RoundWindow(now, time.Hour)
	round := &models.Round{StartAt: start, EndAt: end, Tokens: datatypes.JSON(`[]`)}
	if err := repo.CreateRound(context.Background(), round); err != nil {
		t.Fatalf("create round: %v", err)
	}
	return round
}

func TestSubmitNoActiveRound(t *testing.T) {
	repo := newStubRepo()
	plays := &Plays{Repo: repo, MaxPicks: 6}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := plays.Submit(context.Background(), now, SubmitParams{
		PlayerID: "p1",
		Picks:    []models.Pick{{Address: "A", Direction: models.DirectionLong}},
	})
	if !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("err = %v, want ErrNoActiveRound", err)
	}
}

func TestSubmitRejectsDoublePlay(t *testing.T) {
	repo := newStubRepo()
	plays := &Plays{Repo: repo, MaxPicks: 6}
	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	openTestRound(t, repo, now)

	params := SubmitParams{
		PlayerID: "p1",
		Picks:    []models.Pick{{Address: "A", Direction: models.DirectionLong}},
	}
	if _, err := plays.Submit(context.Background(), now, params); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := plays.Submit(context.Background(), now.Add(time.Minute), params)
	if !errors.Is(err, ErrAlreadyPlayed) {
		t.Fatalf("err = %v, want ErrAlreadyPlayed", err)
	}
}

func TestSubmitTruncatesExcessPicks(t *testing.T) {
	repo := newStubRepo()
	plays := &Plays{Repo: repo, MaxPicks: 2}
	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	openTestRound(t, repo, now)

	// The third pick has a bad direction but sits past the cap, so it is
	// dropped before validation ever sees it.
	play, err := plays.Submit(context.Background(), now, SubmitParams{
		PlayerID: "p1",
		Picks: []models.Pick{
			{Address: "A", Direction: models.DirectionLong},
			{Address: "B", Direction: models.DirectionShort},
			{Address: "C", Direction: "sideways"},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var stored []models.Pick
	if err := json.Unmarshal(play.Picks, &stored); err != nil {
		t.Fatalf("unmarshal picks: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored picks = %d, want 2", len(stored))
	}
	if stored[0].Address != "A" || stored[1].Address != "B" {
		t.Fatalf("stored picks = %+v, want first two kept in order", stored)
	}
}

func TestSubmitValidation(t *testing.T) {
	repo := newStubRepo()
	plays := &Plays{Repo: repo, MaxPicks: 6}
	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	openTestRound(t, repo, now)
	ctx := context.Background()

	tests := []struct {
		name   string
		params SubmitParams
	}{
		{"empty player id", SubmitParams{
			Picks: []models.Pick{{Address: "A", Direction: models.DirectionLong}},
		}},
		{"no picks", SubmitParams{PlayerID: "p1"}},
		{"missing address", SubmitParams{
			PlayerID: "p1",
			Picks:    []models.Pick{{Direction: models.DirectionLong}},
		}},
		{"bad direction", SubmitParams{
			PlayerID: "p1",
			Picks:    []models.Pick{{Address: "A", Direction: "up"}},
		}},
	}
	for _, tt := range tests {
		if _, err := plays.Submit(ctx, now, tt.params); !errors.Is(err, ErrInvalidPick) {
			t.Fatalf("%s: err = %v, want ErrInvalidPick", tt.name, err)
		}
	}
}

func TestSubmitNormalizesDirectionCase(t *testing.T) {
	repo := newStubRepo()
	plays := &Plays{Repo: repo, MaxPicks: 6}
	now := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	openTestRound(t, repo, now)

	play, err := plays.Submit(context.Background(), now, SubmitParams{
		PlayerID: "p1",
		Picks:    []models.Pick{{Address: "A", Direction: " LONG "}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var stored []models.Pick
	if err := json.Unmarshal(play.Picks, &stored); err != nil {
		t.Fatalf("unmarshal picks: %v", err)
	}
	if stored[0].Direction != models.DirectionLong {
		t.Fatalf("direction = %q, want normalized long", stored[0].Direction)
	}
}
