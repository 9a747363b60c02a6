package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It mirrors the storage semantics the services rely on: not-found reads are
// (nil, nil), play creation enforces the (round, player) unique pair, and the
// list orderings match the real queries.
type stubRepo struct {
	tokens  map[string]models.Token
	points  []models.PricePoint
	rounds  []models.Round
	plays   []models.Play
	live    map[uint64]map[string]models.LivePnL
	results map[uint64]map[string]models.RoundResult

	nextRoundID uint64
	nextPlayID  uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		tokens:  map[string]models.Token{},
		live:    map[uint64]map[string]models.LivePnL{},
		results: map[uint64]map[string]models.RoundResult{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) UpsertToken(ctx context.Context, item *models.Token) error {
	s.tokens[item.Address] = *item
	return nil
}

func (s *stubRepo) GetToken(ctx context.Context, address string) (*models.Token, error) {
	token, ok := s.tokens[address]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (s *stubRepo) ListTokensByAddresses(ctx context.Context, addresses []string) ([]models.Token, error) {
	var out []models.Token
	for _, addr := range addresses {
		if token, ok := s.tokens[addr]; ok {
			out = append(out, token)
		}
	}
	return out, nil
}

func (s *stubRepo) ListTokensByVolume(ctx context.Context, limit int) ([]models.Token, error) {
	var out []models.Token
	for _, token := range s.tokens {
		out = append(out, token)
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := decimal.Zero, decimal.Zero
		if out[i].Volume24h != nil {
			vi = *out[i].Volume24h
		}
		if out[j].Volume24h != nil {
			vj = *out[j].Volume24h
		}
		return vi.GreaterThan(vj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) AppendPricePoints(ctx context.Context, points []models.PricePoint) error {
	for _, p := range points {
		dup := false
		for _, existing := range s.points {
			if existing.Address == p.Address && existing.Ts.Equal(p.Ts) {
				dup = true
				break
			}
		}
		if !dup {
			s.points = append(s.points, p)
		}
	}
	return nil
}

func (s *stubRepo) PriceAtOrAfter(ctx context.Context, address string, ts time.Time) (*models.PricePoint, error) {
	var best *models.PricePoint
	for i := range s.points {
		p := s.points[i]
		if p.Address != address || p.Ts.Before(ts) {
			continue
		}
		if best == nil || p.Ts.Before(best.Ts) {
			best = &s.points[i]
		}
	}
	return best, nil
}

func (s *stubRepo) PriceAtOrBefore(ctx context.Context, address string, ts time.Time, notBefore *time.Time) (*models.PricePoint, error) {
	var best *models.PricePoint
	for i := range s.points {
		p := s.points[i]
		if p.Address != address || p.Ts.After(ts) {
			continue
		}
		if notBefore != nil && p.Ts.Before(*notBefore) {
			continue
		}
		if best == nil || p.Ts.After(best.Ts) {
			best = &s.points[i]
		}
	}
	return best, nil
}

func (s *stubRepo) LatestCachedPrice(ctx context.Context, address string) (*decimal.Decimal, error) {
	token, ok := s.tokens[address]
	if !ok {
		return nil, nil
	}
	return token.Price, nil
}

func (s *stubRepo) CreateRound(ctx context.Context, item *models.Round) error {
	s.nextRoundID++
	item.ID = s.nextRoundID
	s.rounds = append(s.rounds, *item)
	return nil
}

func (s *stubRepo) GetRound(ctx context.Context, id uint64) (*models.Round, error) {
	for i := range s.rounds {
		if s.rounds[i].ID == id {
			round := s.rounds[i]
			return &round, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetActiveRound(ctx context.Context, now time.Time) (*models.Round, error) {
	var best *models.Round
	for i := range s.rounds {
		r := s.rounds[i]
		if !r.Active(now) {
			continue
		}
		if best == nil || r.StartAt.After(best.StartAt) {
			best = &s.rounds[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	round := *best
	return &round, nil
}

func (s *stubRepo) ListUnsettledEndedRounds(ctx context.Context, now time.Time) ([]models.Round, error) {
	var out []models.Round
	for _, r := range s.rounds {
		if !r.Settled && !r.EndAt.After(now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndAt.Before(out[j].EndAt) })
	return out, nil
}

func (s *stubRepo) GetLastSettledRound(ctx context.Context) (*models.Round, error) {
	var best *models.Round
	for i := range s.rounds {
		r := s.rounds[i]
		if !r.Settled {
			continue
		}
		if best == nil || r.EndAt.After(best.EndAt) {
			best = &s.rounds[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	round := *best
	return &round, nil
}

func (s *stubRepo) MarkRoundSettled(ctx context.Context, id uint64) error {
	for i := range s.rounds {
		if s.rounds[i].ID == id {
			s.rounds[i].Settled = true
		}
	}
	return nil
}

func (s *stubRepo) CreatePlay(ctx context.Context, item *models.Play) error {
	for _, p := range s.plays {
		if p.RoundID == item.RoundID && p.PlayerID == item.PlayerID {
			return repository.ErrDuplicatePlay
		}
	}
	s.nextPlayID++
	item.ID = s.nextPlayID
	s.plays = append(s.plays, *item)
	return nil
}

func (s *stubRepo) GetPlay(ctx context.Context, roundID uint64, playerID string) (*models.Play, error) {
	for i := range s.plays {
		if s.plays[i].RoundID == roundID && s.plays[i].PlayerID == playerID {
			play := s.plays[i]
			return &play, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListPlaysByRound(ctx context.Context, roundID uint64) ([]models.Play, error) {
	var out []models.Play
	for _, p := range s.plays {
		if p.RoundID == roundID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *stubRepo) ListKnownRecipients(ctx context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, p := range s.plays {
		if p.ChatID == nil || seen[*p.ChatID] {
			continue
		}
		seen[*p.ChatID] = true
		out = append(out, *p.ChatID)
	}
	return out, nil
}

func (s *stubRepo) UpsertLivePnL(ctx context.Context, item *models.LivePnL) error {
	byPlayer := s.live[item.RoundID]
	if byPlayer == nil {
		byPlayer = map[string]models.LivePnL{}
		s.live[item.RoundID] = byPlayer
	}
	byPlayer[item.PlayerID] = *item
	return nil
}

func (s *stubRepo) GetLivePnL(ctx context.Context, roundID uint64, playerID string) (*models.LivePnL, error) {
	row, ok := s.live[roundID][playerID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *stubRepo) ListLivePnLByRound(ctx context.Context, roundID uint64) ([]models.LivePnL, error) {
	var out []models.LivePnL
	for _, row := range s.live[roundID] {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (s *stubRepo) DeleteLivePnLByRound(ctx context.Context, roundID uint64) error {
	delete(s.live, roundID)
	return nil
}

func (s *stubRepo) UpsertRoundResult(ctx context.Context, item *models.RoundResult) error {
	byPlayer := s.results[item.RoundID]
	if byPlayer == nil {
		byPlayer = map[string]models.RoundResult{}
		s.results[item.RoundID] = byPlayer
	}
	byPlayer[item.PlayerID] = *item
	return nil
}

func (s *stubRepo) GetRoundResult(ctx context.Context, roundID uint64, playerID string) (*models.RoundResult, error) {
	row, ok := s.results[roundID][playerID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *stubRepo) ListRoundResultsByRound(ctx context.Context, roundID uint64) ([]models.RoundResult, error) {
	var out []models.RoundResult
	for _, row := range s.results[roundID] {
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

var _ repository.Repository = (*stubRepo)(nil)
