package service

import (
	"context"
	"time"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

// DailyTokenList builds the round candidate pool from the price cache: the
// configured allowlist in its configured order, or the top cached tokens by
// 24h volume when no allowlist is set. Tokens the cache has never seen are
// skipped, not invented.
type DailyTokenList struct {
	Repo      repository.Repository
	Addresses []string
	Limit     int
}

func (d *DailyTokenList) DailyTokens(ctx context.Context, _ time.Time) ([]models.RoundToken, error) {
	var cached []models.Token
	var err error
	if len(d.Addresses) > 0 {
		cached, err = d.Repo.ListTokensByAddresses(ctx, d.Addresses)
	} else {
		cached, err = d.Repo.ListTokensByVolume(ctx, d.Limit)
	}
	if err != nil {
		return nil, err
	}

	byAddress := make(map[string]models.Token, len(cached))
	for _, t := range cached {
		byAddress[t.Address] = t
	}

	order := d.Addresses
	if len(order) == 0 {
		order = make([]string, 0, len(cached))
		for _, t := range cached {
			order = append(order, t.Address)
		}
	}

	out := make([]models.RoundToken, 0, len(order))
	for _, addr := range order {
		t, ok := byAddress[addr]
		if !ok {
			continue
		}
		out = append(out, models.RoundToken{
			Address: t.Address,
			Symbol:  t.Symbol,
			Name:    t.Name,
			LogoURI: t.LogoURI,
		})
	}
	return out, nil
}
