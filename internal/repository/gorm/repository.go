package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokenarena/internal/models"
	"tokenarena/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- price cache -------------------------------------------------------------

func (s *Store) UpsertToken(ctx context.Context, item *models.Token) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Address) == "" {
		return nil
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol",
			"name",
			"logo_uri",
			"price",
			"market_cap",
			"liquidity",
			"volume24h",
			"price_change24h_pct",
			"holders",
			"top10_holder_pct",
			"launched_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetToken(ctx context.Context, address string) (*models.Token, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Token
	err := s.db.WithContext(ctx).First(&item, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTokensByAddresses(ctx context.Context, addresses []string) ([]models.Token, error) {
	if s == nil || s.db == nil || len(addresses) == 0 {
		return nil, nil
	}
	var items []models.Token
	if err := s.db.WithContext(ctx).Where("address IN ?", addresses).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTokensByVolume(ctx context.Context, limit int) ([]models.Token, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Token
	if err := s.db.WithContext(ctx).
		Order("volume24h desc nulls last").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AppendPricePoints(ctx context.Context, points []models.PricePoint) error {
	if s == nil || s.db == nil || len(points) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}, {Name: "ts"}},
		DoNothing: true,
	}).Create(&points).Error
}

func (s *Store) PriceAtOrAfter(ctx context.Context, address string, ts time.Time) (*models.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PricePoint
	err := s.db.WithContext(ctx).
		Where("address = ?", address).
		Where("ts >= ?", ts).
		Order("ts asc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) PriceAtOrBefore(ctx context.Context, address string, ts time.Time, notBefore *time.Time) (*models.PricePoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Where("address = ?", address).
		Where("ts <= ?", ts)
	if notBefore != nil {
		query = query.Where("ts >= ?", *notBefore)
	}
	var item models.PricePoint
	err := query.Order("ts desc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestCachedPrice(ctx context.Context, address string) (*decimal.Decimal, error) {
	token, err := s.GetToken(ctx, address)
	if err != nil || token == nil {
		return nil, err
	}
	return token.Price, nil
}

// --- rounds ------------------------------------------------------------------

func (s *Store) CreateRound(ctx context.Context, item *models.Round) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetRound(ctx context.Context, id uint64) (*models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Round
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveRound(ctx context.Context, now time.Time) (*models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Round
	err := s.db.WithContext(ctx).
		Where("start_at <= ?", now).
		Where("end_at > ?", now).
		Order("start_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListUnsettledEndedRounds(ctx context.Context, now time.Time) ([]models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Round
	if err := s.db.WithContext(ctx).
		Where("end_at <= ?", now).
		Where("settled = ?", false).
		Order("end_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetLastSettledRound(ctx context.Context) (*models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Round
	err := s.db.WithContext(ctx).
		Where("settled = ?", true).
		Order("end_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) MarkRoundSettled(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ?", id).
		Update("settled", true).Error
}

// --- plays -------------------------------------------------------------------

func (s *Store) CreatePlay(ctx context.Context, item *models.Play) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	// DoNothing plus a RowsAffected check turns the unique-index race into a
	// deterministic duplicate error without parsing driver-specific pg errors.
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "player_id"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrDuplicatePlay
	}
	return nil
}

func (s *Store) GetPlay(ctx context.Context, roundID uint64, playerID string) (*models.Play, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Play
	err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("player_id = ?", playerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPlaysByRound(ctx context.Context, roundID uint64) ([]models.Play, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Play
	if err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListKnownRecipients(ctx context.Context) ([]int64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []int64
	if err := s.db.WithContext(ctx).
		Model(&models.Play{}).
		Where("chat_id IS NOT NULL").
		Distinct("chat_id").
		Pluck("chat_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// --- live view ---------------------------------------------------------------

func (s *Store) UpsertLivePnL(ctx context.Context, item *models.LivePnL) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pnl_percent",
			"detail",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetLivePnL(ctx context.Context, roundID uint64, playerID string) (*models.LivePnL, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.LivePnL
	err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("player_id = ?", playerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListLivePnLByRound(ctx context.Context, roundID uint64) ([]models.LivePnL, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LivePnL
	if err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteLivePnLByRound(ctx context.Context, roundID uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Delete(&models.LivePnL{}).Error
}

// --- final results -----------------------------------------------------------

func (s *Store) UpsertRoundResult(ctx context.Context, item *models.RoundResult) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"player_name",
			"pnl_percent",
			"picks",
			"settled_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetRoundResult(ctx context.Context, roundID uint64, playerID string) (*models.RoundResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.RoundResult
	err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("player_id = ?", playerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListRoundResultsByRound(ctx context.Context, roundID uint64) ([]models.RoundResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.RoundResult
	if err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
