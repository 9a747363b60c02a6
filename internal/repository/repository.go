package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tokenarena/internal/models"
)

// ErrDuplicatePlay is returned by CreatePlay when a play already exists for
// the (round, player) pair. The check is the storage-level unique index, not
// an application-level read, so concurrent submissions collapse to one row.
var ErrDuplicatePlay = errors.New("play already exists for round and player")

// PriceCache is the access layer over token_cache and token_history.
// Not-found reads return (nil, nil).
type PriceCache interface {
	UpsertToken(ctx context.Context, item *models.Token) error
	GetToken(ctx context.Context, address string) (*models.Token, error)
	ListTokensByAddresses(ctx context.Context, addresses []string) ([]models.Token, error)
	ListTokensByVolume(ctx context.Context, limit int) ([]models.Token, error)

	// AppendPricePoints inserts points, ignoring (address, ts) duplicates.
	AppendPricePoints(ctx context.Context, points []models.PricePoint) error
	PriceAtOrAfter(ctx context.Context, address string, ts time.Time) (*models.PricePoint, error)
	// PriceAtOrBefore returns the nearest point at or before ts. When notBefore
	// is non-nil, points older than it are ignored.
	PriceAtOrBefore(ctx context.Context, address string, ts time.Time, notBefore *time.Time) (*models.PricePoint, error)
	LatestCachedPrice(ctx context.Context, address string) (*decimal.Decimal, error)
}

// Repository is the single storage handle passed to services. It is
// constructed once at startup and owns no business logic.
type Repository interface {
	PriceCache

	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Rounds.
	CreateRound(ctx context.Context, item *models.Round) error
	GetRound(ctx context.Context, id uint64) (*models.Round, error)
	GetActiveRound(ctx context.Context, now time.Time) (*models.Round, error)
	// ListUnsettledEndedRounds returns rounds with end <= now and settled =
	// false, oldest-ending first.
	ListUnsettledEndedRounds(ctx context.Context, now time.Time) ([]models.Round, error)
	GetLastSettledRound(ctx context.Context) (*models.Round, error)
	MarkRoundSettled(ctx context.Context, id uint64) error

	// Plays.
	CreatePlay(ctx context.Context, item *models.Play) error
	GetPlay(ctx context.Context, roundID uint64, playerID string) (*models.Play, error)
	// ListPlaysByRound returns plays in creation order (created_at, then id);
	// the leaderboard tie-break depends on this ordering.
	ListPlaysByRound(ctx context.Context, roundID uint64) ([]models.Play, error)
	ListKnownRecipients(ctx context.Context) ([]int64, error)

	// Live view.
	UpsertLivePnL(ctx context.Context, item *models.LivePnL) error
	GetLivePnL(ctx context.Context, roundID uint64, playerID string) (*models.LivePnL, error)
	ListLivePnLByRound(ctx context.Context, roundID uint64) ([]models.LivePnL, error)
	DeleteLivePnLByRound(ctx context.Context, roundID uint64) error

	// Final results.
	UpsertRoundResult(ctx context.Context, item *models.RoundResult) error
	GetRoundResult(ctx context.Context, roundID uint64, playerID string) (*models.RoundResult, error)
	ListRoundResultsByRound(ctx context.Context, roundID uint64) ([]models.RoundResult, error)
}
