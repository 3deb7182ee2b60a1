package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"binarybets/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// serializationRetries bounds how often a transaction is replayed after a
// Postgres serialization failure (SQLSTATE 40001).
const serializationRetries = 3

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside one database transaction. Every exit path either
// commits or rolls back. On Postgres the transaction is serializable and is
// replayed when the server reports a serialization failure.
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	var opts []*sql.TxOptions
	if r.isPostgres() {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	var err error
	for attempt := 0; attempt < serializationRetries; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&Repository{db: tx})
		}, opts...)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (r *Repository) isPostgres() bool {
	return r.db.Dialector.Name() == "postgres"
}

// forUpdate adds SELECT ... FOR UPDATE where the dialect supports row locks
func (r *Repository) forUpdate(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.isPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func isSerializationFailure(err error) bool {
	var state interface{ SQLState() string }
	return errors.As(err, &state) && state.SQLState() == "40001"
}

// ============================================================================
// Users
// ============================================================================

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate retrieves a user and locks the row for the rest of the transaction
func (r *Repository) GetUserForUpdate(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.forUpdate(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveUserLedger writes the monetary fields of a user
func (r *Repository) SaveUserLedger(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"balance":        user.Balance,
			"total_winnings": user.TotalWinnings,
			"bets_won":       user.BetsWon,
			"updated_at":     time.Now(),
		}).Error
}

// ============================================================================
// Markets
// ============================================================================

// CreateMarket creates a market together with its options
func (r *Repository) CreateMarket(ctx context.Context, market *models.Market) error {
	return r.db.WithContext(ctx).Create(market).Error
}

// GetMarketByID retrieves a market with its options in display order
func (r *Repository) GetMarketByID(ctx context.Context, marketID uint) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).
		Where("id = ?", marketID).
		First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// UpdateOptionOdds changes the live odds of a multi-choice option. Existing bets
// keep the odds they were placed at.
func (r *Repository) UpdateOptionOdds(ctx context.Context, optionID uint, odds decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.MarketOption{}).
		Where("id = ?", optionID).
		Update("odds", odds).Error
}

// UpdateBinaryOdds changes the live Yes/No odds of a binary market
func (r *Repository) UpdateBinaryOdds(ctx context.Context, marketID uint, yes, no decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", marketID).
		Updates(map[string]interface{}{"yes_odds": yes, "no_odds": no}).Error
}

// SetAIResolution turns scheduled AI resolution on or off for a market
func (r *Repository) SetAIResolution(ctx context.Context, marketID uint, enabled bool) error {
	return r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ?", marketID).
		Update("ai_resolution_enabled", enabled).Error
}

// ClaimResolution flips resolved=false to true for the market in a single
// conditional UPDATE. It returns false when the market was already resolved.
func (r *Repository) ClaimResolution(
	ctx context.Context,
	marketID uint,
	winningLabel string,
	winningOptionID *uint,
	resolvedBy string,
	resolvedAt time.Time,
) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND resolved = ?", marketID, false).
		Updates(map[string]interface{}{
			"resolved":          true,
			"winning_option":    winningLabel,
			"winning_option_id": winningOptionID,
			"resolved_by":       resolvedBy,
			"resolved_at":       resolvedAt,
			"updated_at":        resolvedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListResolutionCandidates returns unresolved markets with AI resolution enabled.
// A non-nil deadlineBefore restricts the list to markets whose deadline has passed.
func (r *Repository) ListResolutionCandidates(
	ctx context.Context,
	deadlineBefore *time.Time,
	limit int,
) ([]*models.Market, error) {
	q := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).
		Where("resolved = ? AND ai_resolution_enabled = ?", false, true)
	if deadlineBefore != nil {
		q = q.Where("deadline < ?", *deadlineBefore)
	}

	var markets []*models.Market
	err := q.Order("deadline ASC, id ASC").Limit(limit).Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// ============================================================================
// Bets
// ============================================================================

// CreateBet inserts a new bet
func (r *Repository) CreateBet(ctx context.Context, bet *models.Bet) error {
	return r.db.WithContext(ctx).Create(bet).Error
}

// GetBetForUpdate retrieves a bet and locks the row
func (r *Repository) GetBetForUpdate(ctx context.Context, betID uint) (*models.Bet, error) {
	var bet models.Bet
	err := r.forUpdate(ctx).Where("id = ?", betID).First(&bet).Error
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// HasPendingBet reports whether the user already holds a pending bet on the market
func (r *Repository) HasPendingBet(ctx context.Context, userID, marketID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("user_id = ? AND market_id = ? AND status = ?", userID, marketID, models.BetStatusPending).
		Count(&count).Error
	return count > 0, err
}

// GetPendingBetsForUpdate locks and returns every pending bet on a market
func (r *Repository) GetPendingBetsForUpdate(ctx context.Context, marketID uint) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := r.forUpdate(ctx).
		Where("market_id = ? AND status = ?", marketID, models.BetStatusPending).
		Order("id ASC").
		Find(&bets).Error
	if err != nil {
		return nil, err
	}
	return bets, nil
}

// MarkBetsSettled moves pending bets to a terminal status. Bets that are no longer
// pending are left untouched.
func (r *Repository) MarkBetsSettled(ctx context.Context, betIDs []uint, status models.BetStatus, settledAt time.Time) error {
	if len(betIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("id IN ? AND status = ?", betIDs, models.BetStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"settled_at": settledAt,
			"updated_at": settledAt,
		}).Error
}

// CancelBet marks a pending bet cancelled and records the refund
func (r *Repository) CancelBet(ctx context.Context, bet *models.Bet) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Bet{}).
		Where("id = ? AND status = ?", bet.ID, models.BetStatusPending).
		Updates(map[string]interface{}{
			"status":        models.BetStatusCancelled,
			"refund_amount": bet.RefundAmount,
			"settled_at":    now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	bet.Status = models.BetStatusCancelled
	bet.SettledAt = &now
	return nil
}

// ============================================================================
// Ledger, audit and notifications
// ============================================================================

// CreateTransaction appends a ledger entry
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetUserTransactions returns a user's ledger entries, newest first
func (r *Repository) GetUserTransactions(ctx context.Context, userID uint) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// CreateResolverLog appends an audit row
func (r *Repository) CreateResolverLog(ctx context.Context, entry *models.ResolverLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetResolverLogs returns the audit rows for a market, newest first
func (r *Repository) GetResolverLogs(ctx context.Context, marketID uint, limit int) ([]*models.ResolverLog, error) {
	var logs []*models.ResolverLog
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CreateNotifications inserts notifications in one batch
func (r *Repository) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}
