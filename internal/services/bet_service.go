package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binarybets/internal/models"
	"binarybets/internal/odds"
	"binarybets/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlaceBetRequest is a wager as submitted by a user
type PlaceBetRequest struct {
	UserID       uint
	MarketID     uint
	Selection    string
	Amount       decimal.Decimal
	ExpectedOdds *decimal.Decimal
}

// BetService places and cancels bets against the virtual balance
type BetService struct {
	repo           *repository.Repository
	refundFraction decimal.Decimal
	log            *zap.Logger
	now            func() time.Time
}

func NewBetService(repo *repository.Repository, refundFraction decimal.Decimal, log *zap.Logger) *BetService {
	return &BetService{
		repo:           repo,
		refundFraction: refundFraction,
		log:            log.Named("bets"),
		now:            time.Now,
	}
}

// PlaceBet debits the stake and records a pending bet whose odds and potential
// payout are frozen at the market's current odds
func (s *BetService) PlaceBet(ctx context.Context, req PlaceBetRequest) (*models.Bet, error) {
	stake := req.Amount.Round(odds.Places)
	if err := odds.ValidateStake(stake); err != nil {
		return nil, err
	}

	var bet *models.Bet
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		market, err := tx.GetMarketByID(ctx, req.MarketID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMarketNotFound
		}
		if err != nil {
			return err
		}
		if market.Resolved || !s.now().Before(market.Deadline) {
			return ErrMarketClosed
		}

		selection, liveOdds, err := quote(market, req.Selection)
		if err != nil {
			return err
		}
		if req.ExpectedOdds != nil && !req.ExpectedOdds.Equal(liveOdds) {
			return ErrOddsChanged
		}
		if err := odds.ValidateOdds(liveOdds); err != nil {
			return err
		}

		user, err := tx.GetUserForUpdate(ctx, req.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		pending, err := tx.HasPendingBet(ctx, user.ID, market.ID)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicatePendingBet
		}
		if user.Balance.LessThan(stake) {
			return ErrInsufficientBalance
		}

		bet = &models.Bet{
			UserID:          user.ID,
			MarketID:        market.ID,
			Amount:          stake,
			Odds:            liveOdds,
			PotentialPayout: odds.PotentialPayout(stake, liveOdds),
			RefundAmount:    decimal.Zero,
			Status:          models.BetStatusPending,
		}
		if selection.optionID != nil {
			bet.OptionID = selection.optionID
		} else {
			choice := selection.choice
			bet.Choice = &choice
		}
		if err := tx.CreateBet(ctx, bet); err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}

		user.Balance = user.Balance.Sub(stake)
		if err := tx.SaveUserLedger(ctx, user); err != nil {
			return fmt.Errorf("debit user: %w", err)
		}

		betID, marketID := bet.ID, market.ID
		return tx.CreateTransaction(ctx, &models.Transaction{
			UserID:      user.ID,
			BetID:       &betID,
			MarketID:    &marketID,
			Type:        models.TransactionTypeBetPlaced,
			Amount:      stake.Neg(),
			Description: fmt.Sprintf("Bet on %s at %s", selection.label, liveOdds.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bet placed",
		zap.Uint("bet_id", bet.ID),
		zap.Uint("user_id", bet.UserID),
		zap.Uint("market_id", bet.MarketID),
		zap.String("amount", bet.Amount.StringFixed(2)),
		zap.String("odds", bet.Odds.StringFixed(2)))
	return bet, nil
}

// CancelBet withdraws a pending bet and refunds the stake minus the cancellation fee
func (s *BetService) CancelBet(ctx context.Context, userID, betID uint) (*models.Bet, error) {
	var bet *models.Bet
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		bet, err = tx.GetBetForUpdate(ctx, betID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBetNotFound
		}
		if err != nil {
			return err
		}
		// someone else's bet is reported as missing
		if bet.UserID != userID {
			return ErrBetNotFound
		}
		if bet.IsTerminal() {
			return ErrBetNotPending
		}

		market, err := tx.GetMarketByID(ctx, bet.MarketID)
		if err != nil {
			return err
		}
		if market.Resolved {
			return ErrMarketClosed
		}

		user, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		bet.RefundAmount = odds.Refund(bet.Amount, s.refundFraction)
		if err := tx.CancelBet(ctx, bet); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBetNotPending
			}
			return err
		}

		user.Balance = user.Balance.Add(bet.RefundAmount)
		if err := tx.SaveUserLedger(ctx, user); err != nil {
			return fmt.Errorf("refund user: %w", err)
		}

		id, marketID := bet.ID, bet.MarketID
		return tx.CreateTransaction(ctx, &models.Transaction{
			UserID:      userID,
			BetID:       &id,
			MarketID:    &marketID,
			Type:        models.TransactionTypeBetRefund,
			Amount:      bet.RefundAmount,
			Description: fmt.Sprintf("Cancelled bet #%d", bet.ID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bet cancelled",
		zap.Uint("bet_id", bet.ID),
		zap.Uint("user_id", userID),
		zap.String("refund", bet.RefundAmount.StringFixed(2)))
	return bet, nil
}

// quote resolves a selection against the market and returns its live odds
func quote(market *models.Market, selection string) (winningSelection, decimal.Decimal, error) {
	sel, err := matchSelection(market, selection)
	if err != nil {
		return winningSelection{}, decimal.Zero, err
	}
	if sel.optionID == nil {
		if sel.choice == models.ChoiceYes {
			return sel, market.YesOdds, nil
		}
		return sel, market.NoOdds, nil
	}
	for _, opt := range market.Options {
		if opt.ID == *sel.optionID {
			return sel, opt.Odds, nil
		}
	}
	return winningSelection{}, decimal.Zero, ErrInvalidSelection
}
