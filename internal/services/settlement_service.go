package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"binarybets/internal/metrics"
	"binarybets/internal/models"
	"binarybets/internal/odds"
	"binarybets/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResolvedByAdmin tags settlements triggered through the admin API
const ResolvedByAdmin = "admin"

const defaultHookTimeout = 5 * time.Second

// SettlementSummary is returned to the caller of a resolution
type SettlementSummary struct {
	MarketID      uint            `json:"marketId"`
	WinningOption string          `json:"winningOption"`
	WinnersCount  int             `json:"winnersCount"`
	LosersCount   int             `json:"losersCount"`
	TotalPayout   decimal.Decimal `json:"totalPayout"`
}

// SettledBet describes one bet's fate, handed to post-commit hooks
type SettledBet struct {
	BetID    uint
	UserID   uint
	Stake    decimal.Decimal
	Payout   decimal.Decimal
	Status   models.BetStatus
	Question string
}

// SettlementResult is everything hooks need to know once the transaction committed
type SettlementResult struct {
	Summary    SettlementSummary
	Market     models.Market
	ResolvedBy string
	ResolvedAt time.Time
	Bets       []SettledBet
}

// SettlementService closes markets and pays winners
type SettlementService struct {
	repo    *repository.Repository
	hooks       []SettlementHook
	hookTimeout time.Duration
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewSettlementService(
	repo *repository.Repository,
	m *metrics.Metrics,
	log *zap.Logger,
	hooks ...SettlementHook,
) *SettlementService {
	return &SettlementService{
		repo:        repo,
		hooks:       hooks,
		hookTimeout: defaultHookTimeout,
		metrics:     m,
		log:         log.Named("settlement"),
		now:         time.Now,
	}
}

// AddHook registers a post-commit hook
func (s *SettlementService) AddHook(h SettlementHook) {
	s.hooks = append(s.hooks, h)
}

// ResolveMarket settles a market on behalf of an admin
func (s *SettlementService) ResolveMarket(ctx context.Context, marketID uint, winningSelection string) (*SettlementSummary, error) {
	return s.Settle(ctx, marketID, winningSelection, ResolvedByAdmin)
}

// Settle resolves a market with the winning selection in one transaction:
// the resolved flag is claimed, matching pending bets are paid their frozen
// potential payout, the rest are marked lost. Nothing is written unless all of
// it commits. Hooks run afterwards and cannot undo the settlement.
func (s *SettlementService) Settle(
	ctx context.Context,
	marketID uint,
	winningSelection string,
	resolvedBy string,
) (*SettlementSummary, error) {
	market, err := s.repo.GetMarketByID(ctx, marketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMarketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load market: %v", ErrSettlementFailed, err)
	}
	if market.Resolved {
		return nil, ErrAlreadyResolved
	}

	winner, err := matchSelection(market, winningSelection)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &SettlementResult{
		Market:     *market,
		ResolvedBy: resolvedBy,
		ResolvedAt: now,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		claimed, err := tx.ClaimResolution(ctx, market.ID, winner.label, winner.optionID, resolvedBy, now)
		if err != nil {
			return fmt.Errorf("claim resolution: %w", err)
		}
		if !claimed {
			return ErrAlreadyResolved
		}

		bets, err := tx.GetPendingBetsForUpdate(ctx, market.ID)
		if err != nil {
			return fmt.Errorf("load pending bets: %w", err)
		}

		summary := SettlementSummary{
			MarketID:      market.ID,
			WinningOption: winner.label,
			TotalPayout:   decimal.Zero,
		}
		settled := make([]SettledBet, 0, len(bets))
		var wonIDs, lostIDs []uint

		for _, bet := range bets {
			if !winner.matches(bet) {
				lostIDs = append(lostIDs, bet.ID)
				settled = append(settled, SettledBet{
					BetID: bet.ID, UserID: bet.UserID, Stake: bet.Amount,
					Payout: decimal.Zero, Status: models.BetStatusLost, Question: market.Question,
				})
				continue
			}

			payout := bet.PotentialPayout
			user, err := tx.GetUserForUpdate(ctx, bet.UserID)
			if err != nil {
				return fmt.Errorf("load user %d: %w", bet.UserID, err)
			}
			user.Balance = user.Balance.Add(payout)
			user.TotalWinnings = user.TotalWinnings.Add(odds.Profit(payout, bet.Amount))
			user.BetsWon++
			if err := tx.SaveUserLedger(ctx, user); err != nil {
				return fmt.Errorf("credit user %d: %w", user.ID, err)
			}

			betID, mID := bet.ID, market.ID
			if err := tx.CreateTransaction(ctx, &models.Transaction{
				UserID:      user.ID,
				BetID:       &betID,
				MarketID:    &mID,
				Type:        models.TransactionTypeBetWon,
				Amount:      payout,
				Description: fmt.Sprintf("Won bet #%d on market #%d", bet.ID, market.ID),
			}); err != nil {
				return fmt.Errorf("record payout: %w", err)
			}

			wonIDs = append(wonIDs, bet.ID)
			summary.TotalPayout = summary.TotalPayout.Add(payout)
			settled = append(settled, SettledBet{
				BetID: bet.ID, UserID: bet.UserID, Stake: bet.Amount,
				Payout: payout, Status: models.BetStatusWon, Question: market.Question,
			})
		}

		if err := tx.MarkBetsSettled(ctx, wonIDs, models.BetStatusWon, now); err != nil {
			return fmt.Errorf("mark winners: %w", err)
		}
		if err := tx.MarkBetsSettled(ctx, lostIDs, models.BetStatusLost, now); err != nil {
			return fmt.Errorf("mark losers: %w", err)
		}

		summary.WinnersCount = len(wonIDs)
		summary.LosersCount = len(lostIDs)
		result.Summary = summary
		result.Bets = settled
		return nil
	})
	if errors.Is(err, ErrAlreadyResolved) {
		s.metrics.ObserveSettlement(resolvedBy, "already_resolved", decimal.Zero)
		return nil, ErrAlreadyResolved
	}
	if err != nil {
		s.metrics.ObserveSettlement(resolvedBy, "failed", decimal.Zero)
		s.log.Error("settlement rolled back",
			zap.Uint("market_id", marketID),
			zap.String("resolved_by", resolvedBy),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	s.metrics.ObserveSettlement(resolvedBy, "resolved", result.Summary.TotalPayout)
	s.log.Info("market settled",
		zap.Uint("market_id", marketID),
		zap.String("winner", winner.label),
		zap.String("resolved_by", resolvedBy),
		zap.Int("winners", result.Summary.WinnersCount),
		zap.Int("losers", result.Summary.LosersCount),
		zap.String("total_payout", result.Summary.TotalPayout.StringFixed(2)))

	s.runHooks(ctx, result)

	summary := result.Summary
	return &summary, nil
}

// runHooks executes each post-commit hook in isolation. The settlement has
// committed, so hooks are detached from the caller's cancellation and each one
// gets its own deadline.
func (s *SettlementService) runHooks(ctx context.Context, result *SettlementResult) {
	base := context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		func() {
			hookCtx, cancel := context.WithTimeout(base, s.hookTimeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("settlement hook panicked",
						zap.String("hook", h.Name()),
						zap.Uint("market_id", result.Summary.MarketID),
						zap.Any("panic", r))
				}
			}()
			if err := h.AfterSettlement(hookCtx, *result); err != nil {
				s.log.Warn("settlement hook failed",
					zap.String("hook", h.Name()),
					zap.Uint("market_id", result.Summary.MarketID),
					zap.Error(err))
			}
		}()
	}
}

type winningSelection struct {
	label    string
	choice   string // binary markets
	optionID *uint  // multi-choice markets
}

func (w winningSelection) matches(bet *models.Bet) bool {
	if w.optionID != nil {
		return bet.OptionID != nil && *bet.OptionID == *w.optionID
	}
	return bet.Choice != nil && *bet.Choice == w.choice
}

// matchSelection maps a caller-supplied selection onto the market's options.
// Binary markets accept Yes/No in any case; multi-choice markets accept an
// option label (exact, then case-insensitive) or an option ID.
func matchSelection(market *models.Market, selection string) (winningSelection, error) {
	selection = strings.TrimSpace(selection)
	if market.IsBinary() {
		choice, ok := models.BinaryChoice(selection)
		if !ok {
			return winningSelection{}, ErrInvalidSelection
		}
		label := models.LabelYes
		if choice == models.ChoiceNo {
			label = models.LabelNo
		}
		return winningSelection{label: label, choice: choice}, nil
	}

	opt := findOption(market, selection)
	if opt == nil {
		return winningSelection{}, ErrInvalidSelection
	}
	id := opt.ID
	return winningSelection{label: opt.Label, optionID: &id}, nil
}

func findOption(market *models.Market, selection string) *models.MarketOption {
	for i := range market.Options {
		if market.Options[i].Label == selection {
			return &market.Options[i]
		}
	}
	for i := range market.Options {
		if strings.EqualFold(market.Options[i].Label, selection) {
			return &market.Options[i]
		}
	}
	if id, err := strconv.ParseUint(selection, 10, 64); err == nil {
		for i := range market.Options {
			if uint64(market.Options[i].ID) == id {
				return &market.Options[i]
			}
		}
	}
	return nil
}
