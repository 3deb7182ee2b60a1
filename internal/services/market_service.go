package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"binarybets/internal/models"
	"binarybets/internal/odds"
	"binarybets/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OptionInput is one outcome of a new multi-choice market
type OptionInput struct {
	Label string          `json:"label"`
	Odds  decimal.Decimal `json:"odds"`
}

// CreateMarketRequest describes a market an operator opens for betting
type CreateMarketRequest struct {
	Question            string
	Description         string
	Category            string
	Deadline            time.Time
	YesOdds             decimal.Decimal
	NoOdds              decimal.Decimal
	Options             []OptionInput // multi-choice when non-empty
	AIResolutionEnabled bool
	CreatedBy           uint
}

// UpdateOddsRequest moves live odds. Binary markets use YesOdds/NoOdds,
// multi-choice markets use Options keyed by option ID.
type UpdateOddsRequest struct {
	YesOdds *decimal.Decimal
	NoOdds  *decimal.Decimal
	Options map[uint]decimal.Decimal
}

// MarketService opens markets and adjusts their live odds. Bets already placed
// keep the odds they were placed at.
type MarketService struct {
	repo *repository.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewMarketService(repo *repository.Repository, log *zap.Logger) *MarketService {
	return &MarketService{repo: repo, log: log.Named("markets"), now: time.Now}
}

// CreateMarket validates and stores a new market with its options
func (s *MarketService) CreateMarket(ctx context.Context, req CreateMarketRequest) (*models.Market, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidMarket)
	}
	if !req.Deadline.After(s.now()) {
		return nil, fmt.Errorf("%w: deadline must be in the future", ErrInvalidMarket)
	}

	market := &models.Market{
		Question:            question,
		Description:         req.Description,
		Category:            strings.ToLower(strings.TrimSpace(req.Category)),
		Deadline:            req.Deadline.UTC(),
		AIResolutionEnabled: req.AIResolutionEnabled,
	}
	if req.CreatedBy != 0 {
		createdBy := req.CreatedBy
		market.CreatedBy = &createdBy
	}

	if len(req.Options) == 0 {
		market.MarketType = models.MarketTypeBinary
		for _, o := range []decimal.Decimal{req.YesOdds, req.NoOdds} {
			if err := odds.ValidateOdds(o); err != nil {
				return nil, err
			}
		}
		market.YesOdds = req.YesOdds.Round(odds.Places)
		market.NoOdds = req.NoOdds.Round(odds.Places)
	} else {
		if len(req.Options) < 2 {
			return nil, fmt.Errorf("%w: a multi-choice market needs at least two options", ErrInvalidMarket)
		}
		market.MarketType = models.MarketTypeMultiple
		market.YesOdds = odds.MinOdds
		market.NoOdds = odds.MinOdds
		seen := make(map[string]bool, len(req.Options))
		for i, opt := range req.Options {
			label := strings.TrimSpace(opt.Label)
			key := strings.ToLower(label)
			if label == "" || seen[key] {
				return nil, fmt.Errorf("%w: option labels must be unique and non-empty", ErrInvalidMarket)
			}
			seen[key] = true
			if err := odds.ValidateOdds(opt.Odds); err != nil {
				return nil, err
			}
			market.Options = append(market.Options, models.MarketOption{
				Label:        label,
				Odds:         opt.Odds.Round(odds.Places),
				DisplayOrder: i,
			})
		}
	}

	if err := s.repo.CreateMarket(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}
	// gorm skips zero values on insert, so the column default would win
	if !req.AIResolutionEnabled {
		if err := s.repo.SetAIResolution(ctx, market.ID, false); err != nil {
			return nil, fmt.Errorf("failed to create market: %w", err)
		}
	}

	s.log.Info("market created",
		zap.Uint("market_id", market.ID),
		zap.String("type", string(market.MarketType)),
		zap.Time("deadline", market.Deadline))
	return market, nil
}

// UpdateOdds changes the live odds of an open market
func (s *MarketService) UpdateOdds(ctx context.Context, marketID uint, req UpdateOddsRequest) (*models.Market, error) {
	var market *models.Market
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		market, err = tx.GetMarketByID(ctx, marketID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMarketNotFound
		}
		if err != nil {
			return err
		}
		if market.Resolved {
			return ErrAlreadyResolved
		}

		if market.IsBinary() {
			if req.YesOdds == nil || req.NoOdds == nil || len(req.Options) > 0 {
				return fmt.Errorf("%w: binary markets take yes and no odds", ErrInvalidMarket)
			}
			yes, no := req.YesOdds.Round(odds.Places), req.NoOdds.Round(odds.Places)
			if err := odds.ValidateOdds(yes); err != nil {
				return err
			}
			if err := odds.ValidateOdds(no); err != nil {
				return err
			}
			if err := tx.UpdateBinaryOdds(ctx, market.ID, yes, no); err != nil {
				return err
			}
			market.YesOdds, market.NoOdds = yes, no
			return nil
		}

		if len(req.Options) == 0 || req.YesOdds != nil || req.NoOdds != nil {
			return fmt.Errorf("%w: multi-choice markets take option odds", ErrInvalidMarket)
		}
		for id, o := range req.Options {
			opt := optionByID(market, id)
			if opt == nil {
				return ErrInvalidSelection
			}
			o = o.Round(odds.Places)
			if err := odds.ValidateOdds(o); err != nil {
				return err
			}
			if err := tx.UpdateOptionOdds(ctx, id, o); err != nil {
				return err
			}
			opt.Odds = o
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("odds updated", zap.Uint("market_id", marketID))
	return market, nil
}

func optionByID(market *models.Market, id uint) *models.MarketOption {
	for i := range market.Options {
		if market.Options[i].ID == id {
			return &market.Options[i]
		}
	}
	return nil
}
