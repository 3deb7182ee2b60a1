package services

import (
	"context"
	"testing"
	"time"

	"binarybets/internal/models"
	"binarybets/internal/odds"
	"binarybets/internal/repository"
	"binarybets/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateMarket_Binary(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewMarketService(repository.NewRepository(db), zap.NewNop())

	market, err := svc.CreateMarket(context.Background(), CreateMarketRequest{
		Question:  "  Will it rain in Lisbon on Friday?  ",
		Category:  "Weather",
		Deadline:  time.Now().Add(48 * time.Hour),
		YesOdds:   d("1.855"),
		NoOdds:    d("2.1"),
		CreatedBy: 7,
	})
	require.NoError(t, err)

	m := testutil.Reload[models.Market](t, db, market.ID)
	assert.Equal(t, "Will it rain in Lisbon on Friday?", m.Question)
	assert.Equal(t, "weather", m.Category)
	assert.Equal(t, models.MarketTypeBinary, m.MarketType)
	assert.Equal(t, "1.86", m.YesOdds.StringFixed(2))
	assert.False(t, m.AIResolutionEnabled, "zero value request disables AI resolution")
	require.NotNil(t, m.CreatedBy)
	assert.Equal(t, uint(7), *m.CreatedBy)
}

func TestCreateMarket_MultiChoiceThenBet(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewRepository(db)
	svc := NewMarketService(repo, zap.NewNop())

	market, err := svc.CreateMarket(ctx, CreateMarketRequest{
		Question: "Who wins the cup?",
		Deadline: time.Now().Add(time.Hour),
		Options: []OptionInput{
			{Label: "France", Odds: d("4.5")},
			{Label: "Brazil", Odds: d("3.2")},
		},
		AIResolutionEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MarketTypeMultiple, market.MarketType)
	require.Len(t, market.Options, 2)

	loaded, err := repo.GetMarketByID(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"France", "Brazil"}, loaded.OptionLabels())
	assert.True(t, loaded.AIResolutionEnabled)

	user := testutil.CreateUser(t, db, "u1", "100")
	bet, err := NewBetService(repo, odds.DefaultRefundFraction, zap.NewNop()).PlaceBet(ctx, PlaceBetRequest{
		UserID: user.ID, MarketID: market.ID, Selection: "france", Amount: d("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "45.00", bet.PotentialPayout.StringFixed(2))
}

func TestCreateMarket_Rejections(t *testing.T) {
	svc := NewMarketService(repository.NewRepository(testutil.NewDB(t)), zap.NewNop())
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name string
		req  CreateMarketRequest
		err  error
	}{
		{"empty question", CreateMarketRequest{Question: " ", Deadline: future, YesOdds: d("2"), NoOdds: d("2")}, ErrInvalidMarket},
		{"past deadline", CreateMarketRequest{Question: "Q", Deadline: time.Now().Add(-time.Minute), YesOdds: d("2"), NoOdds: d("2")}, ErrInvalidMarket},
		{"odds below one", CreateMarketRequest{Question: "Q", Deadline: future, YesOdds: d("0.9"), NoOdds: d("2")}, odds.ErrOddsTooLow},
		{"missing odds", CreateMarketRequest{Question: "Q", Deadline: future}, odds.ErrOddsTooLow},
		{"single option", CreateMarketRequest{Question: "Q", Deadline: future, Options: []OptionInput{{Label: "A", Odds: d("2")}}}, ErrInvalidMarket},
		{"duplicate labels", CreateMarketRequest{Question: "Q", Deadline: future, Options: []OptionInput{{Label: "A", Odds: d("2")}, {Label: "a", Odds: d("3")}}}, ErrInvalidMarket},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMarket(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestUpdateOdds_LiveOddsOnlyAffectNewBets(t *testing.T) {
	ctx := context.Background()
	f := newSettlementFixture(t)
	svc := NewMarketService(f.repo, zap.NewNop())

	alice := testutil.CreateUser(t, f.db, "alice", "1000")
	bob := testutil.CreateUser(t, f.db, "bob", "1000")
	market := testutil.CreateBinaryMarket(t, f.db, "Q", "2.0", "2.0")
	early := f.place(t, alice.ID, market.ID, "Yes", "100")

	yes, no := d("3.0"), d("1.4")
	updated, err := svc.UpdateOdds(ctx, market.ID, UpdateOddsRequest{YesOdds: &yes, NoOdds: &no})
	require.NoError(t, err)
	assert.Equal(t, "3.00", updated.YesOdds.StringFixed(2))

	late := f.place(t, bob.ID, market.ID, "Yes", "100")
	assert.Equal(t, "300.00", late.PotentialPayout.StringFixed(2))

	summary, err := f.settlement.ResolveMarket(ctx, market.ID, "Yes")
	require.NoError(t, err)
	assert.Equal(t, "500.00", summary.TotalPayout.StringFixed(2))
	assert.Equal(t, "200.00", testutil.Reload[models.Bet](t, f.db, early.ID).PotentialPayout.StringFixed(2))

	_, err = svc.UpdateOdds(ctx, market.ID, UpdateOddsRequest{YesOdds: &yes, NoOdds: &no})
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestUpdateOdds_MultiChoice(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewMarketService(repository.NewRepository(db), zap.NewNop())
	market := testutil.CreateMultiMarket(t, db, "Winner?", []string{"A", "B"}, []string{"2.0", "3.0"})
	optA := market.Options[0].ID

	updated, err := svc.UpdateOdds(ctx, market.ID, UpdateOddsRequest{Options: map[uint]decimal.Decimal{optA: d("2.5")}})
	require.NoError(t, err)
	assert.Equal(t, "2.50", updated.Options[0].Odds.StringFixed(2))
	assert.Equal(t, "2.50", testutil.Reload[models.MarketOption](t, db, optA).Odds.StringFixed(2))

	_, err = svc.UpdateOdds(ctx, market.ID, UpdateOddsRequest{Options: map[uint]decimal.Decimal{9999: d("2.5")}})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	yes := d("2")
	_, err = svc.UpdateOdds(ctx, market.ID, UpdateOddsRequest{YesOdds: &yes, NoOdds: &yes})
	assert.ErrorIs(t, err, ErrInvalidMarket)

	_, err = svc.UpdateOdds(ctx, market.ID, UpdateOddsRequest{Options: map[uint]decimal.Decimal{optA: d("0.5")}})
	assert.ErrorIs(t, err, odds.ErrOddsTooLow)
	assert.Equal(t, "2.50", testutil.Reload[models.MarketOption](t, db, optA).Odds.StringFixed(2))

	_, err = svc.UpdateOdds(ctx, 4242, UpdateOddsRequest{})
	assert.ErrorIs(t, err, ErrMarketNotFound)
}
