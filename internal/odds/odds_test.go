package odds

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPotentialPayout(t *testing.T) {
	cases := []struct {
		stake, odds, want string
	}{
		{"100", "2.0", "200"},
		{"50", "2.0", "100"},
		{"10", "1.55", "15.5"},
		{"33.33", "3", "99.99"},
		{"0.01", "1.5", "0.02"},
	}
	for _, tc := range cases {
		got := PotentialPayout(d(tc.stake), d(tc.odds))
		assert.True(t, got.Equal(d(tc.want)), "%s x %s: got %s want %s", tc.stake, tc.odds, got, tc.want)
	}
}

func TestProfit(t *testing.T) {
	assert.True(t, Profit(d("200"), d("100")).Equal(d("100")))
}

func TestRefund(t *testing.T) {
	assert.True(t, Refund(d("100"), DefaultRefundFraction).Equal(d("95")))
	assert.True(t, Refund(d("100"), d("0.5")).Equal(d("50")))
	// out-of-range fractions use the default
	assert.True(t, Refund(d("100"), d("0")).Equal(d("95")))
	assert.True(t, Refund(d("100"), d("1.5")).Equal(d("95")))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, ValidateOdds(d("1.0")))
	assert.ErrorIs(t, ValidateOdds(d("0.99")), ErrOddsTooLow)
	assert.NoError(t, ValidateStake(d("0.01")))
	assert.ErrorIs(t, ValidateStake(decimal.Zero), ErrInvalidStake)
	assert.ErrorIs(t, ValidateStake(d("-5")), ErrInvalidStake)
}
