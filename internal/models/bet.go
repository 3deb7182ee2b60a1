package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
)

// Bet is a single wager. Odds and PotentialPayout are frozen at placement.
type Bet struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index:idx_bets_user_market" json:"user_id"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MarketID        uint            `gorm:"not null;index:idx_bets_user_market;index" json:"market_id"`
	Choice          *string         `gorm:"size:10" json:"choice,omitempty"` // yes, no (binary markets)
	OptionID        *uint           `gorm:"index" json:"option_id,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Odds            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"odds"`
	PotentialPayout decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"potential_payout"`
	RefundAmount    decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"refund_amount"`
	Status          BetStatus       `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
}

// TableName specifies the table name for Bet model
func (Bet) TableName() string {
	return "bets"
}

// IsTerminal reports whether the bet can no longer change
func (b *Bet) IsTerminal() bool {
	return b.Status != BetStatusPending
}
