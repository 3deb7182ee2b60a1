package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBetPlaced TransactionType = "bet_placed"
	TransactionTypeBetWon    TransactionType = "bet_won"
	TransactionTypeBetRefund TransactionType = "bet_refund"
)

// Transaction records a single balance movement on the virtual currency ledger
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	BetID       *uint           `gorm:"index" json:"bet_id,omitempty"`
	MarketID    *uint           `gorm:"index" json:"market_id,omitempty"`
	Type        TransactionType `gorm:"size:50;not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"` // signed: debits are negative
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
