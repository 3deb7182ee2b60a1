package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a bettor account and its virtual balance
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Username      string          `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email         string          `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	Balance       decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"balance"`
	TotalWinnings decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"total_winnings"`
	BetsWon       int             `gorm:"not null;default:0" json:"bets_won"`
	IsAdmin       bool            `gorm:"default:false" json:"is_admin"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
