package models

import (
	"time"
)

// Notification is an in-app message for a user
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	MarketID  *uint     `gorm:"index" json:"market_id,omitempty"`
	Type      string    `gorm:"size:50;not null" json:"type"` // bet_won, bet_lost
	Message   string    `gorm:"type:text;not null" json:"message"`
	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Notification model
func (Notification) TableName() string {
	return "notifications"
}
