package models

import (
	"time"
)

type ResolverOutcome string

const (
	ResolverOutcomeResolved        ResolverOutcome = "resolved"
	ResolverOutcomeKeptOpen        ResolverOutcome = "kept_open"
	ResolverOutcomeError           ResolverOutcome = "error"
	ResolverOutcomeAlreadyResolved ResolverOutcome = "already_resolved"
)

// ResolverLog is the append-only audit row written for every resolution attempt,
// including the ones that left the market open
type ResolverLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	RunID       string          `gorm:"size:36;index" json:"run_id"`
	MarketID    uint            `gorm:"not null;index" json:"market_id"`
	Policy      string          `gorm:"size:20;not null" json:"policy"`
	Provider    string          `gorm:"size:50" json:"provider"`
	Decision    string          `gorm:"size:20" json:"decision"` // RESOLVE, KEEP_OPEN as stated by the provider
	Winner      *string         `gorm:"size:255" json:"winner,omitempty"`
	Confidence  int             `gorm:"default:0" json:"confidence"`
	Reasoning   string          `gorm:"type:text" json:"reasoning"`
	Outcome     ResolverOutcome `gorm:"size:20;not null;index" json:"outcome"`
	Error       string          `gorm:"type:text" json:"error,omitempty"`
	RawResponse string          `gorm:"type:text" json:"raw_response,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for ResolverLog model
func (ResolverLog) TableName() string {
	return "resolver_logs"
}
